// validate.go - input shape validation for Harmonia composition
//
// This module validates every composition input before any collaborator is
// invoked: scalar flags, the defaults and overrides trees, and the four keyed
// resource maps. Validation is side-effect-free and returns the value
// unchanged on success, with detailed error reporting on failure.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"fmt"
	"math"

	"github.com/agilira/go-errors"
)

// ValidationResult contains the result of input validation with detailed feedback.
// Errors are fatal and abort composition; warnings are non-fatal advisories.
type ValidationResult struct {
	Valid    bool            `json:"valid"`
	Errors   []string        `json:"errors,omitempty"`
	Warnings []PolicyWarning `json:"warnings,omitempty"`
}

// String returns a human-readable representation of validation results
func (vr ValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return "Inputs are valid"
		}
		return fmt.Sprintf("Inputs are valid with %d warning(s)", len(vr.Warnings))
	}
	return fmt.Sprintf("Inputs are invalid: %d error(s), %d warning(s)",
		len(vr.Errors), len(vr.Warnings))
}

// invalidInput builds a coded validation error naming the offending field,
// the expected shape, and the actual value.
func invalidInput(field, expected string, actual interface{}) error {
	return errors.New(ErrCodeInvalidInput,
		fmt.Sprintf("field '%s': expected %s, got %T (%v)", field, expected, actual, actual))
}

// ValidateBool checks that a value is a boolean and returns it unchanged.
func ValidateBool(field string, value interface{}) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, invalidInput(field, "boolean", value)
	}
	return b, nil
}

// ValidateStringSlice checks that a value is a sequence of strings and
// returns it as []string. Both []string and []interface{} holding only
// strings are accepted, since decoded JSON and YAML produce the latter.
func ValidateStringSlice(field string, value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalidInput(fmt.Sprintf("%s[%d]", field, i), "string", item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, invalidInput(field, "sequence of strings", value)
	}
}

// ValidateTree checks that a value is a mapping and returns it as a ConfigTree.
func ValidateTree(field string, value interface{}) (ConfigTree, error) {
	if value == nil {
		return nil, invalidInput(field, "mapping", value)
	}
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil, invalidInput(field, "mapping", value)
	}
	return m, nil
}

// ValidateNonNegativeInt checks that a value is a non-negative integer and
// returns it as int. Whole-valued float64 is accepted because JSON decoding
// produces float64 for all numbers.
func ValidateNonNegativeInt(field string, value interface{}) (int, error) {
	n, ok := toInt(value)
	if !ok {
		return 0, invalidInput(field, "non-negative integer", value)
	}
	if n < 0 {
		return 0, errors.New(ErrCodeInvalidInput,
			fmt.Sprintf("field '%s': expected non-negative integer, got %d", field, n))
	}
	return n, nil
}

// ValidateString checks that a value is a string and returns it unchanged.
func ValidateString(field string, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", invalidInput(field, "string", value)
	}
	return s, nil
}

// toInt converts the integer shapes produced by Go literals, JSON, and YAML
// decoding into a plain int. Fractional floats are rejected.
func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case float32:
		if v != float32(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// ServiceEnsure values accepted by Inputs.ServiceEnsure.
const (
	EnsureRunning = "running"
	EnsureStopped = "stopped"
)

// Inputs is the full set of raw composition inputs: scalar flags, the
// defaults and overrides trees, and the four keyed resource maps. Every
// field is validated independently before the merge engine runs.
type Inputs struct {
	// Scalar flags
	ManageUser         bool
	ManageGroup        bool
	ExtraGroups        []string
	ManageService      bool
	ServiceEnable      bool
	ServiceEnsure      string // "running" or "stopped"
	PurgeConfigDir     bool
	RestartOnChange    bool
	PrettyConfig       bool
	PrettyConfigIndent int

	// Configuration trees. ConfigDefaults supplies the base settings;
	// ConfigHash carries operator overrides and wins on conflict.
	ConfigDefaults ConfigTree
	ConfigHash     ConfigTree

	// Keyed resource maps
	Services map[string]RawResource
	Checks   map[string]RawResource
	Watches  map[string]RawResource
	ACLs     map[string]RawResource
}

// WithDefaults applies sensible defaults to unset input fields
func (in *Inputs) WithDefaults() *Inputs {
	inputs := *in

	if inputs.ServiceEnsure == "" {
		inputs.ServiceEnsure = EnsureRunning
	}

	if inputs.PrettyConfigIndent <= 0 {
		inputs.PrettyConfigIndent = 4
	}

	if inputs.ConfigDefaults == nil {
		inputs.ConfigDefaults = ConfigTree{}
	}

	if inputs.ConfigHash == nil {
		inputs.ConfigHash = ConfigTree{}
	}

	return &inputs
}

// Validate performs full validation of the composition inputs.
// Returns the first error if the inputs are invalid; warnings are included
// in the ValidationResult only.
func (in *Inputs) Validate() error {
	result := in.ValidateDetailed()
	if !result.Valid && len(result.Errors) > 0 {
		return errors.New(ErrCodeInvalidInput, result.Errors[0])
	}
	return nil
}

// ValidateDetailed performs full validation and returns detailed results
// including both errors and warnings for better debugging and monitoring
func (in *Inputs) ValidateDetailed() ValidationResult {
	result := ValidationResult{
		Valid:    true,
		Errors:   make([]string, 0),
		Warnings: make([]PolicyWarning, 0),
	}

	in.validateScalars(&result)
	in.validateTrees(&result)
	in.validateResourceMaps(&result)

	result.Valid = len(result.Errors) == 0
	return result
}

// validateScalars checks the scalar flag fields
func (in *Inputs) validateScalars(result *ValidationResult) {
	if in.ServiceEnsure != "" && in.ServiceEnsure != EnsureRunning && in.ServiceEnsure != EnsureStopped {
		result.Errors = append(result.Errors,
			fmt.Sprintf("field 'serviceEnsure': expected %q or %q, got %q",
				EnsureRunning, EnsureStopped, in.ServiceEnsure))
	}

	if in.PrettyConfigIndent < 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("field 'prettyConfigIndent': expected non-negative integer, got %d",
				in.PrettyConfigIndent))
	}

	for i, group := range in.ExtraGroups {
		if group == "" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("field 'extraGroups[%d]': group name must not be empty", i))
		}
	}

	if len(in.ExtraGroups) > 0 && !in.ManageUser {
		result.Warnings = append(result.Warnings, PolicyWarning{
			Field:   "extraGroups",
			Message: "extraGroups has no effect when manageUser is disabled",
		})
	}
}

// validateTrees checks the defaults and overrides trees for well-formedness.
// Every nested mapping must be string-keyed; cyclic trees are rejected here
// so the merge engine can assume acyclic input.
func (in *Inputs) validateTrees(result *ValidationResult) {
	for _, tree := range []struct {
		field string
		value ConfigTree
	}{
		{"configDefaults", in.ConfigDefaults},
		{"configHash", in.ConfigHash},
	} {
		if tree.value == nil {
			continue
		}
		if err := checkTreeShape(tree.field, tree.value); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}
}

// validateResourceMaps checks that resource map keys are usable identities.
// Per-field schema validation happens in the resource expander.
func (in *Inputs) validateResourceMaps(result *ValidationResult) {
	for _, m := range []struct {
		field string
		value map[string]RawResource
	}{
		{"services", in.Services},
		{"checks", in.Checks},
		{"watches", in.Watches},
		{"acls", in.ACLs},
	} {
		for key, decl := range m.value {
			if key == "" {
				result.Errors = append(result.Errors,
					fmt.Sprintf("field '%s': resource key must not be empty", m.field))
			}
			if decl == nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("field '%s[%s]': expected mapping, got nil", m.field, key))
			}
		}
	}
}

// checkTreeShape walks a tree and rejects non-string-keyed mappings and
// cyclic structures. Decoded JSON and YAML trees are always acyclic; the
// cycle guard catches hand-built trees that alias themselves.
func checkTreeShape(field string, tree ConfigTree) error {
	return checkTreeValue(field, tree, newCycleGuard())
}

func checkTreeValue(path string, value interface{}, guard *cycleGuard) error {
	switch v := value.(type) {
	case map[string]interface{}:
		if !guard.enter(v) {
			return errors.New(ErrCodeCyclicConfig,
				fmt.Sprintf("field '%s': configuration tree contains a cycle", path))
		}
		defer guard.leave(v)
		for key, nested := range v {
			if err := checkTreeValue(path+"."+key, nested, guard); err != nil {
				return err
			}
		}
		return nil
	case map[interface{}]interface{}:
		return invalidInput(path, "string-keyed mapping", v)
	case []interface{}:
		if len(v) > 0 {
			if !guard.enter(v) {
				return errors.New(ErrCodeCyclicConfig,
					fmt.Sprintf("field '%s': configuration tree contains a cycle", path))
			}
			defer guard.leave(v)
		}
		for i, item := range v {
			if err := checkTreeValue(fmt.Sprintf("%s[%d]", path, i), item, guard); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
