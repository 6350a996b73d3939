// resources.go: Keyed resource-map expansion for Harmonia
//
// Each of the four resource kinds (service, check, watch, acl) carries its
// own field schema. Expansion turns one keyed map of loosely-typed attribute
// bags into validated, typed resource declarations, failing fast on the
// first invalid entry: a partially-applied resource set is more dangerous
// than refusing all of them.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agilira/go-errors"
)

// ResourceKind identifies one of the four expandable resource map kinds
type ResourceKind int

const (
	KindService ResourceKind = iota
	KindCheck
	KindWatch
	KindACL
)

func (k ResourceKind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindCheck:
		return "check"
	case KindWatch:
		return "watch"
	case KindACL:
		return "acl"
	default:
		return "unknown"
	}
}

// ResourceDeclaration is one validated, typed resource expanded from a keyed
// map entry. Key is the map key and serves as the stable resource identity.
// Fields is a private copy of the validated attributes; declarations are not
// mutated after expansion.
type ResourceDeclaration struct {
	Kind   ResourceKind           `json:"kind"`
	Key    string                 `json:"key"`
	Fields map[string]interface{} `json:"fields"`
}

// ResourceSet aggregates the expanded declarations of all four kinds
type ResourceSet struct {
	Services []ResourceDeclaration `json:"services,omitempty"`
	Checks   []ResourceDeclaration `json:"checks,omitempty"`
	Watches  []ResourceDeclaration `json:"watches,omitempty"`
	ACLs     []ResourceDeclaration `json:"acls,omitempty"`
}

// fieldKind is the expected shape of one schema field
type fieldKind int

const (
	fieldString fieldKind = iota
	fieldInt
	fieldBool
	fieldStringSlice
	fieldTree
)

// resourceSchema describes the accepted fields of one resource kind.
// Unknown fields are rejected rather than passed through silently.
type resourceSchema struct {
	fields   map[string]fieldKind
	required []string
}

var resourceSchemas = map[ResourceKind]resourceSchema{
	KindService: {
		fields: map[string]fieldKind{
			"address":             fieldString,
			"port":                fieldInt,
			"tags":                fieldStringSlice,
			"meta":                fieldTree,
			"token":               fieldString,
			"enable_tag_override": fieldBool,
		},
	},
	KindCheck: {
		fields: map[string]fieldKind{
			"http":       fieldString,
			"tcp":        fieldString,
			"ttl":        fieldString,
			"args":       fieldStringSlice,
			"interval":   fieldString,
			"timeout":    fieldString,
			"notes":      fieldString,
			"status":     fieldString,
			"service_id": fieldString,
			"token":      fieldString,
		},
	},
	KindWatch: {
		fields: map[string]fieldKind{
			"type":       fieldString,
			"handler":    fieldString,
			"args":       fieldStringSlice,
			"datacenter": fieldString,
			"key":        fieldString,
			"prefix":     fieldString,
			"service":    fieldString,
			"state":      fieldString,
			"token":      fieldString,
		},
		required: []string{"type"},
	},
	KindACL: {
		fields: map[string]fieldKind{
			"type":  fieldString,
			"rules": fieldString,
			"token": fieldString,
		},
		required: []string{"type"},
	},
}

// resourceError wraps a validation failure with the kind and key of the
// offending entry.
func resourceError(kind ResourceKind, key string, cause error) error {
	return errors.Wrap(cause, ErrCodeInvalidResource,
		fmt.Sprintf("%s resource '%s' is invalid", kind, key))
}

// Expand validates every entry of one keyed resource map against the schema
// for its kind and returns one declaration per key, ordered by key for
// determinism. The first invalid entry (in key order) aborts the whole
// expansion for this kind and no declarations are returned.
func Expand(kind ResourceKind, declarations map[string]RawResource) ([]ResourceDeclaration, error) {
	schema, ok := resourceSchemas[kind]
	if !ok {
		return nil, errors.New(ErrCodeInvalidResource,
			fmt.Sprintf("unknown resource kind %d", int(kind)))
	}

	keys := make([]string, 0, len(declarations))
	for key := range declarations {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]ResourceDeclaration, 0, len(keys))
	for _, key := range keys {
		decl, err := expandOne(kind, schema, key, declarations[key])
		if err != nil {
			return nil, err
		}
		out = append(out, decl)
	}
	return out, nil
}

// expandOne validates a single raw resource against its kind's schema
func expandOne(kind ResourceKind, schema resourceSchema, key string, raw RawResource) (ResourceDeclaration, error) {
	if key == "" {
		return ResourceDeclaration{}, errors.New(ErrCodeInvalidResource,
			fmt.Sprintf("%s resource key must not be empty", kind))
	}
	if raw == nil {
		return ResourceDeclaration{}, resourceError(kind, key,
			errors.New(ErrCodeInvalidInput, "declaration must be a mapping"))
	}

	fields := make(map[string]interface{}, len(raw))
	for name, value := range raw {
		expected, known := schema.fields[name]
		if !known {
			return ResourceDeclaration{}, resourceError(kind, key,
				errors.New(ErrCodeInvalidInput,
					fmt.Sprintf("unknown field '%s'", name)))
		}
		validated, err := validateField(name, expected, value)
		if err != nil {
			return ResourceDeclaration{}, resourceError(kind, key, err)
		}
		fields[name] = validated
	}

	for _, name := range schema.required {
		if _, present := fields[name]; !present {
			return ResourceDeclaration{}, resourceError(kind, key,
				errors.New(ErrCodeInvalidInput,
					fmt.Sprintf("missing required field '%s'", name)))
		}
	}

	return ResourceDeclaration{Kind: kind, Key: key, Fields: fields}, nil
}

// validateField checks one field value against its expected shape and
// returns the normalized value.
func validateField(name string, expected fieldKind, value interface{}) (interface{}, error) {
	switch expected {
	case fieldString:
		return ValidateString(name, value)
	case fieldInt:
		return ValidateNonNegativeInt(name, value)
	case fieldBool:
		return ValidateBool(name, value)
	case fieldStringSlice:
		return ValidateStringSlice(name, value)
	case fieldTree:
		tree, err := ValidateTree(name, value)
		if err != nil {
			return nil, err
		}
		return copyTree(name, tree)
	default:
		return nil, errors.New(ErrCodeUnsupportedValue,
			fmt.Sprintf("field '%s': unsupported schema kind", name))
	}
}

// ExpandAll expands the four resource maps concurrently. The kinds are
// independent, but a failure in any one kind fails the whole pass: the
// returned set is nil whenever the error is non-nil. With multiple failing
// kinds the error of the first kind in service/check/watch/acl order is
// reported, keeping the result deterministic.
func ExpandAll(in *Inputs) (*ResourceSet, error) {
	jobs := []struct {
		kind  ResourceKind
		decls map[string]RawResource
		out   *[]ResourceDeclaration
	}{
		{KindService, in.Services, nil},
		{KindCheck, in.Checks, nil},
		{KindWatch, in.Watches, nil},
		{KindACL, in.ACLs, nil},
	}

	set := &ResourceSet{}
	jobs[0].out = &set.Services
	jobs[1].out = &set.Checks
	jobs[2].out = &set.Watches
	jobs[3].out = &set.ACLs

	failures := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			declared, err := Expand(jobs[i].kind, jobs[i].decls)
			if err != nil {
				failures[i] = err
				return
			}
			*jobs[i].out = declared
		}(i)
	}
	wg.Wait()

	for _, err := range failures {
		if err != nil {
			return nil, err
		}
	}
	return set, nil
}
