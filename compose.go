// compose.go: Composition pass for Harmonia effective configuration
//
// A composition pass is pure and single-threaded: validate the inputs, merge
// the trees, derive the dependent settings, and expand the resource maps.
// No collaborator is invoked until the pass has fully succeeded, so a fatal
// validation error always halts before any external effect.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"fmt"

	"github.com/agilira/go-errors"
)

// EffectiveConfig is the validated, merged, derived configuration produced
// by one composition pass. It is immutable once composition completes and is
// owned by the lifecycle orchestrator for the duration of one Apply.
type EffectiveConfig struct {
	// Tree is the merged configuration tree (defaults overlaid by overrides)
	Tree ConfigTree `json:"tree"`

	// Derived carries the scalar settings computed from the merged tree
	Derived Derived `json:"derived"`

	// Resources are the expanded, validated resource declarations
	Resources *ResourceSet `json:"resources"`

	// Install carries the package/binary selection for the target platform
	Install InstallCoordinates `json:"install"`

	// Inputs preserves the validated scalar flags consumed by the
	// lifecycle stages (purgeConfigDir, restartOnChange, service state)
	Inputs *Inputs `json:"-"`

	// Warnings are the non-fatal advisories emitted during this pass
	Warnings []PolicyWarning `json:"warnings,omitempty"`
}

// Composer runs composition passes and applies their results through the
// lifecycle orchestrator. A Composer is safe for sequential reuse across
// passes; Close releases the audit logger.
type Composer struct {
	opts   *Options
	audit  *AuditLogger
	closed bool
}

// NewComposer creates a composer with the given options.
// Audit logging starts immediately when enabled; callers must Close the
// composer to flush and release the audit backend.
func NewComposer(opts Options) (*Composer, error) {
	resolved := opts.WithDefaults()

	var audit *AuditLogger
	if resolved.Audit.Enabled {
		logger, err := NewAuditLogger(resolved.Audit)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidAudit, "failed to initialize audit logging")
		}
		audit = logger
	}

	return &Composer{opts: resolved, audit: audit}, nil
}

// AuditLogger exposes the composer's audit logger, or nil when auditing is
// disabled. Useful for sharing one audit trail with CLI or renderer code.
func (c *Composer) AuditLogger() *AuditLogger { return c.audit }

// Compose runs one full composition pass: validate, merge, derive, expand.
// The returned EffectiveConfig must be treated as immutable. Warnings never
// fail the pass; they are retained on the result and forwarded to the
// configured WarningHandler.
func (c *Composer) Compose(in *Inputs) (*EffectiveConfig, error) {
	if c.closed {
		return nil, errors.New(ErrCodeComposerClosed, "composer is closed")
	}
	if in == nil {
		return nil, errors.New(ErrCodeInvalidInput, "inputs must not be nil")
	}

	inputs := in.WithDefaults()

	result := inputs.ValidateDetailed()
	if !result.Valid {
		c.auditCompose(AuditWarn, "compose_rejected", map[string]interface{}{
			"errors": result.Errors,
		})
		return nil, errors.New(ErrCodeInvalidInput, result.Errors[0])
	}
	warnings := c.emitWarnings(result.Warnings)

	merged, err := Merge(inputs.ConfigDefaults, inputs.ConfigHash)
	if err != nil {
		return nil, err
	}

	derived, deriveWarnings := Derive(merged, c.opts.Environment)
	warnings = append(warnings, c.emitWarnings(deriveWarnings)...)

	resources, err := ExpandAll(inputs)
	if err != nil {
		return nil, err
	}

	platform, err := ResolvePlatform(c.opts.Environment.OS())
	if err != nil {
		return nil, err
	}

	cfg := &EffectiveConfig{
		Tree:      merged,
		Derived:   derived,
		Resources: resources,
		Install:   platform.Coordinates(c.opts.Version, c.opts.Environment.Arch()),
		Inputs:    inputs,
		Warnings:  warnings,
	}

	c.auditCompose(AuditInfo, "compose_completed", map[string]interface{}{
		"rpc_port":  derived.RPCPort,
		"bind_addr": derived.RPCBindAddr,
		"services":  len(resources.Services),
		"checks":    len(resources.Checks),
		"watches":   len(resources.Watches),
		"acls":      len(resources.ACLs),
		"warnings":  len(warnings),
	})

	return cfg, nil
}

// Apply drives the lifecycle orchestrator over an effective configuration.
// Stage failures are returned tagged with the stage name; earlier stages are
// not rolled back.
func (c *Composer) Apply(cfg *EffectiveConfig, collab Collaborators) error {
	if c.closed {
		return errors.New(ErrCodeComposerClosed, "composer is closed")
	}

	orch, err := NewOrchestrator(cfg, collab)
	if err != nil {
		return err
	}
	return orch.WithAudit(c.audit).Run()
}

// Close flushes and releases the audit logger. Safe to call multiple times.
func (c *Composer) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.audit != nil {
		if err := c.audit.Close(); err != nil {
			return fmt.Errorf("failed to close composer audit logger: %w", err)
		}
	}
	return nil
}

// emitWarnings forwards warnings to the handler and audit trail
func (c *Composer) emitWarnings(warnings []PolicyWarning) []PolicyWarning {
	for _, w := range warnings {
		if c.opts.WarningHandler != nil {
			c.opts.WarningHandler(w)
		}
		c.auditCompose(AuditWarn, "policy_warning", map[string]interface{}{
			"field":   w.Field,
			"message": w.Message,
		})
	}
	return warnings
}

func (c *Composer) auditCompose(level AuditLevel, event string, context map[string]interface{}) {
	if c.audit != nil {
		c.audit.Log(level, event, "composer", "", nil, nil, context)
	}
}
