// harmonia: Declarative configuration composer for clustered service agents
//
// Philosophy:
// - Pure, deterministic composition: validate -> merge -> derive -> expand
// - Explicit lifecycle state machine instead of implicit dependency chains
// - All fatal errors coded and tagged with the offending field, key, or stage
//
// Example Usage:
//   composer, err := harmonia.NewComposer(harmonia.Options{Version: "1.16.2"})
//   if err != nil {
//       log.Fatal(err)
//   }
//   defer composer.Close()
//
//   cfg, err := composer.Compose(&harmonia.Inputs{
//       ConfigDefaults: defaults,
//       ConfigHash:     overrides,
//   })
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

// ConfigTree is a recursively nested configuration mapping. It represents the
// defaults tree, the overrides tree, and the merged effective tree alike.
// Values are scalars, sequences, or nested ConfigTrees.
type ConfigTree = map[string]interface{}

// RawResource is one loosely-typed entry of a keyed resource map before
// schema validation. The map key carries the resource identity.
type RawResource = map[string]interface{}

// Error codes for Harmonia operations
const (
	ErrCodeInvalidInput     = "HARMONIA_INVALID_INPUT"
	ErrCodeInvalidResource  = "HARMONIA_INVALID_RESOURCE"
	ErrCodeStageFailed      = "HARMONIA_STAGE_FAILED"
	ErrCodeCyclicConfig     = "HARMONIA_CYCLIC_CONFIG"
	ErrCodeInvalidConfig    = "HARMONIA_INVALID_CONFIG"
	ErrCodeConfigNotFound   = "HARMONIA_CONFIG_NOT_FOUND"
	ErrCodeUnknownPlatform  = "HARMONIA_UNKNOWN_PLATFORM"
	ErrCodeRenderError      = "HARMONIA_RENDER_ERROR"
	ErrCodeSerialization    = "HARMONIA_SERIALIZATION_ERROR"
	ErrCodeIOError          = "HARMONIA_IO_ERROR"
	ErrCodeInvalidAudit     = "HARMONIA_INVALID_AUDIT_CONFIG"
	ErrCodeComposerClosed   = "HARMONIA_COMPOSER_CLOSED"
	ErrCodeUnsupportedValue = "HARMONIA_UNSUPPORTED_VALUE"
)

// PolicyWarning is a non-fatal advisory produced during composition, e.g. a
// UI directory configured without a data directory. Warnings never abort a
// composition pass; they are surfaced through the WarningHandler and the
// audit trail.
type PolicyWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (w PolicyWarning) String() string {
	if w.Field == "" {
		return w.Message
	}
	return w.Field + ": " + w.Message
}

// WarningHandler is called for every PolicyWarning emitted during composition.
// If nil, warnings are retained on the EffectiveConfig only.
// Example: func(w harmonia.PolicyWarning) { metrics.Increment("compose.warnings") }
type WarningHandler func(warning PolicyWarning)

// Options configures a Composer.
type Options struct {
	// Version is the agent version forwarded to the install collaborator.
	// Default: "1.16.2"
	Version string

	// Environment supplies platform facts (OS, architecture, loopback
	// address). If nil, SystemEnvironment is used.
	Environment Environment

	// WarningHandler receives non-fatal policy warnings as they are emitted.
	WarningHandler WarningHandler

	// Audit configuration for composition and lifecycle audit trails.
	// Default: enabled with secure defaults (unified SQLite backend).
	Audit AuditConfig
}

// WithDefaults applies sensible defaults to the composer options
func (o *Options) WithDefaults() *Options {
	opts := *o

	if opts.Version == "" {
		opts.Version = "1.16.2"
	}

	if opts.Environment == nil {
		opts.Environment = SystemEnvironment{}
	}

	if opts.Audit == (AuditConfig{}) {
		opts.Audit = DefaultAuditConfig()
	}

	return &opts
}
