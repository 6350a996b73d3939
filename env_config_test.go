// env_config_test.go: Testing Harmonia environment-variable configuration
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"testing"
	"time"
)

func TestLoadOptionsFromEnv(t *testing.T) {
	t.Run("defaults_without_env", func(t *testing.T) {
		opts, err := LoadOptionsFromEnv()
		if err != nil {
			t.Fatalf("LoadOptionsFromEnv failed: %v", err)
		}
		if opts.Version == "" {
			t.Error("expected default version")
		}
		if opts.Environment == nil {
			t.Error("expected default environment")
		}
	})

	t.Run("version_override", func(t *testing.T) {
		t.Setenv("HARMONIA_VERSION", "2.1.0")

		opts, err := LoadOptionsFromEnv()
		if err != nil {
			t.Fatalf("LoadOptionsFromEnv failed: %v", err)
		}
		if opts.Version != "2.1.0" {
			t.Errorf("expected version '2.1.0', got %q", opts.Version)
		}
	})

	t.Run("bind_address_replaces_loopback_fallback", func(t *testing.T) {
		t.Setenv("HARMONIA_BIND_ADDRESS", "10.1.2.3")

		opts, err := LoadOptionsFromEnv()
		if err != nil {
			t.Fatalf("LoadOptionsFromEnv failed: %v", err)
		}

		derived, _ := Derive(ConfigTree{}, opts.Environment)
		if derived.RPCBindAddr != "10.1.2.3" {
			t.Errorf("expected env bind address, got %q", derived.RPCBindAddr)
		}

		// Explicit tree keys still win over the env fallback
		derived, _ = Derive(ConfigTree{"clientAddr": "10.9.9.9"}, opts.Environment)
		if derived.RPCBindAddr != "10.9.9.9" {
			t.Errorf("expected tree key to win, got %q", derived.RPCBindAddr)
		}
	})

	t.Run("audit_settings", func(t *testing.T) {
		t.Setenv("HARMONIA_AUDIT_ENABLED", "false")
		t.Setenv("HARMONIA_AUDIT_MIN_LEVEL", "critical")
		t.Setenv("HARMONIA_AUDIT_BUFFER_SIZE", "50")
		t.Setenv("HARMONIA_AUDIT_FLUSH_INTERVAL", "10s")

		opts, err := LoadOptionsFromEnv()
		if err != nil {
			t.Fatalf("LoadOptionsFromEnv failed: %v", err)
		}
		if opts.Audit.Enabled {
			t.Error("expected audit disabled")
		}
		if opts.Audit.MinLevel != AuditCritical {
			t.Errorf("expected min level CRITICAL, got %v", opts.Audit.MinLevel)
		}
		if opts.Audit.BufferSize != 50 {
			t.Errorf("expected buffer size 50, got %d", opts.Audit.BufferSize)
		}
		if opts.Audit.FlushInterval != 10*time.Second {
			t.Errorf("expected 10s flush interval, got %v", opts.Audit.FlushInterval)
		}
	})

	t.Run("invalid_audit_enabled", func(t *testing.T) {
		t.Setenv("HARMONIA_AUDIT_ENABLED", "maybe")
		if _, err := LoadOptionsFromEnv(); err == nil {
			t.Fatal("expected error for invalid boolean")
		}
	})

	t.Run("invalid_audit_level", func(t *testing.T) {
		t.Setenv("HARMONIA_AUDIT_MIN_LEVEL", "verbose")
		if _, err := LoadOptionsFromEnv(); err == nil {
			t.Fatal("expected error for invalid level")
		}
	})

	t.Run("invalid_buffer_size", func(t *testing.T) {
		t.Setenv("HARMONIA_AUDIT_BUFFER_SIZE", "-5")
		if _, err := LoadOptionsFromEnv(); err == nil {
			t.Fatal("expected error for negative buffer size")
		}
	})

	t.Run("invalid_flush_interval", func(t *testing.T) {
		t.Setenv("HARMONIA_AUDIT_FLUSH_INTERVAL", "soon")
		if _, err := LoadOptionsFromEnv(); err == nil {
			t.Fatal("expected error for malformed duration")
		}
	})
}

func TestParseAuditLevel(t *testing.T) {
	cases := map[string]AuditLevel{
		"info":     AuditInfo,
		"INFO":     AuditInfo,
		"warn":     AuditWarn,
		"critical": AuditCritical,
		"SECURITY": AuditSecurity,
	}
	for name, expected := range cases {
		level, err := parseAuditLevel(name)
		if err != nil {
			t.Errorf("parseAuditLevel(%q) failed: %v", name, err)
			continue
		}
		if level != expected {
			t.Errorf("parseAuditLevel(%q) = %v, expected %v", name, level, expected)
		}
	}

	if _, err := parseAuditLevel("debug"); err == nil {
		t.Error("expected error for unknown level")
	}
}
