// derive_test.go: Testing Harmonia derived-settings engine
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import "testing"

func testEnv() Environment {
	return StaticEnvironment{Platform: "linux", Architecture: "amd64", Loopback: "127.0.0.1"}
}

func TestDerive(t *testing.T) {
	t.Run("data_and_ui_dirs", func(t *testing.T) {
		derived, warnings := Derive(ConfigTree{
			"dataDir": "/var/lib/agent",
			"uiDir":   "/var/lib/agent/ui",
		}, testEnv())

		if derived.DataDir != "/var/lib/agent" {
			t.Errorf("expected dataDir '/var/lib/agent', got %q", derived.DataDir)
		}
		if derived.UIDir != "/var/lib/agent/ui" {
			t.Errorf("expected uiDir '/var/lib/agent/ui', got %q", derived.UIDir)
		}
		if len(warnings) != 0 {
			t.Errorf("expected no warnings, got %v", warnings)
		}
	})

	t.Run("ui_dir_without_data_dir_warns", func(t *testing.T) {
		derived, warnings := Derive(ConfigTree{"uiDir": "/srv/ui"}, testEnv())

		if derived.UIDir != "/srv/ui" {
			t.Errorf("expected uiDir preserved despite warning, got %q", derived.UIDir)
		}
		if len(warnings) != 1 {
			t.Fatalf("expected exactly one warning, got %d", len(warnings))
		}
		if warnings[0].Field != "uiDir" {
			t.Errorf("expected warning field 'uiDir', got %q", warnings[0].Field)
		}
		if warnings[0].Message != "uiDir requires dataDir to be set" {
			t.Errorf("unexpected warning message: %q", warnings[0].Message)
		}
	})

	t.Run("absent_dirs_are_empty", func(t *testing.T) {
		derived, warnings := Derive(ConfigTree{}, testEnv())
		if derived.DataDir != "" || derived.UIDir != "" {
			t.Errorf("expected empty dirs, got %+v", derived)
		}
		if len(warnings) != 0 {
			t.Errorf("expected no warnings, got %v", warnings)
		}
	})
}

func TestDeriveRPCPort(t *testing.T) {
	t.Run("default_when_absent", func(t *testing.T) {
		derived, _ := Derive(ConfigTree{}, testEnv())
		if derived.RPCPort != DefaultRPCPort {
			t.Errorf("expected default port %d, got %d", DefaultRPCPort, derived.RPCPort)
		}
	})

	t.Run("explicit_port_wins", func(t *testing.T) {
		derived, _ := Derive(ConfigTree{
			"ports": ConfigTree{"rpc": 8500},
		}, testEnv())
		if derived.RPCPort != 8500 {
			t.Errorf("expected port 8500, got %d", derived.RPCPort)
		}
	})

	t.Run("zero_port_falls_back_to_default", func(t *testing.T) {
		derived, _ := Derive(ConfigTree{
			"ports": ConfigTree{"rpc": 0},
		}, testEnv())
		if derived.RPCPort != DefaultRPCPort {
			t.Errorf("expected default port for zero value, got %d", derived.RPCPort)
		}
	})

	t.Run("json_decoded_float_port", func(t *testing.T) {
		// JSON decoding produces float64 for all numbers
		derived, _ := Derive(ConfigTree{
			"ports": ConfigTree{"rpc": float64(8501)},
		}, testEnv())
		if derived.RPCPort != 8501 {
			t.Errorf("expected port 8501 from float64, got %d", derived.RPCPort)
		}
	})

	t.Run("non_numeric_port_falls_back", func(t *testing.T) {
		derived, _ := Derive(ConfigTree{
			"ports": ConfigTree{"rpc": "not-a-port"},
		}, testEnv())
		if derived.RPCPort != DefaultRPCPort {
			t.Errorf("expected default port for non-numeric value, got %d", derived.RPCPort)
		}
	})

	t.Run("ports_not_a_mapping", func(t *testing.T) {
		derived, _ := Derive(ConfigTree{"ports": "flat"}, testEnv())
		if derived.RPCPort != DefaultRPCPort {
			t.Errorf("expected default port, got %d", derived.RPCPort)
		}
	})
}

func TestDeriveRPCBindAddr(t *testing.T) {
	t.Run("addresses_rpc_wins", func(t *testing.T) {
		derived, _ := Derive(ConfigTree{
			"addresses":  ConfigTree{"rpc": "10.0.0.5"},
			"clientAddr": "10.0.0.6",
		}, testEnv())
		if derived.RPCBindAddr != "10.0.0.5" {
			t.Errorf("expected addresses.rpc to win, got %q", derived.RPCBindAddr)
		}
	})

	t.Run("client_addr_second", func(t *testing.T) {
		derived, _ := Derive(ConfigTree{"clientAddr": "10.0.0.6"}, testEnv())
		if derived.RPCBindAddr != "10.0.0.6" {
			t.Errorf("expected clientAddr fallback, got %q", derived.RPCBindAddr)
		}
	})

	t.Run("loopback_last", func(t *testing.T) {
		derived, _ := Derive(ConfigTree{}, testEnv())
		if derived.RPCBindAddr != "127.0.0.1" {
			t.Errorf("expected loopback fallback, got %q", derived.RPCBindAddr)
		}
	})

	t.Run("empty_string_values_skipped", func(t *testing.T) {
		derived, _ := Derive(ConfigTree{
			"addresses":  ConfigTree{"rpc": ""},
			"clientAddr": "",
		}, testEnv())
		if derived.RPCBindAddr != "127.0.0.1" {
			t.Errorf("expected loopback for empty values, got %q", derived.RPCBindAddr)
		}
	})

	t.Run("environment_loopback_honored", func(t *testing.T) {
		env := StaticEnvironment{Platform: "linux", Architecture: "amd64", Loopback: "::1"}
		derived, _ := Derive(ConfigTree{}, env)
		if derived.RPCBindAddr != "::1" {
			t.Errorf("expected environment loopback, got %q", derived.RPCBindAddr)
		}
	})
}

func TestLookupPath(t *testing.T) {
	tree := ConfigTree{
		"a": ConfigTree{"b": ConfigTree{"c": "leaf"}},
		"x": "scalar",
	}

	t.Run("nested_lookup", func(t *testing.T) {
		if got := lookupPath(tree, "a.b.c"); got != "leaf" {
			t.Errorf("expected 'leaf', got %v", got)
		}
	})

	t.Run("top_level_lookup", func(t *testing.T) {
		if got := lookupPath(tree, "x"); got != "scalar" {
			t.Errorf("expected 'scalar', got %v", got)
		}
	})

	t.Run("missing_segment", func(t *testing.T) {
		if got := lookupPath(tree, "a.missing.c"); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("segment_through_scalar", func(t *testing.T) {
		if got := lookupPath(tree, "x.deeper"); got != nil {
			t.Errorf("expected nil when traversing through a scalar, got %v", got)
		}
	})
}
