// flags_test.go: Testing Harmonia flag binding
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import "testing"

func TestInputsBinder(t *testing.T) {
	t.Run("defaults_without_flags", func(t *testing.T) {
		binder := NewInputsBinder("harmonia")
		if err := binder.Parse(nil); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		in := binder.Inputs()
		if !in.ManageService {
			t.Error("expected manage-service default true")
		}
		if !in.RestartOnChange {
			t.Error("expected restart-on-change default true")
		}
		if in.ServiceEnsure != EnsureRunning {
			t.Errorf("expected service-ensure 'running', got %q", in.ServiceEnsure)
		}
		if in.PrettyConfigIndent != 4 {
			t.Errorf("expected indent default 4, got %d", in.PrettyConfigIndent)
		}
		if in.PurgeConfigDir {
			t.Error("expected purge-config-dir default false")
		}
	})

	t.Run("flags_override_defaults", func(t *testing.T) {
		binder := NewInputsBinder("harmonia")
		err := binder.Parse([]string{
			"--restart-on-change=false",
			"--service-ensure", "stopped",
			"--purge-config-dir",
			"--pretty-config",
			"--pretty-config-indent", "2",
		})
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		in := binder.Inputs()
		if in.RestartOnChange {
			t.Error("expected restart-on-change false")
		}
		if in.ServiceEnsure != EnsureStopped {
			t.Errorf("expected 'stopped', got %q", in.ServiceEnsure)
		}
		if !in.PurgeConfigDir || !in.PrettyConfig {
			t.Error("expected purge and pretty flags set")
		}
		if in.PrettyConfigIndent != 2 {
			t.Errorf("expected indent 2, got %d", in.PrettyConfigIndent)
		}
	})

	t.Run("parsed_inputs_validate", func(t *testing.T) {
		binder := NewInputsBinder("harmonia")
		if err := binder.Parse([]string{"--manage-user", "--extra-groups", "ops,adm"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		in := binder.Inputs().WithDefaults()
		result := in.ValidateDetailed()
		if !result.Valid {
			t.Errorf("bound inputs should validate: %v", result.Errors)
		}
		if len(in.ExtraGroups) != 2 {
			t.Errorf("expected 2 extra groups, got %v", in.ExtraGroups)
		}
	})

	t.Run("environment_override", func(t *testing.T) {
		t.Setenv("HARMONIA_RESTART_ON_CHANGE", "false")

		binder := NewInputsBinder("harmonia")
		if err := binder.Parse(nil); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if binder.Inputs().RestartOnChange {
			t.Error("expected environment to disable restart-on-change")
		}
	})

	t.Run("bound_flags_env_keys", func(t *testing.T) {
		binder := NewInputsBinder("harmonia")
		bound := binder.BoundFlags()

		if bound["restart-on-change"] != "HARMONIA_RESTART_ON_CHANGE" {
			t.Errorf("unexpected env key: %q", bound["restart-on-change"])
		}
		if bound["manage-user"] != "HARMONIA_MANAGE_USER" {
			t.Errorf("unexpected env key: %q", bound["manage-user"])
		}
		if len(bound) != 10 {
			t.Errorf("expected 10 bound flags, got %d", len(bound))
		}
	})
}
