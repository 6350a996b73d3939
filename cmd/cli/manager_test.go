// manager_test.go: Testing Harmonia CLI manager
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeCLIFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestNewManager(t *testing.T) {
	t.Run("manager_creation", func(t *testing.T) {
		manager := NewManager()
		if manager == nil {
			t.Fatal("NewManager should not return nil")
		}
		if manager.app == nil {
			t.Error("manager should have an orpheus app")
		}
	})

	t.Run("unknown_command_errors", func(t *testing.T) {
		manager := NewManager()
		if err := manager.Run([]string{"definitely-not-a-command"}); err == nil {
			t.Error("expected error for unknown command")
		}
	})
}

func TestComposeCommands(t *testing.T) {
	t.Run("validate_valid_inputs", func(t *testing.T) {
		dir := t.TempDir()
		defaults := writeCLIFile(t, dir, "defaults.json", `{"datacenter": "dc1"}`)

		manager := NewManager()
		if err := manager.Run([]string{"compose", "validate", defaults}); err != nil {
			t.Errorf("validate should succeed: %v", err)
		}
	})

	t.Run("validate_missing_defaults_file", func(t *testing.T) {
		manager := NewManager()
		err := manager.Run([]string{"compose", "validate", filepath.Join(t.TempDir(), "absent.json")})
		if err == nil {
			t.Error("expected error for missing defaults file")
		}
	})

	t.Run("validate_requires_defaults_argument", func(t *testing.T) {
		manager := NewManager()
		if err := manager.Run([]string{"compose", "validate"}); err == nil {
			t.Error("expected error without defaults argument")
		}
	})

	t.Run("render_writes_effective_config", func(t *testing.T) {
		dir := t.TempDir()
		defaults := writeCLIFile(t, dir, "defaults.json", `{"ports": {"rpc": 8400}}`)
		overrides := writeCLIFile(t, dir, "overrides.json", `{"ports": {"rpc": 8500}}`)
		out := filepath.Join(dir, "agent.json")

		manager := NewManager()
		err := manager.Run([]string{"compose", "render", defaults, overrides, "--out", out})
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}

		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("rendered file missing: %v", err)
		}
		var tree map[string]interface{}
		if err := json.Unmarshal(data, &tree); err != nil {
			t.Fatalf("rendered file is not JSON: %v", err)
		}
		ports := tree["ports"].(map[string]interface{})
		if ports["rpc"] != float64(8500) {
			t.Errorf("expected overridden port in output, got %v", ports["rpc"])
		}
	})

	t.Run("render_requires_out_flag", func(t *testing.T) {
		dir := t.TempDir()
		defaults := writeCLIFile(t, dir, "defaults.json", `{}`)

		manager := NewManager()
		if err := manager.Run([]string{"compose", "render", defaults}); err == nil {
			t.Error("expected error without --out")
		}
	})
}

func TestApplyCommand(t *testing.T) {
	t.Run("apply_renders_and_completes", func(t *testing.T) {
		dir := t.TempDir()
		defaults := writeCLIFile(t, dir, "defaults.json", `{"dataDir": "/data"}`)
		out := filepath.Join(dir, "agent.json")

		manager := NewManager()
		if err := manager.Run([]string{"apply", defaults, "--out", out}); err != nil {
			t.Fatalf("apply failed: %v", err)
		}

		if _, err := os.Stat(out); err != nil {
			t.Error("apply should have rendered the configuration file")
		}
	})

	t.Run("apply_requires_out_flag", func(t *testing.T) {
		dir := t.TempDir()
		defaults := writeCLIFile(t, dir, "defaults.json", `{}`)

		manager := NewManager()
		if err := manager.Run([]string{"apply", defaults}); err == nil {
			t.Error("expected error without --out")
		}
	})
}

func TestResourcesCommands(t *testing.T) {
	t.Run("list_services", func(t *testing.T) {
		dir := t.TempDir()
		services := writeCLIFile(t, dir, "services.json",
			`{"web": {"port": 8080, "tags": ["primary"]}}`)

		manager := NewManager()
		if err := manager.Run([]string{"resources", "list", services, "--kind", "service"}); err != nil {
			t.Errorf("list failed: %v", err)
		}
	})

	t.Run("list_rejects_invalid_resource", func(t *testing.T) {
		dir := t.TempDir()
		watches := writeCLIFile(t, dir, "watches.json", `{"broken": {"handler": "/bin/true"}}`)

		manager := NewManager()
		err := manager.Run([]string{"resources", "list", watches, "--kind", "watch"})
		if err == nil {
			t.Error("expected error for watch without type")
		}
	})

	t.Run("list_rejects_unknown_kind", func(t *testing.T) {
		dir := t.TempDir()
		file := writeCLIFile(t, dir, "things.json", `{}`)

		manager := NewManager()
		if err := manager.Run([]string{"resources", "list", file, "--kind", "gizmo"}); err == nil {
			t.Error("expected error for unknown kind")
		}
	})
}

func TestInfoCommand(t *testing.T) {
	t.Run("local_platform", func(t *testing.T) {
		manager := NewManager()
		if err := manager.Run([]string{"info"}); err != nil {
			t.Errorf("info failed: %v", err)
		}
	})

	t.Run("explicit_platform", func(t *testing.T) {
		manager := NewManager()
		if err := manager.Run([]string{"info", "--os", "freebsd"}); err != nil {
			t.Errorf("info --os freebsd failed: %v", err)
		}
	})

	t.Run("unknown_platform", func(t *testing.T) {
		manager := NewManager()
		if err := manager.Run([]string{"info", "--os", "plan9"}); err == nil {
			t.Error("expected error for unknown platform")
		}
	})
}

func TestParseKind(t *testing.T) {
	valid := map[string]struct{}{"service": {}, "check": {}, "watch": {}, "acl": {}}
	for name := range valid {
		if _, err := parseKind(name); err != nil {
			t.Errorf("parseKind(%q) failed: %v", name, err)
		}
	}
	if _, err := parseKind("node"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
