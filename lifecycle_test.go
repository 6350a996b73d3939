// lifecycle_test.go: Testing Harmonia lifecycle orchestration
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"fmt"
	"strings"
	"testing"
)

// recordingCollaborators captures every collaborator call in order and can
// fail on demand at any stage.
type recordingCollaborators struct {
	calls       []string
	renderValue bool
	failAt      string
}

func (r *recordingCollaborators) record(call string) error {
	r.calls = append(r.calls, call)
	if r.failAt == call {
		return fmt.Errorf("simulated %s failure", call)
	}
	return nil
}

func (r *recordingCollaborators) Install(InstallCoordinates) error {
	return r.record("install")
}

func (r *recordingCollaborators) Render(*EffectiveConfig, bool) (bool, error) {
	return r.renderValue, r.record("render")
}

func (r *recordingCollaborators) Ensure(enabled, running bool) error {
	return r.record(fmt.Sprintf("ensure(%t,%t)", enabled, running))
}

func (r *recordingCollaborators) Restart() error {
	return r.record("restart")
}

func (r *recordingCollaborators) Arm([]ResourceDeclaration, []ResourceDeclaration) error {
	return r.record("arm")
}

func (r *recordingCollaborators) bundle() Collaborators {
	return Collaborators{Installer: r, Renderer: r, Service: r, Reloader: r}
}

func lifecycleConfig(in *Inputs) *EffectiveConfig {
	return &EffectiveConfig{
		Tree:      ConfigTree{},
		Resources: &ResourceSet{},
		Inputs:    in.WithDefaults(),
	}
}

func TestOrchestratorStageOrder(t *testing.T) {
	t.Run("full_pass_in_fixed_order", func(t *testing.T) {
		rec := &recordingCollaborators{}
		orch, err := NewOrchestrator(lifecycleConfig(&Inputs{ServiceEnable: true}), rec.bundle())
		if err != nil {
			t.Fatalf("NewOrchestrator failed: %v", err)
		}

		if err := orch.Run(); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if !orch.Done() {
			t.Error("orchestrator should report done")
		}

		expected := []string{"install", "render", "ensure(true,true)", "arm"}
		if len(rec.calls) != len(expected) {
			t.Fatalf("expected calls %v, got %v", expected, rec.calls)
		}
		for i := range expected {
			if rec.calls[i] != expected[i] {
				t.Fatalf("expected calls %v, got %v", expected, rec.calls)
			}
		}
	})

	t.Run("step_advances_one_stage", func(t *testing.T) {
		rec := &recordingCollaborators{}
		orch, _ := NewOrchestrator(lifecycleConfig(&Inputs{}), rec.bundle())

		if orch.Stage() != StageInstall {
			t.Errorf("expected initial stage install, got %v", orch.Stage())
		}

		done, err := orch.Step()
		if err != nil || done {
			t.Fatalf("unexpected step result: done=%t err=%v", done, err)
		}
		if orch.Stage() != StageConfigure {
			t.Errorf("expected stage configure after one step, got %v", orch.Stage())
		}
	})

	t.Run("step_after_done_errors", func(t *testing.T) {
		rec := &recordingCollaborators{}
		orch, _ := NewOrchestrator(lifecycleConfig(&Inputs{}), rec.bundle())

		if err := orch.Run(); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if _, err := orch.Step(); err == nil {
			t.Fatal("expected error stepping a finished orchestrator")
		}
	})
}

func TestOrchestratorRestartGating(t *testing.T) {
	cases := []struct {
		name            string
		changed         bool
		restartOnChange bool
		wantNotify      bool
	}{
		{"changed_and_enabled_restarts", true, true, true},
		{"changed_but_disabled_skips", true, false, false},
		{"unchanged_and_enabled_skips", false, true, false},
		{"unchanged_and_disabled_skips", false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recordingCollaborators{renderValue: tc.changed}
			cfg := lifecycleConfig(&Inputs{RestartOnChange: tc.restartOnChange})
			orch, _ := NewOrchestrator(cfg, rec.bundle())

			if err := orch.Run(); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if orch.Notify() != tc.wantNotify {
				t.Errorf("expected notify=%t, got %t", tc.wantNotify, orch.Notify())
			}

			restarted := false
			for _, call := range rec.calls {
				if call == "restart" {
					restarted = true
				}
			}
			if restarted != tc.wantNotify {
				t.Errorf("expected restart=%t, calls: %v", tc.wantNotify, rec.calls)
			}
		})
	}
}

func TestOrchestratorServiceState(t *testing.T) {
	t.Run("stopped_service_not_running", func(t *testing.T) {
		rec := &recordingCollaborators{}
		cfg := lifecycleConfig(&Inputs{ServiceEnable: true, ServiceEnsure: EnsureStopped})
		orch, _ := NewOrchestrator(cfg, rec.bundle())

		if err := orch.Run(); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		found := false
		for _, call := range rec.calls {
			if call == "ensure(true,false)" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected ensure(true,false) call, got %v", rec.calls)
		}
	})
}

func TestOrchestratorFailures(t *testing.T) {
	t.Run("failure_tagged_with_stage_name", func(t *testing.T) {
		rec := &recordingCollaborators{failAt: "render"}
		orch, _ := NewOrchestrator(lifecycleConfig(&Inputs{}), rec.bundle())

		err := orch.Run()
		if err == nil {
			t.Fatal("expected error from failing render")
		}
		if !strings.Contains(err.Error(), "configure") {
			t.Errorf("error should name the configure stage: %v", err)
		}
		if orch.Stage() != StageConfigure {
			t.Errorf("failed stage should remain visible, got %v", orch.Stage())
		}
	})

	t.Run("no_stage_runs_after_failure", func(t *testing.T) {
		rec := &recordingCollaborators{failAt: "install"}
		orch, _ := NewOrchestrator(lifecycleConfig(&Inputs{}), rec.bundle())

		if err := orch.Run(); err == nil {
			t.Fatal("expected error")
		}
		if len(rec.calls) != 1 {
			t.Errorf("expected only the install call, got %v", rec.calls)
		}

		// A stopped orchestrator refuses further steps
		if _, err := orch.Step(); err == nil {
			t.Fatal("expected error stepping a stopped orchestrator")
		}
	})

	t.Run("restart_failure_fails_run_stage", func(t *testing.T) {
		rec := &recordingCollaborators{renderValue: true, failAt: "restart"}
		cfg := lifecycleConfig(&Inputs{RestartOnChange: true})
		orch, _ := NewOrchestrator(cfg, rec.bundle())

		err := orch.Run()
		if err == nil {
			t.Fatal("expected error from failing restart")
		}
		if !strings.Contains(err.Error(), "run") {
			t.Errorf("error should name the run stage: %v", err)
		}
	})
}

func TestNewOrchestratorValidation(t *testing.T) {
	t.Run("nil_config_rejected", func(t *testing.T) {
		rec := &recordingCollaborators{}
		if _, err := NewOrchestrator(nil, rec.bundle()); err == nil {
			t.Fatal("expected error for nil config")
		}
	})

	t.Run("missing_collaborator_rejected", func(t *testing.T) {
		rec := &recordingCollaborators{}
		collab := rec.bundle()
		collab.Service = nil
		if _, err := NewOrchestrator(lifecycleConfig(&Inputs{}), collab); err == nil {
			t.Fatal("expected error for missing service collaborator")
		}
	})
}

func TestStageString(t *testing.T) {
	cases := map[Stage]string{
		StageInstall:   "install",
		StageConfigure: "configure",
		StageRun:       "run",
		StageReload:    "reload",
		Stage(42):      "unknown",
	}
	for stage, expected := range cases {
		if stage.String() != expected {
			t.Errorf("expected %q, got %q", expected, stage.String())
		}
	}
}

func TestNopCollaborators(t *testing.T) {
	t.Run("full_pass_with_nops", func(t *testing.T) {
		renderer, err := NewFileRenderer(t.TempDir() + "/agent.json")
		if err != nil {
			t.Fatalf("NewFileRenderer failed: %v", err)
		}

		orch, err := NewOrchestrator(lifecycleConfig(&Inputs{}), Collaborators{
			Installer: NopInstaller{},
			Renderer:  renderer,
			Service:   NopServiceManager{},
			Reloader:  NopReloader{},
		})
		if err != nil {
			t.Fatalf("NewOrchestrator failed: %v", err)
		}
		if err := orch.Run(); err != nil {
			t.Fatalf("Run with nop collaborators failed: %v", err)
		}
	})
}
