// lifecycle.go: Lifecycle orchestration state machine for Harmonia
//
// The orchestrator is an explicit finite-state machine over the four fixed
// stages Install -> Configure -> Run -> Reload. The restart notification is
// first-class state computed at the Configure stage and consumed at the Run
// stage, which makes the restart-on-change gating testable in isolation from
// any collaborator.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"fmt"

	"github.com/agilira/go-errors"
)

// Stage is one step of the fixed lifecycle order
type Stage int

const (
	StageInstall Stage = iota
	StageConfigure
	StageRun
	StageReload
)

func (s Stage) String() string {
	switch s {
	case StageInstall:
		return "install"
	case StageConfigure:
		return "configure"
	case StageRun:
		return "run"
	case StageReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Installer is the collaborator that installs the agent package or binary.
// The core selects and forwards the coordinates; installation mechanics
// (package manager, download, extraction) live behind this interface.
type Installer interface {
	Install(coords InstallCoordinates) error
}

// ConfigRenderer is the collaborator that persists the effective
// configuration. It reports whether the rendered configuration differed
// from the previously persisted one.
type ConfigRenderer interface {
	Render(cfg *EffectiveConfig, purgeConfigDir bool) (changed bool, err error)
}

// ServiceManager is the collaborator that drives the agent service.
// Ensure reconciles the service with the desired state; Restart is invoked
// only when the restart notification fires.
type ServiceManager interface {
	Ensure(enabled bool, running bool) error
	Restart() error
}

// ReloadArmer is the collaborator that reacts to live watch and check
// configuration changes, independent of the restart-on-change path.
type ReloadArmer interface {
	Arm(watches, checks []ResourceDeclaration) error
}

// Collaborators bundles the four external collaborators driven by the
// lifecycle stages. All fields are required.
type Collaborators struct {
	Installer Installer
	Renderer  ConfigRenderer
	Service   ServiceManager
	Reloader  ReloadArmer
}

func (c Collaborators) validate() error {
	switch {
	case c.Installer == nil:
		return errors.New(ErrCodeInvalidInput, "lifecycle requires an Installer collaborator")
	case c.Renderer == nil:
		return errors.New(ErrCodeInvalidInput, "lifecycle requires a Renderer collaborator")
	case c.Service == nil:
		return errors.New(ErrCodeInvalidInput, "lifecycle requires a Service collaborator")
	case c.Reloader == nil:
		return errors.New(ErrCodeInvalidInput, "lifecycle requires a Reloader collaborator")
	}
	return nil
}

// Orchestrator sequences the lifecycle stages for one effective
// configuration. The stage order is strictly linear with no branching and no
// cycles; a collaborator failure is fatal to the pass and is propagated
// tagged with the stage name, with no retry and no rollback of earlier
// stages. An Orchestrator drives exactly one pass and is not reusable.
type Orchestrator struct {
	cfg     *EffectiveConfig
	collab  Collaborators
	audit   *AuditLogger
	stage   Stage
	notify  bool
	done    bool
	stopped bool
}

// NewOrchestrator creates an orchestrator for one composition pass.
// The effective configuration is owned by the orchestrator until the pass
// completes and must not be mutated by the caller.
func NewOrchestrator(cfg *EffectiveConfig, collab Collaborators) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New(ErrCodeInvalidInput, "effective configuration must not be nil")
	}
	if err := collab.validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:    cfg,
		collab: collab,
		stage:  StageInstall,
	}, nil
}

// WithAudit enables audit logging of stage transitions
func (o *Orchestrator) WithAudit(logger *AuditLogger) *Orchestrator {
	o.audit = logger
	return o
}

// Stage returns the stage the orchestrator will execute next, or the stage
// that failed once the orchestrator has stopped.
func (o *Orchestrator) Stage() Stage { return o.stage }

// Notify reports the restart notification computed by the Configure stage
func (o *Orchestrator) Notify() bool { return o.notify }

// Done reports whether the terminal Reload stage has completed
func (o *Orchestrator) Done() bool { return o.done }

// Step executes the current stage and advances to the next one.
// It returns true once the terminal stage has completed. A stage failure
// stops the orchestrator permanently; the failed stage remains visible via
// Stage().
func (o *Orchestrator) Step() (bool, error) {
	if o.done || o.stopped {
		return o.done, errors.New(ErrCodeStageFailed,
			fmt.Sprintf("lifecycle already finished at stage '%s'", o.stage))
	}

	if err := o.execute(o.stage); err != nil {
		o.stopped = true
		o.auditStage(AuditCritical, "stage_failed", map[string]interface{}{
			"stage": o.stage.String(),
			"error": err.Error(),
		})
		return false, errors.Wrap(err, ErrCodeStageFailed,
			fmt.Sprintf("lifecycle stage '%s' failed", o.stage))
	}

	o.auditStage(AuditInfo, "stage_completed", map[string]interface{}{
		"stage":  o.stage.String(),
		"notify": o.notify,
	})

	if o.stage == StageReload {
		o.done = true
		return true, nil
	}
	o.stage++
	return false, nil
}

// Run drives the state machine to completion
func (o *Orchestrator) Run() error {
	for {
		done, err := o.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// execute invokes the collaborator for one stage. Each call blocks until the
// collaborator reports success or failure; no stage is skipped or reordered
// under any configuration.
func (o *Orchestrator) execute(stage Stage) error {
	in := o.cfg.Inputs
	switch stage {
	case StageInstall:
		return o.collab.Installer.Install(o.cfg.Install)

	case StageConfigure:
		changed, err := o.collab.Renderer.Render(o.cfg, in.PurgeConfigDir)
		if err != nil {
			return err
		}
		// The notification fires only when both the configuration changed
		// and the restart-on-change policy is enabled.
		o.notify = changed && in.RestartOnChange
		return nil

	case StageRun:
		if err := o.collab.Service.Ensure(in.ServiceEnable, in.ServiceEnsure == EnsureRunning); err != nil {
			return err
		}
		if o.notify {
			return o.collab.Service.Restart()
		}
		return nil

	case StageReload:
		return o.collab.Reloader.Arm(o.cfg.Resources.Watches, o.cfg.Resources.Checks)

	default:
		return errors.New(ErrCodeStageFailed, fmt.Sprintf("unknown stage %d", int(stage)))
	}
}

func (o *Orchestrator) auditStage(level AuditLevel, event string, context map[string]interface{}) {
	if o.audit != nil {
		o.audit.Log(level, event, "lifecycle", "", nil, nil, context)
	}
}

// NopInstaller is an Installer that performs no installation. It stands in
// for the platform package collaborator in dry runs and tests.
type NopInstaller struct{}

// Install implements Installer
func (NopInstaller) Install(InstallCoordinates) error { return nil }

// NopServiceManager is a ServiceManager that accepts every desired state
// without touching any service.
type NopServiceManager struct{}

// Ensure implements ServiceManager
func (NopServiceManager) Ensure(bool, bool) error { return nil }

// Restart implements ServiceManager
func (NopServiceManager) Restart() error { return nil }

// NopReloader is a ReloadArmer that arms nothing
type NopReloader struct{}

// Arm implements ReloadArmer
func (NopReloader) Arm([]ResourceDeclaration, []ResourceDeclaration) error { return nil }
