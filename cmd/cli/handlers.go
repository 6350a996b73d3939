// handlers.go: Command handlers for Harmonia CLI operations
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"runtime"

	"github.com/agilira/go-errors"
	"github.com/agilira/harmonia"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Compose Command Handlers

// handleComposeValidate validates composition inputs without composing.
// Reports every validation error and policy warning it finds.
func (m *Manager) handleComposeValidate(ctx *orpheus.Context) error {
	in, defaultsPath, err := m.inputsFromContext(ctx)
	if err != nil {
		return err
	}

	m.auditLog("cli_compose_validate", defaultsPath)

	result := in.WithDefaults().ValidateDetailed()
	if result.Valid {
		fmt.Printf("✓ Inputs are valid\n")
	} else {
		fmt.Printf("✗ Inputs are invalid (%d errors)\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  error: %v\n", e)
		}
	}
	for _, w := range result.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}

	if !result.Valid {
		return errors.New(harmonia.ErrCodeInvalidInput, "inputs failed validation")
	}
	return nil
}

// handleComposeInspect composes the effective configuration and prints it
func (m *Manager) handleComposeInspect(ctx *orpheus.Context) error {
	in, defaultsPath, err := m.inputsFromContext(ctx)
	if err != nil {
		return err
	}

	m.auditLog("cli_compose_inspect", defaultsPath)

	cfg, err := m.compose(ctx, in)
	if err != nil {
		return err
	}

	printWarnings(cfg.Warnings)
	return printJSON(cfg)
}

// handleComposeRender composes and writes the effective configuration
// to the file named by --out.
func (m *Manager) handleComposeRender(ctx *orpheus.Context) error {
	outPath := ctx.GetFlagString("out")
	if outPath == "" {
		return errors.New(harmonia.ErrCodeInvalidInput, "--out is required")
	}

	in, defaultsPath, err := m.inputsFromContext(ctx)
	if err != nil {
		return err
	}
	in.PrettyConfig = ctx.GetFlagBool("pretty")
	in.PrettyConfigIndent = ctx.GetFlagInt("indent")

	m.auditLog("cli_compose_render", defaultsPath)

	cfg, err := m.compose(ctx, in)
	if err != nil {
		return err
	}

	renderer, err := harmonia.NewFileRenderer(outPath)
	if err != nil {
		return err
	}
	if m.auditLogger != nil {
		renderer = renderer.WithAudit(m.auditLogger)
	}

	changed, err := renderer.Render(cfg, ctx.GetFlagBool("purge"))
	if err != nil {
		return err
	}

	printWarnings(cfg.Warnings)
	if changed {
		fmt.Printf("✓ Configuration rendered to %s\n", outPath)
	} else {
		fmt.Printf("✓ Configuration unchanged: %s\n", outPath)
	}
	return nil
}

// Apply Command Handler

// handleApply composes the effective configuration and drives the
// install/configure/run/reload lifecycle over it. Install and service
// management are no-ops from the CLI; the configure stage renders for real.
func (m *Manager) handleApply(ctx *orpheus.Context) error {
	outPath := ctx.GetFlagString("out")
	if outPath == "" {
		return errors.New(harmonia.ErrCodeInvalidInput, "--out is required")
	}

	in, defaultsPath, err := m.inputsFromContext(ctx)
	if err != nil {
		return err
	}
	in.RestartOnChange = ctx.GetFlagBool("restart-on-change")
	in.PurgeConfigDir = ctx.GetFlagBool("purge")
	in.PrettyConfig = ctx.GetFlagBool("pretty")
	in.PrettyConfigIndent = ctx.GetFlagInt("indent")

	m.auditLog("cli_apply", defaultsPath)

	cfg, err := m.compose(ctx, in)
	if err != nil {
		return err
	}
	printWarnings(cfg.Warnings)

	renderer, err := harmonia.NewFileRenderer(outPath)
	if err != nil {
		return err
	}
	if m.auditLogger != nil {
		renderer = renderer.WithAudit(m.auditLogger)
	}

	orch, err := harmonia.NewOrchestrator(cfg, harmonia.Collaborators{
		Installer: harmonia.NopInstaller{},
		Renderer:  renderer,
		Service:   harmonia.NopServiceManager{},
		Reloader:  harmonia.NopReloader{},
	})
	if err != nil {
		return err
	}
	if m.auditLogger != nil {
		orch = orch.WithAudit(m.auditLogger)
	}

	if err := orch.Run(); err != nil {
		return err
	}

	if orch.Notify() {
		fmt.Printf("✓ Applied: configuration changed, agent restart requested\n")
	} else {
		fmt.Printf("✓ Applied: configuration up to date\n")
	}
	return nil
}

// Resource Command Handlers

// handleResourcesList expands a resource map file and lists the declarations
func (m *Manager) handleResourcesList(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if filePath == "" {
		return errors.New(harmonia.ErrCodeInvalidInput, "resource map file required")
	}

	kind, err := parseKind(ctx.GetFlagString("kind"))
	if err != nil {
		return err
	}

	m.auditLog("cli_resources_list", filePath)

	raw, err := harmonia.LoadResourceMap(filePath)
	if err != nil {
		return err
	}

	decls, err := harmonia.Expand(kind, raw)
	if err != nil {
		return err
	}

	fmt.Printf("%d %s declaration(s):\n", len(decls), kind)
	for _, d := range decls {
		fmt.Printf("  %s (%d fields)\n", d.Key, len(d.Fields))
	}
	return nil
}

// Utility Command Handlers

// handleInfo shows platform defaults and install coordinates
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	osID := ctx.GetFlagString("os")
	if osID == "" {
		osID = runtime.GOOS
	}

	platform, err := harmonia.ResolvePlatform(osID)
	if err != nil {
		return err
	}

	fmt.Printf("Harmonia - Declarative Configuration Composer\n\n")
	fmt.Printf("Platform:     %s\n", platform.OS)
	fmt.Printf("Package:      %s\n", platform.PackageName)
	fmt.Printf("Config dir:   %s\n", platform.ConfigDir)
	fmt.Printf("Data dir:     %s\n", platform.DataDir)
	fmt.Printf("Bin dir:      %s\n", platform.BinDir)
	fmt.Printf("Default RPC:  %d\n", harmonia.DefaultRPCPort)
	return nil
}
