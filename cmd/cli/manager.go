// Package cli provides the command-line interface for Harmonia configuration
// composition.
//
// This package implements the CLI using the Orpheus framework, providing
// git-style subcommands for composing, validating, and applying declarative
// agent configuration.
//
// Architecture:
// - Manager: Core CLI orchestration and command routing
// - Handlers: Individual command implementations
// - Utils: Shared utilities for tree loading and output formatting
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"github.com/agilira/harmonia"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Manager provides CLI operations for Harmonia configuration composition.
// Built on top of the Orpheus framework for fast command routing.
type Manager struct {
	app         *orpheus.App
	auditLogger *harmonia.AuditLogger // Optional audit integration
}

// NewManager creates a new CLI manager powered by Orpheus.
// Provides git-style subcommands with full audit integration.
func NewManager() *Manager {
	app := orpheus.New("harmonia").
		SetDescription("Declarative configuration composer for clustered service agents").
		SetVersion("1.0.0")

	manager := &Manager{
		app: app,
	}

	manager.setupComposeCommands()
	manager.setupApplyCommand()
	manager.setupResourceCommands()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit enables audit logging for all CLI operations
func (m *Manager) WithAudit(auditLogger *harmonia.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// Run executes the CLI application with the provided arguments
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// Command Setup Methods

// setupComposeCommands configures the 'compose' command group.
// Provides validate, inspect, and render functionality.
func (m *Manager) setupComposeCommands() {
	composeCmd := orpheus.NewCommand("compose", "Configuration composition operations")

	// compose validate <defaults-file> [overrides-file]
	validateCmd := composeCmd.Subcommand("validate", "Validate composition inputs", m.handleComposeValidate)
	addResourceFlags(validateCmd)

	// compose inspect <defaults-file> [overrides-file]
	inspectCmd := composeCmd.Subcommand("inspect", "Print the effective configuration", m.handleComposeInspect)
	addResourceFlags(inspectCmd)
	inspectCmd.AddFlag("os", "", "", "Target OS identifier (default: local)")
	inspectCmd.AddFlag("version", "", "", "Agent version for install coordinates")

	// compose render <defaults-file> [overrides-file] --out=<file>
	renderCmd := composeCmd.Subcommand("render", "Render the effective configuration to a file", m.handleComposeRender)
	addResourceFlags(renderCmd)
	renderCmd.AddFlag("os", "", "", "Target OS identifier (default: local)")
	renderCmd.AddFlag("version", "", "", "Agent version for install coordinates")
	renderCmd.AddFlag("out", "o", "", "Output file path (json|yaml by extension)")
	renderCmd.AddBoolFlag("pretty", "p", false, "Pretty-print the rendered configuration")
	renderCmd.AddIntFlag("indent", "i", 4, "Indent width for pretty output")
	renderCmd.AddBoolFlag("purge", "", false, "Purge unmanaged files from the output directory")

	m.app.AddCommand(composeCmd)
}

// addResourceFlags registers the four resource-map file flags shared by the
// compose and apply commands.
func addResourceFlags(cmd *orpheus.Command) {
	cmd.AddFlag("services", "s", "", "Services resource map file")
	cmd.AddFlag("checks", "c", "", "Checks resource map file")
	cmd.AddFlag("watches", "w", "", "Watches resource map file")
	cmd.AddFlag("acls", "a", "", "ACLs resource map file")
}

// setupApplyCommand configures the 'apply' command driving the full
// lifecycle over the rendered configuration.
func (m *Manager) setupApplyCommand() {
	applyCmd := orpheus.NewCommand("apply", "Compose and drive the agent lifecycle").
		SetHandler(m.handleApply)
	addResourceFlags(applyCmd)
	applyCmd.AddFlag("out", "o", "", "Rendered configuration file path")
	applyCmd.AddFlag("os", "", "", "Target OS identifier (default: local)")
	applyCmd.AddFlag("version", "", "", "Agent version for install coordinates")
	applyCmd.AddBoolFlag("restart-on-change", "", true, "Restart the agent when the rendered config changes")
	applyCmd.AddBoolFlag("purge", "", false, "Purge unmanaged files from the config directory")
	applyCmd.AddBoolFlag("pretty", "p", false, "Pretty-print the rendered configuration")
	applyCmd.AddIntFlag("indent", "i", 4, "Indent width for pretty output")

	m.app.AddCommand(applyCmd)
}

// setupResourceCommands configures the 'resources' command group
func (m *Manager) setupResourceCommands() {
	resourcesCmd := orpheus.NewCommand("resources", "Resource map operations")

	// resources list <file> --kind=service
	listCmd := resourcesCmd.Subcommand("list", "Expand and list a resource map", m.handleResourcesList)
	listCmd.AddFlag("kind", "k", "service", "Resource kind (service|check|watch|acl)")

	m.app.AddCommand(resourcesCmd)
}

// setupUtilityCommands configures platform info and diagnostics
func (m *Manager) setupUtilityCommands() {
	infoCmd := orpheus.NewCommand("info", "Platform defaults and diagnostics").
		SetHandler(m.handleInfo)
	infoCmd.AddFlag("os", "", "", "Target OS identifier (default: local)")
	m.app.AddCommand(infoCmd)
}
