// flags.go: Unified flag binding for Harmonia composition inputs
//
// Combines FlashFlags command-line parsing with HARMONIA_* environment
// variables so the scalar composition inputs (manage-service,
// restart-on-change, purge-config-dir, ...) can be supplied from the shell
// with defaults < environment < flags precedence.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"fmt"
	"strings"

	flashflags "github.com/agilira/flash-flags"
)

// InputsBinder binds the scalar composition inputs to command-line flags
// and environment variables. Tree and resource-map inputs are loaded
// separately (see LoadTree and LoadResourceMap).
type InputsBinder struct {
	flags   *flashflags.FlagSet
	appName string
}

// NewInputsBinder creates a binder with all scalar input flags registered
func NewInputsBinder(appName string) *InputsBinder {
	b := &InputsBinder{
		flags:   flashflags.New(appName),
		appName: appName,
	}

	b.flags.Bool("manage-user", false, "Create and manage the agent user")
	b.flags.Bool("manage-group", false, "Create and manage the agent group")
	b.flags.StringSlice("extra-groups", nil, "Additional groups for the agent user")
	b.flags.Bool("manage-service", true, "Register the agent with the service manager")
	b.flags.Bool("service-enable", true, "Enable the agent service at boot")
	b.flags.String("service-ensure", EnsureRunning, "Desired service state (running|stopped)")
	b.flags.Bool("purge-config-dir", false, "Remove unmanaged files from the config directory")
	b.flags.Bool("restart-on-change", true, "Restart the agent when the rendered config changes")
	b.flags.Bool("pretty-config", false, "Render the configuration human-readably")
	b.flags.Int("pretty-config-indent", 4, "Indent width for pretty configuration output")

	// Environment variables use the APPNAME_FLAG_NAME convention,
	// e.g. HARMONIA_RESTART_ON_CHANGE=false
	b.flags.SetEnvPrefix(strings.ToUpper(appName))

	return b
}

// SetDescription sets the application description for help text
func (b *InputsBinder) SetDescription(description string) *InputsBinder {
	b.flags.SetDescription(description)
	return b
}

// SetVersion sets the application version for help text
func (b *InputsBinder) SetVersion(version string) *InputsBinder {
	b.flags.SetVersion(version)
	return b
}

// Parse parses command-line arguments and applies environment overrides
func (b *InputsBinder) Parse(args []string) error {
	if err := b.flags.Parse(args); err != nil {
		return fmt.Errorf("failed to parse command-line flags: %w", err)
	}
	return nil
}

// Inputs materializes the bound scalar values into an Inputs struct.
// Tree and resource-map fields are left empty for the caller to fill.
func (b *InputsBinder) Inputs() *Inputs {
	return &Inputs{
		ManageUser:         b.flags.GetBool("manage-user"),
		ManageGroup:        b.flags.GetBool("manage-group"),
		ExtraGroups:        b.flags.GetStringSlice("extra-groups"),
		ManageService:      b.flags.GetBool("manage-service"),
		ServiceEnable:      b.flags.GetBool("service-enable"),
		ServiceEnsure:      b.flags.GetString("service-ensure"),
		PurgeConfigDir:     b.flags.GetBool("purge-config-dir"),
		RestartOnChange:    b.flags.GetBool("restart-on-change"),
		PrettyConfig:       b.flags.GetBool("pretty-config"),
		PrettyConfigIndent: b.flags.GetInt("pretty-config-indent"),
	}
}

// PrintUsage prints help information for all flags
func (b *InputsBinder) PrintUsage() {
	b.flags.PrintHelp()
}

// BoundFlags returns the registered flag names and their environment keys
func (b *InputsBinder) BoundFlags() map[string]string {
	result := make(map[string]string)
	b.flags.VisitAll(func(flag *flashflags.Flag) {
		name := flag.Name()
		result[name] = b.flagToEnvKey(name)
	})
	return result
}

// flagToEnvKey converts "restart-on-change" to "HARMONIA_RESTART_ON_CHANGE"
func (b *InputsBinder) flagToEnvKey(flagName string) string {
	return strings.ToUpper(b.appName + "_" + strings.ReplaceAll(flagName, "-", "_"))
}
