// utils.go: Shared utilities for Harmonia CLI handlers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agilira/go-errors"
	"github.com/agilira/harmonia"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// inputsFromContext builds composition Inputs from positional arguments
// and resource map flags. The first argument is the defaults tree, the
// optional second argument the overrides tree. Returns the defaults path
// for audit trailing.
func (m *Manager) inputsFromContext(ctx *orpheus.Context) (harmonia.Inputs, string, error) {
	var in harmonia.Inputs

	defaultsPath := ctx.GetArg(0)
	if defaultsPath == "" {
		return in, "", errors.New(harmonia.ErrCodeInvalidInput, "defaults file required")
	}

	defaults, err := harmonia.LoadTree(defaultsPath)
	if err != nil {
		return in, defaultsPath, err
	}
	in.ConfigDefaults = defaults

	if overridesPath := ctx.GetArg(1); overridesPath != "" {
		overrides, err := harmonia.LoadTree(overridesPath)
		if err != nil {
			return in, defaultsPath, err
		}
		in.ConfigHash = overrides
	}

	resourceFlags := []struct {
		name string
		dest *map[string]harmonia.RawResource
	}{
		{"services", &in.Services},
		{"checks", &in.Checks},
		{"watches", &in.Watches},
		{"acls", &in.ACLs},
	}
	for _, rf := range resourceFlags {
		path := ctx.GetFlagString(rf.name)
		if path == "" {
			continue
		}
		raw, err := harmonia.LoadResourceMap(path)
		if err != nil {
			return in, defaultsPath, err
		}
		*rf.dest = raw
	}

	return in, defaultsPath, nil
}

// compose runs the composition pipeline for the given inputs, honoring
// the --os and --version flags when the command declares them.
func (m *Manager) compose(ctx *orpheus.Context, in harmonia.Inputs) (*harmonia.EffectiveConfig, error) {
	opts, err := harmonia.LoadOptionsFromEnv()
	if err != nil {
		return nil, err
	}
	opts.Audit.Enabled = false // CLI audits through the shared logger

	if version := ctx.GetFlagString("version"); version != "" {
		opts.Version = version
	}
	if osID := ctx.GetFlagString("os"); osID != "" {
		opts.Environment = harmonia.StaticEnvironment{
			Platform:     osID,
			Architecture: opts.Environment.Arch(),
			Loopback:     opts.Environment.LoopbackAddress(),
		}
	}

	composer, err := harmonia.NewComposer(*opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = composer.Close() }()

	return composer.Compose(&in)
}

// auditLog records a CLI operation when audit is enabled
func (m *Manager) auditLog(event, targetPath string) {
	if m.auditLogger != nil {
		m.auditLogger.LogCLICommand(event, targetPath)
	}
}

// parseKind maps a --kind flag value to a ResourceKind
func parseKind(s string) (harmonia.ResourceKind, error) {
	switch s {
	case "service":
		return harmonia.KindService, nil
	case "check":
		return harmonia.KindCheck, nil
	case "watch":
		return harmonia.KindWatch, nil
	case "acl":
		return harmonia.KindACL, nil
	default:
		return 0, errors.New(harmonia.ErrCodeInvalidInput,
			fmt.Sprintf("unknown resource kind: %s", s))
	}
}

// printWarnings writes policy warnings to stderr
func printWarnings(warnings []harmonia.PolicyWarning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Field, w.Message)
	}
}

// printJSON pretty-prints a value as indented JSON to stdout
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, harmonia.ErrCodeSerialization, "failed to encode output")
	}
	fmt.Println(string(data))
	return nil
}
