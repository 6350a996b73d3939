// Harmonia CLI - Declarative configuration composer
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/agilira/harmonia"
	"github.com/agilira/harmonia/cmd/cli"
)

func main() {
	manager := cli.NewManager()

	// Audit every CLI invocation through the unified trail when the
	// environment enables it.
	if opts, err := harmonia.LoadOptionsFromEnv(); err == nil && opts.Audit.Enabled {
		if logger, err := harmonia.NewAuditLogger(opts.Audit); err == nil {
			defer func() { _ = logger.Close() }()
			manager = manager.WithAudit(logger)
		}
	}

	if err := manager.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
