// env_config.go: Environment variable support for Harmonia composer options
//
// Container deployments configure the composer itself through HARMONIA_*
// environment variables: agent version, audit behavior, and an explicit
// bind-address override consulted ahead of the platform loopback fallback.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// Environment variable names consumed by LoadOptionsFromEnv
const (
	envVersion            = "HARMONIA_VERSION"
	envBindAddress        = "HARMONIA_BIND_ADDRESS"
	envAuditEnabled       = "HARMONIA_AUDIT_ENABLED"
	envAuditOutputFile    = "HARMONIA_AUDIT_OUTPUT_FILE"
	envAuditMinLevel      = "HARMONIA_AUDIT_MIN_LEVEL"
	envAuditBufferSize    = "HARMONIA_AUDIT_BUFFER_SIZE"
	envAuditFlushInterval = "HARMONIA_AUDIT_FLUSH_INTERVAL"
)

// LoadOptionsFromEnv builds composer options from HARMONIA_* environment
// variables, starting from the built-in defaults. Unset variables keep
// their defaults; malformed values are an error rather than a silent skip.
func LoadOptionsFromEnv() (*Options, error) {
	opts := (&Options{}).WithDefaults()

	if version := os.Getenv(envVersion); version != "" {
		opts.Version = version
	}

	// An explicit bind address takes the place of the loopback fallback in
	// the RPC address derivation chain. Explicit tree keys still win.
	if addr := os.Getenv(envBindAddress); addr != "" {
		opts.Environment = overrideLoopback{
			Environment: opts.Environment,
			address:     addr,
		}
	}

	if err := loadAuditEnv(&opts.Audit); err != nil {
		return nil, err
	}

	return opts, nil
}

// loadAuditEnv applies audit-related environment variables
func loadAuditEnv(audit *AuditConfig) error {
	if enabled := os.Getenv(envAuditEnabled); enabled != "" {
		value, err := strconv.ParseBool(enabled)
		if err != nil {
			return errors.New(ErrCodeInvalidAudit, "invalid "+envAuditEnabled+" format")
		}
		audit.Enabled = value
	}

	if outputFile := os.Getenv(envAuditOutputFile); outputFile != "" {
		audit.OutputFile = outputFile
	}

	if minLevel := os.Getenv(envAuditMinLevel); minLevel != "" {
		level, err := parseAuditLevel(minLevel)
		if err != nil {
			return err
		}
		audit.MinLevel = level
	}

	if bufferSize := os.Getenv(envAuditBufferSize); bufferSize != "" {
		size, err := strconv.Atoi(bufferSize)
		if err != nil || size <= 0 {
			return errors.New(ErrCodeInvalidAudit, "invalid "+envAuditBufferSize+" format")
		}
		audit.BufferSize = size
	}

	if flushInterval := os.Getenv(envAuditFlushInterval); flushInterval != "" {
		interval, err := time.ParseDuration(flushInterval)
		if err != nil || interval <= 0 {
			return errors.New(ErrCodeInvalidAudit, "invalid "+envAuditFlushInterval+" format")
		}
		audit.FlushInterval = interval
	}

	return nil
}

// parseAuditLevel converts a level name into an AuditLevel
func parseAuditLevel(name string) (AuditLevel, error) {
	switch strings.ToUpper(name) {
	case "INFO":
		return AuditInfo, nil
	case "WARN":
		return AuditWarn, nil
	case "CRITICAL":
		return AuditCritical, nil
	case "SECURITY":
		return AuditSecurity, nil
	default:
		return AuditInfo, errors.New(ErrCodeInvalidAudit,
			"invalid audit level: "+name+" (expected INFO, WARN, CRITICAL or SECURITY)")
	}
}

// overrideLoopback wraps an Environment and substitutes an explicit address
// for the loopback fallback.
type overrideLoopback struct {
	Environment
	address string
}

func (o overrideLoopback) LoopbackAddress() string { return o.address }
