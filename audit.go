// audit.go: Audit trail system for Harmonia composition and lifecycle
//
// Every composition pass and lifecycle stage transition is auditable,
// ensuring accountability for configuration changes that end up driving a
// running service agent.
//
// Features:
// - Immutable audit logs with tamper detection
// - Structured events with per-component context
// - Buffered writes with background flushing
// - Pluggable storage backends (SQLite unified, JSONL fallback)
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
	AuditSecurity
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	case AuditSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// AuditEvent represents a single auditable event
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	Level       AuditLevel             `json:"level"`
	Event       string                 `json:"event"`
	Component   string                 `json:"component"`
	TargetPath  string                 `json:"target_path,omitempty"`
	OldValue    interface{}            `json:"old_value,omitempty"`
	NewValue    interface{}            `json:"new_value,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Checksum    string                 `json:"checksum"` // For tamper detection
}

// AuditConfig configures the audit system
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
}

// DefaultAuditConfig returns secure default audit configuration with unified
// SQLite storage. An empty OutputFile selects the system-wide SQLite audit
// database; a path with a .jsonl extension selects the JSONL backend.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
	}
}

// AuditLogger provides buffered audit logging with pluggable backends.
//
// The logger automatically selects the optimal storage backend (SQLite for
// unified system audit, JSONL for file-based deployments) while keeping the
// same public API. Events are buffered and flushed in the background for
// minimal impact on composition passes.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	processID   int
	processName string
}

// NewAuditLogger creates a new audit logger with automatic backend selection
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit backend: %w", err)
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: "harmonia",
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an audit event
func (al *AuditLogger) Log(level AuditLevel, event, component, targetPath string, oldVal, newVal interface{}, context map[string]interface{}) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	// Cached timestamp; audit precision does not need a syscall per event
	timestamp := timecache.CachedTime()

	auditEvent := AuditEvent{
		Timestamp:   timestamp,
		Level:       level,
		Event:       event,
		Component:   component,
		TargetPath:  targetPath,
		OldValue:    oldVal,
		NewValue:    newVal,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = al.generateChecksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // Ignore flush errors during buffering to maintain throughput
	}
	al.bufferMu.Unlock()
}

// LogConfigRender logs a rendered-configuration change (most common use case)
func (al *AuditLogger) LogConfigRender(targetPath string, changed bool, oldHash, newHash uint64) {
	al.Log(AuditCritical, "config_rendered", "renderer", targetPath,
		fmt.Sprintf("%016x", oldHash), fmt.Sprintf("%016x", newHash),
		map[string]interface{}{"changed": changed})
}

// LogCLICommand logs CLI command executions
func (al *AuditLogger) LogCLICommand(event, targetPath string) {
	al.Log(AuditInfo, event, "cli", targetPath, nil, nil, nil)
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Close gracefully shuts down the audit logger
func (al *AuditLogger) Close() error {
	close(al.stopCh)
	if al.flushTicker != nil {
		al.flushTicker.Stop()
	}

	if err := al.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit logger during close: %w", err)
	}

	if al.backend != nil {
		if err := al.backend.Close(); err != nil {
			return fmt.Errorf("failed to close audit backend: %w", err)
		}
	}
	return nil
}

// flushLoop runs the background flush process
func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush() // Background flush errors must not disturb composition
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to backend storage (caller holds bufferMu)
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return fmt.Errorf("failed to write audit events to backend: %w", err)
	}
	al.buffer = al.buffer[:0]
	return nil
}

// generateChecksum creates a tamper-detection checksum using SHA-256
func (al *AuditLogger) generateChecksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%v:%v",
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.Component, event.OldValue, event.NewValue)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
