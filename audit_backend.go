// audit_backend.go: Storage backends for the Harmonia audit system
//
// The backend interface abstracts audit storage so deployments can choose
// between a unified SQLite database (queryable, cross-process) and JSONL
// files (grep-able, shippable to log aggregators) without changing the
// public API. Backend selection degrades gracefully: SQLite first, JSONL
// fallback, error only when both fail.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend defines the interface for audit storage backends
type auditBackend interface {
	// Write persists a batch of audit events to the backend.
	// Implementations must handle concurrent writes safely.
	Write(events []AuditEvent) error

	// Flush ensures all pending writes are committed to storage
	Flush() error

	// Close releases all resources; the backend must not be used afterwards
	Close() error
}

// createAuditBackend selects the audit backend for a configuration.
// A .jsonl OutputFile selects JSONL explicitly; everything else tries the
// unified SQLite backend first and falls back to JSONL.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	jsonlBackend, jsonlErr := newJSONLBackend(config)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}
	return jsonlBackend, nil
}

// unifiedAuditPath is the standard location of the system-wide SQLite audit
// database consolidating events from every Harmonia process on the host.
func unifiedAuditPath() string {
	return filepath.Join(os.TempDir(), "harmonia", "system-audit.db")
}

// sqliteAuditBackend implements auditBackend using a unified SQLite database
type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := unifiedAuditPath()
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".db" {
		dbPath = config.OutputFile
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	// WAL keeps writers from blocking readers; NORMAL sync is acceptable
	// for audit logs where losing the last second on a crash is tolerable.
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	backend := &sqliteAuditBackend{db: db, dbPath: dbPath}
	if err := backend.initializeSchema(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize audit database schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to prepare audit database statements: %w", err)
	}
	return backend, nil
}

func (s *sqliteAuditBackend) initializeSchema() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		event TEXT NOT NULL,
		component TEXT NOT NULL,
		target_path TEXT,
		old_value TEXT,
		new_value TEXT,
		process_id INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		context TEXT, -- JSON blob for flexible metadata
		checksum TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := s.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_level ON audit_events(level)",
		"CREATE INDEX IF NOT EXISTS idx_audit_component_time ON audit_events(component, timestamp)",
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create audit index: %w", err)
		}
	}
	return nil
}

func (s *sqliteAuditBackend) prepareStatements() error {
	insertSQL := `
	INSERT INTO audit_events (
		timestamp, level, event, component, target_path,
		old_value, new_value, process_id, process_name, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := s.db.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	s.insertStmt = stmt
	return nil
}

// Write persists a batch of audit events inside one transaction
func (s *sqliteAuditBackend) Write(events []AuditEvent) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	s.mu.RUnlock()

	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				fmt.Fprintf(os.Stderr, "Failed to rollback audit transaction: %v\n", rollbackErr)
			}
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer func() { _ = txStmt.Close() }()

	for _, event := range events {
		if err = s.insertEvent(txStmt, event); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) insertEvent(stmt *sql.Stmt, event AuditEvent) error {
	marshalValue := func(v interface{}) (string, error) {
		if v == nil {
			return "", nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	oldValueJSON, err := marshalValue(event.OldValue)
	if err != nil {
		return fmt.Errorf("failed to serialize old_value: %w", err)
	}
	newValueJSON, err := marshalValue(event.NewValue)
	if err != nil {
		return fmt.Errorf("failed to serialize new_value: %w", err)
	}
	contextJSON, err := marshalValue(event.Context)
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}

	_, err = stmt.Exec(
		event.Timestamp.Format(time.RFC3339Nano),
		event.Level.String(),
		event.Event,
		event.Component,
		event.TargetPath,
		oldValueJSON,
		newValueJSON,
		event.ProcessID,
		event.ProcessName,
		contextJSON,
		event.Checksum,
	)
	return err
}

// Flush forces a WAL checkpoint for durability
func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}
	return nil
}

// Close releases statements and the database connection.
// Safe to call multiple times.
func (s *sqliteAuditBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close insert statement: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}
	return nil
}

// jsonlAuditBackend implements auditBackend using append-only JSONL files
type jsonlAuditBackend struct {
	file   *os.File
	mu     sync.Mutex
	closed bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, fmt.Errorf("JSONL backend requires OutputFile to be specified")
	}

	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0750); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}

	// Owner read/write only; audit logs may carry configuration values
	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit log file: %w", err)
	}
	return &jsonlAuditBackend{file: file}, nil
}

// Write serializes each event as one JSON object per line
func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}
	}
	return nil
}

// Flush fsyncs the JSONL file
func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync JSONL audit file: %w", err)
	}
	return nil
}

// Close releases the file handle. Safe to call multiple times.
func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	if j.file != nil {
		return j.file.Close()
	}
	return nil
}
