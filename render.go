// render.go: File-based configuration renderer for Harmonia
//
// FileRenderer is the default ConfigRenderer collaborator: it serializes the
// effective tree to JSON or YAML, compares it against the previously
// persisted file through a fast FNV-1a hash, and writes atomically
// (temp file + rename) so a crash never leaves a half-written agent
// configuration behind.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"encoding/json"
	"fmt"
	"hash"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// FileRenderer implements ConfigRenderer by persisting the effective tree
// to a single file. Thread safety: serialized writes via internal mutex.
type FileRenderer struct {
	filePath string
	format   ConfigFormat

	// Optional audit integration
	auditLogger *AuditLogger

	mu sync.Mutex
}

// NewFileRenderer creates a renderer targeting filePath. The output format
// is detected from the file extension.
func NewFileRenderer(filePath string) (*FileRenderer, error) {
	if filePath == "" {
		return nil, errors.New(ErrCodeRenderError, "filePath cannot be empty")
	}
	format := DetectFormat(filePath)
	if format == FormatUnknown {
		return nil, errors.New(ErrCodeRenderError,
			fmt.Sprintf("unsupported render format for file: %s", filePath))
	}
	return &FileRenderer{filePath: filePath, format: format}, nil
}

// WithAudit enables audit logging of render operations
func (r *FileRenderer) WithAudit(logger *AuditLogger) *FileRenderer {
	r.auditLogger = logger
	return r
}

// Render implements ConfigRenderer. It serializes the effective tree,
// reports whether the result differs from the previously persisted
// configuration, and rewrites the file atomically when it does. With
// purgeConfigDir set, unmanaged files in the target directory are removed
// before the write.
func (r *FileRenderer) Render(cfg *EffectiveConfig, purgeConfigDir bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	serialized, err := r.serialize(cfg)
	if err != nil {
		return false, err
	}

	oldHash, newHash := r.previousHash(), hashBytes(serialized)
	changed := oldHash != newHash
	if !changed && !purgeConfigDir {
		return false, nil
	}

	if purgeConfigDir {
		if err := r.purgeDir(); err != nil {
			return false, err
		}
	}

	if changed || !r.targetExists() {
		if err := r.atomicWrite(serialized); err != nil {
			return false, errors.Wrap(err, ErrCodeIOError, "atomic write failed")
		}
	}

	if r.auditLogger != nil {
		r.auditLogger.LogConfigRender(r.filePath, changed, oldHash, newHash)
	}
	return changed, nil
}

// serialize renders the effective tree in the target format, honoring the
// prettyConfig and prettyConfigIndent inputs for JSON output.
func (r *FileRenderer) serialize(cfg *EffectiveConfig) ([]byte, error) {
	switch r.format {
	case FormatJSON:
		var data []byte
		var err error
		if cfg.Inputs != nil && cfg.Inputs.PrettyConfig {
			indent := strings.Repeat(" ", cfg.Inputs.PrettyConfigIndent)
			data, err = json.MarshalIndent(cfg.Tree, "", indent)
		} else {
			data, err = json.Marshal(cfg.Tree)
		}
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeSerialization, "JSON serialization failed")
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(cfg.Tree)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeSerialization, "YAML serialization failed")
		}
		return data, nil
	default:
		return nil, errors.New(ErrCodeSerialization,
			fmt.Sprintf("unsupported render format: %s", r.format))
	}
}

// previousHash hashes the currently persisted file, or zero when absent
func (r *FileRenderer) previousHash() uint64 {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return 0
	}
	return hashBytes(data)
}

func (r *FileRenderer) targetExists() bool {
	_, err := os.Stat(r.filePath)
	return err == nil
}

// purgeDir removes unmanaged regular files from the target directory.
// The rendered file itself is preserved.
func (r *FileRenderer) purgeDir() error {
	dir := filepath.Dir(r.filePath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, ErrCodeIOError,
			fmt.Sprintf("failed to read config directory: %s", dir))
	}

	target := filepath.Base(r.filePath)
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == target {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return errors.Wrap(err, ErrCodeIOError,
				fmt.Sprintf("failed to purge unmanaged file: %s", entry.Name()))
		}
	}
	return nil
}

// atomicWrite writes data through a temp file and rename in the same
// directory, so readers never observe a torn configuration.
func (r *FileRenderer) atomicWrite(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(r.filePath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tempPath := fmt.Sprintf("%s.tmp.%d", r.filePath, time.Now().UnixNano())
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, r.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// hashBytes computes the FNV-1a hash of serialized configuration data
func hashBytes(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)
	return h.Sum64()
}

// HashTree computes a deterministic FNV-1a hash of a configuration tree.
// Trees that are equal key-by-key hash identically regardless of map
// iteration order.
func HashTree(tree ConfigTree) uint64 {
	h := fnv.New64a()
	hashValue(h, tree)
	return h.Sum64()
}

// hashSep terminates every hashed element so that adjacent values cannot
// run together ([]{"ab"} must not collide with []{"a", "b"}).
var hashSep = []byte{0}

func hashValue(h hash.Hash64, value interface{}) {
	switch v := value.(type) {
	case nil:
		_, _ = h.Write([]byte("nil"))
	case bool:
		if v {
			_, _ = h.Write([]byte("true"))
		} else {
			_, _ = h.Write([]byte("false"))
		}
	case string:
		_, _ = h.Write([]byte(v))
		_, _ = h.Write(hashSep)
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = h.Write([]byte(k))
			_, _ = h.Write(hashSep)
			hashValue(h, v[k])
		}
	case []interface{}:
		for _, item := range v {
			hashValue(h, item)
			_, _ = h.Write(hashSep)
		}
	case []string:
		for _, item := range v {
			_, _ = h.Write([]byte(item))
			_, _ = h.Write(hashSep)
		}
	default:
		fmt.Fprintf(h, "%v", v)
		_, _ = h.Write(hashSep)
	}
}
