// loader.go: Configuration tree loading for Harmonia
//
// Defaults trees, overrides trees, and resource maps arrive as JSON or YAML
// files. The loader detects the format from the file extension, decodes into
// a ConfigTree, and normalizes the decoded shapes so the rest of the
// composer only ever sees string-keyed mappings and []interface{} sequences.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// ConfigFormat represents supported configuration file formats
type ConfigFormat int

const (
	FormatJSON ConfigFormat = iota
	FormatYAML
	FormatUnknown
)

func (f ConfigFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// DetectFormat determines the configuration format from a file extension
func DetectFormat(filePath string) ConfigFormat {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return FormatJSON
	case ".yml", ".yaml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// LoadTree reads and parses a configuration tree from a file, detecting the
// format from the extension.
func LoadTree(filePath string) (ConfigTree, error) {
	format := DetectFormat(filePath)
	if format == FormatUnknown {
		return nil, errors.New(ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported config format for file: %s", filePath))
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, ErrCodeConfigNotFound,
				fmt.Sprintf("config file not found: %s", filePath))
		}
		return nil, errors.Wrap(err, ErrCodeIOError,
			fmt.Sprintf("failed to read config file: %s", filePath))
	}

	return ParseTree(data, format)
}

// ParseTree parses configuration data in the given format into a ConfigTree
func ParseTree(data []byte, format ConfigFormat) (ConfigTree, error) {
	tree := make(ConfigTree)

	switch format {
	case FormatJSON:
		if len(data) == 0 {
			return tree, nil
		}
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidConfig, "invalid JSON configuration")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidConfig, "invalid YAML configuration")
		}
	default:
		return nil, errors.New(ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported config format: %s", format))
	}

	normalized, err := normalizeValue("", tree)
	if err != nil {
		return nil, err
	}
	return normalized.(ConfigTree), nil
}

// LoadResourceMap reads a keyed resource map from a file. The file must hold
// a mapping of resource keys to attribute mappings.
func LoadResourceMap(filePath string) (map[string]RawResource, error) {
	tree, err := LoadTree(filePath)
	if err != nil {
		return nil, err
	}

	out := make(map[string]RawResource, len(tree))
	for key, value := range tree {
		decl, ok := asTree(value)
		if !ok {
			return nil, errors.New(ErrCodeInvalidConfig,
				fmt.Sprintf("resource '%s' in %s: expected mapping, got %T", key, filePath, value))
		}
		out[key] = decl
	}
	return out, nil
}

// normalizeValue rewrites decoded values into the canonical tree shapes.
// Interface-keyed mappings (produced by some YAML documents) are converted
// to string-keyed mappings; non-string keys are an error rather than a
// silent stringification.
func normalizeValue(path string, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, nested := range v {
			normalized, err := normalizeValue(path+"."+key, nested)
			if err != nil {
				return nil, err
			}
			v[key] = normalized
		}
		return v, nil
	case map[interface{}]interface{}:
		out := make(ConfigTree, len(v))
		for rawKey, nested := range v {
			key, ok := rawKey.(string)
			if !ok {
				return nil, errors.New(ErrCodeInvalidConfig,
					fmt.Sprintf("field '%s': mapping key %v is not a string", path, rawKey))
			}
			normalized, err := normalizeValue(path+"."+key, nested)
			if err != nil {
				return nil, err
			}
			out[key] = normalized
		}
		return out, nil
	case []interface{}:
		for i, item := range v {
			normalized, err := normalizeValue(fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return nil, err
			}
			v[i] = normalized
		}
		return v, nil
	default:
		return v, nil
	}
}
