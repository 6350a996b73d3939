// merge.go: Deep-merge engine for Harmonia configuration trees
//
// Merge semantics:
// - Right-biased: keys in the overrides tree win over the defaults tree
// - Recursive: nested mappings merge key by key instead of replacing wholesale
// - Sequences and scalars are replaced outright, never concatenated
// - Non-mutating: both input trees are deep-copied, the result shares nothing
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"fmt"
	"reflect"

	"github.com/agilira/go-errors"
)

// Merge deep-merges the overrides tree onto the defaults tree and returns a
// new tree. Neither input is mutated, and the result shares no mutable state
// with either input. For keys present in both trees where both values are
// mappings, the result is the recursive merge; in every other conflict the
// overrides value wins outright.
//
// Recursion depth is bounded only by input depth. Cyclic input structures are
// detected and rejected rather than looping forever.
func Merge(defaults, overrides ConfigTree) (ConfigTree, error) {
	base, err := copyTree("defaults", defaults)
	if err != nil {
		return nil, err
	}
	over, err := copyTree("overrides", overrides)
	if err != nil {
		return nil, err
	}
	return mergeInto(base, over), nil
}

// mergeInto merges over into base in place and returns base. Both arguments
// are already private deep copies, so in-place mutation is safe.
func mergeInto(base, over ConfigTree) ConfigTree {
	for key, overValue := range over {
		baseTree, baseIsTree := asTree(base[key])
		overTree, overIsTree := asTree(overValue)
		if baseIsTree && overIsTree {
			base[key] = mergeInto(baseTree, overTree)
			continue
		}
		base[key] = overValue
	}
	return base
}

// asTree reports whether a value is a nested configuration mapping
func asTree(value interface{}) (ConfigTree, bool) {
	tree, ok := value.(map[string]interface{})
	return tree, ok
}

// copyTree creates a deep copy of a configuration tree, failing on cycles
func copyTree(field string, tree ConfigTree) (ConfigTree, error) {
	if tree == nil {
		return ConfigTree{}, nil
	}
	copied, err := copyValue(field, tree, newCycleGuard())
	if err != nil {
		return nil, err
	}
	return copied.(ConfigTree), nil
}

func copyValue(path string, value interface{}, guard *cycleGuard) (interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		if !guard.enter(v) {
			return nil, errors.New(ErrCodeCyclicConfig,
				fmt.Sprintf("field '%s': configuration tree contains a cycle", path))
		}
		defer guard.leave(v)
		out := make(ConfigTree, len(v))
		for key, nested := range v {
			copied, err := copyValue(path+"."+key, nested, guard)
			if err != nil {
				return nil, err
			}
			out[key] = copied
		}
		return out, nil
	case []interface{}:
		if len(v) > 0 {
			if !guard.enter(v) {
				return nil, errors.New(ErrCodeCyclicConfig,
					fmt.Sprintf("field '%s': configuration tree contains a cycle", path))
			}
			defer guard.leave(v)
		}
		out := make([]interface{}, len(v))
		for i, item := range v {
			copied, err := copyValue(fmt.Sprintf("%s[%d]", path, i), item, guard)
			if err != nil {
				return nil, err
			}
			out[i] = copied
		}
		return out, nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	default:
		// Scalars are immutable and copied by value
		return v, nil
	}
}

// cycleGuard tracks the mappings and sequences on the current traversal path.
// Sharing the same submap from two sibling keys is legal; revisiting a value
// that is still on the path is a cycle.
type cycleGuard struct {
	onPath map[uintptr]bool
}

func newCycleGuard() *cycleGuard {
	return &cycleGuard{onPath: make(map[uintptr]bool)}
}

// enter marks a container as being on the traversal path.
// Returns false if the container is already on the path (a cycle).
func (g *cycleGuard) enter(container interface{}) bool {
	ptr := reflect.ValueOf(container).Pointer()
	if g.onPath[ptr] {
		return false
	}
	g.onPath[ptr] = true
	return true
}

// leave removes a container from the traversal path
func (g *cycleGuard) leave(container interface{}) {
	delete(g.onPath, reflect.ValueOf(container).Pointer())
}
