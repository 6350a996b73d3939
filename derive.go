// derive.go: Derived-settings engine for Harmonia effective configuration
//
// Derivation computes the dependent settings the agent needs from the merged
// tree: directory paths, the RPC port, and the RPC bind address with its
// multi-level fallback chain. Each derivation is independent; the only
// ordering constraint is that the uiDir/dataDir policy check runs after both
// directories are resolved.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import "strings"

// DefaultRPCPort is used when the merged tree carries no ports.rpc value
const DefaultRPCPort = 8400

// Derived holds the scalar settings computed from the merged tree.
// DataDir and UIDir are empty when the corresponding key is absent.
type Derived struct {
	DataDir     string `json:"dataDir,omitempty"`
	UIDir       string `json:"uiDir,omitempty"`
	RPCPort     int    `json:"rpcPort"`
	RPCBindAddr string `json:"rpcBindAddress"`
}

// Derive computes the derived settings from a merged configuration tree.
// The environment supplies the loopback address used as the final fallback
// for the RPC bind address. Derivation never fails; misconfigurations that
// are survivable surface as PolicyWarnings instead.
func Derive(tree ConfigTree, env Environment) (Derived, []PolicyWarning) {
	var warnings []PolicyWarning

	derived := Derived{
		DataDir: lookupString(tree, "dataDir"),
		UIDir:   lookupString(tree, "uiDir"),
		RPCPort: deriveRPCPort(tree),
	}

	// The UI cannot serve without a data directory to back it. Survivable,
	// so composition continues with a warning.
	if derived.UIDir != "" && derived.DataDir == "" {
		warnings = append(warnings, PolicyWarning{
			Field:   "uiDir",
			Message: "uiDir requires dataDir to be set",
		})
	}

	derived.RPCBindAddr = deriveRPCBindAddr(tree, env)

	return derived, warnings
}

// deriveRPCPort resolves ports.rpc, treating zero and absent alike
func deriveRPCPort(tree ConfigTree) int {
	if port, ok := toInt(lookupPath(tree, "ports.rpc")); ok && port != 0 {
		return port
	}
	return DefaultRPCPort
}

// deriveRPCBindAddr resolves the RPC bind address through the ordered
// fallback chain: addresses.rpc, then clientAddr, then the platform
// loopback address. The loopback fallback is deliberate even though it may
// bind RPC to a non-routable interface; operators who need a routable
// address must configure one of the explicit keys.
func deriveRPCBindAddr(tree ConfigTree, env Environment) string {
	if addr := lookupString(tree, "addresses.rpc"); addr != "" {
		return addr
	}
	if addr := lookupString(tree, "clientAddr"); addr != "" {
		return addr
	}
	return env.LoopbackAddress()
}

// lookupPath retrieves a value from a tree using dot notation, e.g.
// "ports.rpc" or "addresses.rpc". Returns nil when any path segment is
// absent or not a mapping.
func lookupPath(tree ConfigTree, path string) interface{} {
	segments := strings.Split(path, ".")
	current := tree
	for i, segment := range segments {
		value, exists := current[segment]
		if !exists {
			return nil
		}
		if i == len(segments)-1 {
			return value
		}
		nested, ok := asTree(value)
		if !ok {
			return nil
		}
		current = nested
	}
	return nil
}

// lookupString retrieves a string value at a dot-notation path, returning
// the empty string when the key is absent or not a string.
func lookupString(tree ConfigTree, path string) string {
	s, _ := lookupPath(tree, path).(string)
	return s
}
