// platform.go: Platform facts and per-OS defaults for Harmonia
//
// A flat lookup table keyed by OS identifier replaces any notion of an
// inherited per-platform settings hierarchy: resolution is a single map
// access returning an explicit defaults struct.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/agilira/go-errors"
)

// Environment supplies the platform facts consumed during composition:
// the OS and architecture identifiers used for install coordinates, and the
// loopback address used as the final RPC bind address fallback.
type Environment interface {
	// OS returns the platform identifier, e.g. "linux" or "darwin"
	OS() string

	// Arch returns the architecture identifier, e.g. "amd64" or "arm64"
	Arch() string

	// LoopbackAddress returns the host loopback address
	LoopbackAddress() string
}

// SystemEnvironment reads platform facts from the running system
type SystemEnvironment struct{}

// OS implements Environment using the compile-time platform identifier
func (SystemEnvironment) OS() string { return runtime.GOOS }

// Arch implements Environment using the compile-time architecture identifier
func (SystemEnvironment) Arch() string { return runtime.GOARCH }

// LoopbackAddress implements Environment with the IPv4 loopback address
func (SystemEnvironment) LoopbackAddress() string { return "127.0.0.1" }

// StaticEnvironment is an Environment with fixed values, useful for
// composing configuration for a platform other than the local one and for
// tests that need deterministic platform facts.
type StaticEnvironment struct {
	Platform     string
	Architecture string
	Loopback     string
}

// OS implements Environment
func (e StaticEnvironment) OS() string { return e.Platform }

// Arch implements Environment
func (e StaticEnvironment) Arch() string { return e.Architecture }

// LoopbackAddress implements Environment
func (e StaticEnvironment) LoopbackAddress() string {
	if e.Loopback == "" {
		return "127.0.0.1"
	}
	return e.Loopback
}

// PlatformDefaults holds the per-OS settings used to build install
// coordinates and directory defaults for the agent.
type PlatformDefaults struct {
	OS          string `json:"os"`
	PackageName string `json:"package_name"`
	ConfigDir   string `json:"config_dir"`
	DataDir     string `json:"data_dir"`
	BinDir      string `json:"bin_dir"`

	// DownloadURLTemplate carries ${version}, ${os} and ${arch} placeholders
	DownloadURLTemplate string `json:"download_url_template"`
}

// InstallCoordinates is the package/binary selection forwarded to the
// install collaborator. The core only selects and forwards these values; it
// performs no installation itself.
type InstallCoordinates struct {
	Version     string `json:"version"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	PackageName string `json:"package_name"`
	DownloadURL string `json:"download_url"`
}

const defaultDownloadTemplate = "https://releases.agilira.dev/agent/${version}/agent_${version}_${os}_${arch}.zip"

// platformTable maps OS identifiers to their defaults. Adding a platform is
// one table entry, with no behavioral code involved.
var platformTable = map[string]PlatformDefaults{
	"linux": {
		OS:                  "linux",
		PackageName:         "harmonia-agent",
		ConfigDir:           "/etc/harmonia",
		DataDir:             "/var/lib/harmonia",
		BinDir:              "/usr/local/bin",
		DownloadURLTemplate: defaultDownloadTemplate,
	},
	"darwin": {
		OS:                  "darwin",
		PackageName:         "harmonia-agent",
		ConfigDir:           "/usr/local/etc/harmonia",
		DataDir:             "/usr/local/var/harmonia",
		BinDir:              "/usr/local/bin",
		DownloadURLTemplate: defaultDownloadTemplate,
	},
	"freebsd": {
		OS:                  "freebsd",
		PackageName:         "harmonia-agent",
		ConfigDir:           "/usr/local/etc/harmonia",
		DataDir:             "/var/db/harmonia",
		BinDir:              "/usr/local/bin",
		DownloadURLTemplate: defaultDownloadTemplate,
	},
	"windows": {
		OS:                  "windows",
		PackageName:         "harmonia-agent",
		ConfigDir:           `C:\ProgramData\harmonia\config`,
		DataDir:             `C:\ProgramData\harmonia\data`,
		BinDir:              `C:\Program Files\harmonia`,
		DownloadURLTemplate: defaultDownloadTemplate,
	},
}

// ResolvePlatform returns the defaults for an OS identifier.
// Unknown platforms are an error rather than a silent fallback.
func ResolvePlatform(osID string) (PlatformDefaults, error) {
	defaults, ok := platformTable[strings.ToLower(osID)]
	if !ok {
		return PlatformDefaults{}, errors.New(ErrCodeUnknownPlatform,
			fmt.Sprintf("no platform defaults for OS '%s'", osID))
	}
	return defaults, nil
}

// Coordinates expands the download template for a version and architecture
// and returns the full install coordinates for this platform.
func (p PlatformDefaults) Coordinates(version, arch string) InstallCoordinates {
	url := strings.NewReplacer(
		"${version}", version,
		"${os}", p.OS,
		"${arch}", arch,
	).Replace(p.DownloadURLTemplate)

	return InstallCoordinates{
		Version:     version,
		OS:          p.OS,
		Arch:        arch,
		PackageName: p.PackageName,
		DownloadURL: url,
	}
}
