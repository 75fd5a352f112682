// Package config provides build information for staffplan binaries.
package config

import (
	"fmt"
	"runtime"
)

// Binary names reported in version output and build info.
const (
	ServerBinary = "staffplan-server"
	CLIBinary    = "staffctl"
)

// Build information. Populated at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo describes one staffplan binary.
type BuildInfo struct {
	Binary    string `json:"binary"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo returns the build information of binary.
func GetBuildInfo(binary string) BuildInfo {
	return BuildInfo{
		Binary:    binary,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String formats the build information on one line.
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s %s)",
		b.Binary, b.Version, b.Commit, b.BuildTime, b.GoVersion, b.Platform)
}

// VersionString returns the one-line version of binary.
func VersionString(binary string) string {
	return GetBuildInfo(binary).String()
}
