// Package version reports amanvoice build information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the program name.
const Name = "amanvoice"

// Version is set at build time:
//
//	-ldflags "-X github.com/Aman-CERP/amanvoice/pkg/version.Version=1.2.3"
var Version = "dev"

// Build information set via ldflags.
var (
	Commit = "unknown"
	Date   = "unknown"
)

// BuildInfo is version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns build information. When ldflags did not set a commit, the
// VCS revision recorded by the Go toolchain is used instead.
func GetInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if info.Commit == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					if len(s.Value) > 7 {
						info.Commit = s.Value[:7]
					} else if s.Value != "" {
						info.Commit = s.Value
					}
				case "vcs.time":
					if info.Date == "unknown" && s.Value != "" {
						info.Date = s.Value
					}
				}
			}
		}
	}
	return info
}

// String returns a one-line description of the build.
func String() string {
	info := GetInfo()
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s, %s/%s)",
		Name, info.Version, info.Commit, info.Date, info.GoVersion, info.OS, info.Arch)
}

// Short returns the version alone.
func Short() string {
	return Version
}
