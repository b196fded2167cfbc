package version

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ToolName is reported in every profile and by the version command.
const ToolName = "accelprof"

// Version information - these can be overridden at build time using ldflags
var (
	// Version is the semantic version of accelprof
	Version = "v0.3.0-beta"

	// GitCommit is the git commit hash (set at build time)
	GitCommit = "unknown"

	// BuildTime is when the binary was built (set at build time)
	BuildTime = "unknown"
)

// BuildInfo contains build and version information
type BuildInfo struct {
	Version     string    `json:"version"`
	GitCommit   string    `json:"git_commit"`
	BuildTime   string    `json:"build_time"`
	GoVersion   string    `json:"go_version"`
	Platform    string    `json:"platform"`
	CompileTime time.Time `json:"compile_time"`
}

// GetBuildInfo returns build information
func GetBuildInfo() *BuildInfo {
	compileTime, _ := time.Parse(time.RFC3339, BuildTime)
	if BuildTime == "unknown" {
		// Fallback for development builds
		compileTime = time.Now()
	}

	return &BuildInfo{
		Version:     Version,
		GitCommit:   GitCommit,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
		Platform:    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		CompileTime: compileTime,
	}
}

// GetVersion returns the semantic version string
func GetVersion() string {
	return Version
}

// GetVersionWithCommit returns version with git commit info
func GetVersionWithCommit() string {
	if GitCommit != "unknown" && len(GitCommit) >= 7 {
		return fmt.Sprintf("%s (%s)", Version, GitCommit[:7])
	}
	return Version
}

// GetFullVersionString returns the version block printed by the CLI
func GetFullVersionString() string {
	info := GetBuildInfo()
	return fmt.Sprintf("%s %s\nBuilt: %s\nCommit: %s\nGo: %s\nPlatform: %s",
		ToolName,
		info.Version,
		info.BuildTime,
		info.GitCommit,
		info.GoVersion,
		info.Platform,
	)
}

// IsPrerelease reports whether Version carries a prerelease tag
func IsPrerelease() bool {
	for _, tag := range []string{"alpha", "beta", "rc"} {
		if strings.Contains(Version, tag) {
			return true
		}
	}
	return false
}
