// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Name is the program name used in logs and the user agent.
const Name = "wavering"

// Set via -ldflags "-X github.com/smazurov/wavering/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata reported by the API and the version command.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build metadata of the running binary.
func Get() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String formats the version on one line, e.g. "wavering 1.2.0 (abc123)".
func String() string {
	if GitCommit == "unknown" || GitCommit == "" {
		return fmt.Sprintf("%s %s", Name, Version)
	}
	return fmt.Sprintf("%s %s (%s)", Name, Version, short(GitCommit))
}

func short(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
