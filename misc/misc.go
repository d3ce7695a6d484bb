// Package misc holds program identity set at build time.
package misc

import (
	"runtime/debug"
)

const appName = "hdx"

// set with -ldflags "-X hdx/misc.version=... -X hdx/misc.gitHash=..."
var (
	version = "dev"
	gitHash = ""
)

// GetAppName returns program name used for logs, temporary files and
// reports.
func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns commit program was built from. When not set at link
// time VCS information embedded by the go tool is used.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
