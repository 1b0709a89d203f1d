package internal

import (
	"fmt"
	"runtime"
	"strings"
)

const (

	// Name of the daemon, used for logging groups, directories and usage text.
	Name = "tackd"

	// String reported for variables that were not set at link time.
	defaultUndefined = "(undefined)"

	// String reported instead of a version for developer builds.
	defaultLocalBuild = "(local)"

	// Branch whose builds omit the stage suffix in version strings.
	mainBranch = "main"
)

// Link-time variables, set with -ldflags "-X github.com/tackhq/tackd/internal.version=...".
var (
	version   = "" // Release version (e.g., "0.4.2").
	stage     = "" // Branch the release was cut from (e.g., "main", "beta").
	gitCommit = "" // Commit the binary was built from.

	rawQuiet   = "false" // Default for quiet mode.
	rawDebug   = "false" // Default for debug logging.
	rawVerbose = "false" // Default for verbose logging.
)

// Returns the release version without a leading "v".
//
// Returns "(undefined)" when the binary was built without a version.
func Version() string {
	v := strings.ToLower(strings.TrimSpace(version))
	if v == "" {
		return defaultUndefined
	}
	return strings.TrimPrefix(v, "v")
}

// Returns the release stage, lowercased, or "(undefined)".
func Stage() string {
	return orUndefined(strings.ToLower(stage))
}

// Returns the git commit hash, or "(undefined)".
func GitCommit() string {
	return orUndefined(gitCommit)
}

// Returns the architecture the binary was compiled for.
func Arch() string {
	return runtime.GOARCH
}

// Reports whether this binary was built outside the release pipeline.
//
// Release builds set version, stage and commit together; a missing value
// means a developer build.
func IsLocal() bool {
	for _, v := range []string{version, gitCommit, stage} {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// Returns a human readable version line.
//
// Developer builds report "(local)". Release builds report
// "<version>[+<stage>] <commit> [<arch>]", with the stage omitted for the
// main branch.
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}

	suffix := ""
	if s := Stage(); s != mainBranch {
		suffix = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s]", Version(), suffix, GitCommit(), Arch())
}

func orUndefined(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultUndefined
	}
	return s
}
