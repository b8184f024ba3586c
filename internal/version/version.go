// Package version exposes build information. Values are set with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the program name.
const Name = "queryrunner"

var (
	// Version is the semantic version.
	Version = "0.1.0"

	// GitCommit is the commit the binary was built from.
	GitCommit = ""

	// BuildDate is when the binary was built.
	BuildDate = "unknown"
)

// Info contains all version information.
type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	OS        string
	Arch      string
}

// Get returns the version information. The commit falls back to the VCS
// revision recorded by the Go toolchain.
func Get() Info {
	commit := GitCommit
	if commit == "" {
		commit = vcsRevision()
	}

	return Info{
		Version:   Version,
		GitCommit: commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
			return setting.Value[:12]
		}
	}

	return "dev"
}

// String returns a one line description.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s %s/%s)",
		Name, i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.OS, i.Arch)
}

// Full returns a detailed multi-line description.
func (i Info) Full() string {
	return fmt.Sprintf(`%s
  Version:    %s
  Git Commit: %s
  Build Date: %s
  Go Version: %s
  OS/Arch:    %s/%s`,
		Name, i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.OS, i.Arch)
}
