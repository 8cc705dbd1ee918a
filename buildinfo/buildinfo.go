// Package buildinfo reports what build of the service is running. Lookup is
// best effort: linker-injected values, then the embedded Go build info, then
// a local git tag, and finally literal "unknown" fields. Get never fails.
package buildinfo

import (
	"context"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Injected at link time:
//
//	-ldflags "-X github.com/cafemesh/cafemesh/buildinfo.version=v1.2.3 ..."
var (
	version   string
	commit    string
	buildDate string
)

const unknown = "unknown"

// Info describes one build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Provider resolves build metadata once and caches it.
type Provider struct {
	info Info
}

// NewProvider resolves the build info through the fallback chain.
func NewProvider() *Provider {
	return &Provider{info: resolve()}
}

// Get returns the resolved build info. It never fails; missing fields carry
// the literal "unknown".
func (p *Provider) Get() Info {
	return p.info
}

func resolve() Info {
	info := Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = setting.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = setting.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = gitDescribe()
	}

	if info.Version == "" {
		info.Version = unknown
	}
	if info.Commit == "" {
		info.Commit = unknown
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	return info
}

// gitDescribe asks the local checkout for the nearest tag. Only useful in
// development; returns "" when git or the repository is unavailable.
func gitDescribe() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
