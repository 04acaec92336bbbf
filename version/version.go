// Package version holds build information, set with -ldflags at release time:
//
//	go build -ldflags "-X github.com/jackzampolin/pcr/version.GitRelease=v0.1.0 ..."
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
	GoInfo        = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)

func init() {
	if GitCommit != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			GitCommit = s.Value
		case "vcs.time":
			GitCommitDate = s.Value
		}
	}
}

// Info is the version payload returned by /status and `pcr version -o json`.
type Info struct {
	Release string `json:"release" yaml:"release"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Release: GitRelease,
		Commit:  GitCommit,
		Date:    GitCommitDate,
		Go:      GoInfo,
	}
}
