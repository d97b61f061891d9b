package version

import (
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Release channels reported by Channel.
const (
	ChannelStable     = "stable"
	ChannelPrerelease = "prerelease"
	ChannelDev        = "dev"
)

var (
	parseOnce sync.Once
	parsed    *semver.Version
)

// Parsed returns Version as a semantic version, or nil for builds without a
// release tag such as "dev". The result is cached after the first call.
func Parsed() *semver.Version {
	parseOnce.Do(func() {
		if v, err := semver.NewVersion(Version); err == nil {
			parsed = v
		}
	})
	return parsed
}

// IsPrerelease reports whether the build is tagged with a pre-release
// suffix like -beta.1. Build metadata alone does not count.
func IsPrerelease() bool {
	v := Parsed()
	return v != nil && v.Prerelease() != ""
}

// IsDevBuild reports whether the build carries no release tag.
func IsDevBuild() bool {
	return Parsed() == nil
}

// Channel names the release channel of the build.
func Channel() string {
	switch {
	case IsDevBuild():
		return ChannelDev
	case IsPrerelease():
		return ChannelPrerelease
	default:
		return ChannelStable
	}
}
