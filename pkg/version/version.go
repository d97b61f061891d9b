// Package version provides build version information and release
// channel detection.
package version

import (
	"fmt"
	"runtime"
)

// These are set via ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns formatted version information.
func Info() string {
	commitShort := Commit
	if len(commitShort) > 7 {
		commitShort = commitShort[:7]
	}
	name := Version
	if ch := Channel(); ch == ChannelPrerelease {
		name += " [" + ch + "]"
	}
	return fmt.Sprintf(
		"farrierly %s (%s) built on %s with %s",
		name,
		commitShort,
		BuildDate,
		runtime.Version(),
	)
}
