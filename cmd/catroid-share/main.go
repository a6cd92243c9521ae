// catroid-share - CLI for sharing and editing Catroid projects
package main

import (
	"os"

	"github.com/catrobat/catroid-share/internal/cli"
	"github.com/catrobat/catroid-share/internal/version"
)

// Version information, overridden with -ldflags at release time.
var (
	Version   = "v0.3.0"
	BuildTime = "2026-10-18"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
