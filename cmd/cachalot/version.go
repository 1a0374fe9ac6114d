package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, overridden through -ldflags at release time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(buildString())
	},
}

// buildString renders one line for dev builds and adds the commit and build
// date when they were stamped in.
func buildString() string {
	s := fmt.Sprintf("cachalot %s (%s/%s, %s)",
		Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
	if GitCommit != "unknown" {
		s += fmt.Sprintf("\ncommit %s, built %s", GitCommit, BuildDate)
	}
	return s
}
