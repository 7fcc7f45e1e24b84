package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Overridden at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the netscope version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("netscope %s (commit %s, built %s, %s)\n",
			Version, Commit, Date, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
