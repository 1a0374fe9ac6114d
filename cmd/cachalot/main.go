package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cachalot-cc/cachalot/internal/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cachalot",
		Short: "Compiler output cache hashing and locking core",
		Long: `Cachalot computes correctness-preserving cache keys for compiler output
caching and coordinates concurrent access to shared cache entries across
unrelated processes using filesystem locks.`,
		Version: Version,
	}
	rootCmd.SetVersionTemplate(buildString() + "\n")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(checkCompilerCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)

	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
