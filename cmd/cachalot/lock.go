package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cachalot-cc/cachalot/internal/config"
	"github.com/cachalot-cc/cachalot/internal/lockfile"
	"github.com/cachalot-cc/cachalot/internal/logging"
)

var lockTimeoutMS int

func init() {
	lockCmd.Flags().IntVar(&lockTimeoutMS, "timeout", 0, "Override lock_timeout_ms from configuration")
}

var lockCmd = &cobra.Command{
	Use:   "lock <name>",
	Short: "Acquire the filesystem lock for a named resource",
	Long:  "Acquire the <name>.lock marker, breaking it if its holder is stale. Intended for scripting and debugging the lock protocol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logging.Init(cfg.LogFile, cfg.Verbose); err != nil {
			return err
		}

		timeoutMS := cfg.LockTimeoutMS
		if lockTimeoutMS > 0 {
			timeoutMS = lockTimeoutMS
		}
		if !lockfile.Acquire(args[0], time.Duration(timeoutMS)*time.Millisecond) {
			return fmt.Errorf("failed to acquire lock for %s", args[0])
		}

		green := color.New(color.FgGreen, color.Bold)
		green.Printf("✓ acquired %s.lock\n", args[0])
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <name>",
	Short: "Release the filesystem lock for a named resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logging.Init(cfg.LogFile, cfg.Verbose); err != nil {
			return err
		}

		lockfile.Release(args[0])
		fmt.Printf("released %s.lock\n", args[0])
		return nil
	},
}
