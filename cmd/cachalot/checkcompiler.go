package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cachalot-cc/cachalot/internal/config"
	"github.com/cachalot-cc/cachalot/internal/digest"
	"github.com/cachalot-cc/cachalot/internal/hashutil"
	"github.com/cachalot-cc/cachalot/internal/logging"
)

var checkCompilerCmd = &cobra.Command{
	Use:   "check-compiler <compiler-path>",
	Short: "Hash the output of the configured compiler check command",
	Long: `Run the compiler_check command(s) from the configuration with %compiler%
substituted by the given path and print the digest of their combined output.
This is the value folded into every cache key for that compiler.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logging.Init(cfg.LogFile, cfg.Verbose); err != nil {
			return err
		}

		d := digest.New()
		if !hashutil.HashMulticommandOutput(d, cfg.CompilerCheck, args[0]) {
			return fmt.Errorf("compiler check failed for %s", args[0])
		}
		fmt.Printf("%s  %s\n", d.Sum(), args[0])
		return nil
	},
}
