package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cachalot-cc/cachalot/internal/config"
	"github.com/cachalot-cc/cachalot/internal/digest"
	"github.com/cachalot-cc/cachalot/internal/hashutil"
	"github.com/cachalot-cc/cachalot/internal/logging"
	"github.com/cachalot-cc/cachalot/internal/macroscan"
)

var hashSizeHint int

func init() {
	hashCmd.Flags().IntVar(&hashSizeHint, "size-hint", 0, "Pre-allocate the read buffer to this many bytes")
}

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Compute cache-key digests for source files",
	Long:  "Hash source files exactly the way the cache key computation does, reporting any temporal macros found",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := logging.Init(cfg.LogFile, cfg.Verbose); err != nil {
			return err
		}
		sloppy, err := cfg.SloppyFlags()
		if err != nil {
			return err
		}

		yellow := color.New(color.FgYellow)
		for _, path := range args {
			d := digest.New()
			result := hashutil.HashSourceFile(d, path, hashSizeHint, sloppy)
			if result.Has(macroscan.Error) {
				return fmt.Errorf("failed to hash %s", path)
			}

			fmt.Printf("%s  %s", d.Sum(), path)
			if result != macroscan.OK {
				yellow.Fprintf(os.Stdout, "  [%s]", result)
			}
			fmt.Println()
		}
		return nil
	},
}
