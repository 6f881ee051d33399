package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentryflow-systems/sentryflow-agent/cmd/sfspool/output"
)

var purgeConfirmed bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all pending batch files",
	Long: `Delete every pending batch file in the spool directory.

The deleted batches are lost permanently; the collector never receives
them. Requires --yes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeConfirmed {
			return fmt.Errorf("refusing to purge without --yes")
		}

		batches, err := pendingBatches(spoolDir)
		if err != nil {
			return err
		}

		removed := 0
		for _, b := range batches {
			if err := os.Remove(b.path); err != nil {
				output.Warn("%v", err)
				continue
			}
			removed++
		}
		output.Success("removed %d of %d pending batches", removed, len(batches))
		return nil
	},
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeConfirmed, "yes", false, "confirm deletion")
	rootCmd.AddCommand(purgeCmd)
}
