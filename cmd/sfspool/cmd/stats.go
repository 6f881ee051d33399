package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sentryflow-systems/sentryflow-agent/cmd/sfspool/output"
)

var statsQuota int64

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pending batch count and total size",
	RunE: func(cmd *cobra.Command, args []string) error {
		batches, err := pendingBatches(spoolDir)
		if err != nil {
			return err
		}

		var total int64
		for _, b := range batches {
			total += b.info.Size()
		}

		output.Info("directory:     %s", spoolDir)
		output.Info("pending files: %d", len(batches))
		output.Info("total bytes:   %d", total)
		if statsQuota > 0 {
			used := 100 * float64(total) / float64(statsQuota)
			if used >= 90 {
				output.Warn("quota:         %d (%.1f%% used)", statsQuota, used)
			} else {
				output.Info("quota:         %d (%.1f%% used)", statsQuota, used)
			}
		}
		if len(batches) > 0 {
			output.Info("oldest:        %s", batches[0].info.ModTime().UTC().Format("2006-01-02T15:04:05Z"))
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Int64Var(&statsQuota, "quota", 0, "disk quota in bytes, for usage percentage")
	rootCmd.AddCommand(statsCmd)
}
