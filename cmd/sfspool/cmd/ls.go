package cmd

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentryflow-systems/sentryflow-agent/cmd/sfspool/output"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List pending batch files, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		batches, err := pendingBatches(spoolDir)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			output.Info("spool is empty")
			return nil
		}

		table := output.NewTable([]string{"FILE", "SIZE", "AGE"})
		for _, b := range batches {
			age := time.Since(b.info.ModTime()).Truncate(time.Second)
			table.AddRow([]string{
				filepath.Base(b.path),
				strconv.FormatInt(b.info.Size(), 10),
				age.String(),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
