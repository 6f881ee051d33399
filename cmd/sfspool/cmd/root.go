package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

var spoolDir string

var rootCmd = &cobra.Command{
	Use:   "sfspool",
	Short: "SentryFlow spool inspector",
	Long: `sfspool inspects and manages a SentryFlow agent spool directory.

List pending batches, decode their contents, check quota usage, or purge
the spool. Run it against a live spool only while the agent is stopped;
the agent is the sole writer for its directory.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&spoolDir, "dir", "/var/lib/sentryflow/spool", "spool directory")
}

type batchInfo struct {
	path string
	info os.FileInfo
}

// pendingBatches returns published batch files, oldest first.
func pendingBatches(dir string) ([]batchInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read spool directory: %w", err)
	}

	var batches []batchInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		batches = append(batches, batchInfo{path: filepath.Join(dir, e.Name()), info: info})
	}

	sort.Slice(batches, func(i, j int) bool {
		if batches[i].info.ModTime().Equal(batches[j].info.ModTime()) {
			return batches[i].path < batches[j].path
		}
		return batches[i].info.ModTime().Before(batches[j].info.ModTime())
	})

	return batches, nil
}
