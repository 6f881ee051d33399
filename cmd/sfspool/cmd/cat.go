package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sentryflow-systems/sentryflow-agent/internal/event"
)

var catCmd = &cobra.Command{
	Use:   "cat <file>",
	Short: "Decode one batch file and print its envelopes as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !filepath.IsAbs(path) {
			path = filepath.Join(spoolDir, path)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open batch: %w", err)
		}
		defer f.Close()

		envs, err := event.DecodeBatch(f)
		if err != nil {
			return fmt.Errorf("decode batch: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		for _, env := range envs {
			line := map[string]any{"type": env.Type}
			if json.Valid(env.Payload) {
				line["payload"] = json.RawMessage(env.Payload)
			} else {
				line["payload_base64"] = env.Payload
			}
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
