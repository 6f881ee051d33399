package main

import (
	"os"

	"github.com/sentryflow-systems/sentryflow-agent/cmd/sfspool/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
