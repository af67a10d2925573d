package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultwatch/vaultwatch/internal/config"
)

// loadConfig honors an explicit --config flag by pointing config.Load at
// it through CONFIG_PATH, the same override Load already understands.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv("CONFIG_PATH", path); err != nil {
			return nil, fmt.Errorf("set CONFIG_PATH: %w", err)
		}
	}
	return config.Load()
}
