package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCheckCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configCheckSubCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate configuration, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fmt.Printf("configuration OK: device=%s watching=%d director(y/ies) container=%s\n",
			cfg.Device.ID, len(cfg.Monitor.WatchedDirectories), cfg.Azure.ContainerName)
		return nil
	},
}

func init() {
	configCheckCmd.AddCommand(configCheckSubCmd)
	rootCmd.AddCommand(configCheckCmd)
}
