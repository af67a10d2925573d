package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vaultwatch/vaultwatch/internal/backup"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <record-id> <dest-path>",
	Short: "Restore one catalog record to a local path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recordID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid record id %q: %w", args[0], err)
		}
		destPath := args[1]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cat, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		defer cat.Close()

		store, err := buildStore(cfg)
		if err != nil {
			return err
		}

		pipeline := buildPipeline(cfg, cat, store)

		err = pipeline.RestoreByID(context.Background(), recordID, destPath, func(percent int, step backup.ProgressStep, message string) {
			fmt.Printf("[%3d%%] %-16s %s\n", percent, step, message)
		})
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("restored record %d to %s\n", recordID, destPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
