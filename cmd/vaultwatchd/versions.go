package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions <file-path>",
	Short: "List every retained backup version of one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cat, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		defer cat.Close()

		records, err := cat.GetVersions(context.Background(), filePath, cfg.Device.ID)
		if err != nil {
			return fmt.Errorf("list versions: %w", err)
		}
		if len(records) == 0 {
			fmt.Printf("no backups recorded for %s\n", filePath)
			return nil
		}

		for _, rec := range records {
			status := "current"
			if rec.IsDeleted {
				status = "deleted"
			}
			fmt.Printf("id=%-6d version=%-4d backed_up=%s size=%d status=%s\n",
				rec.ID, rec.Version, rec.BackupDate.Format("2006-01-02T15:04:05Z"), rec.OriginalSize, status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}
