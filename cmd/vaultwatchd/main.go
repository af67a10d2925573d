// Command vaultwatchd is vaultwatch's agent: it watches configured
// directories, backs up changed files to Azure Blob Storage with
// client-side compression and authenticated encryption, keeps a local
// append-only catalog of every version, and serves a small dashboard API
// for inspecting and restoring backups.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "vaultwatchd",
	Short:   "vaultwatch is a continuous personal backup agent",
	Version: Version,
	Long: `vaultwatchd watches a configured set of directories and keeps them
continuously backed up to Azure Blob Storage: every changed file is
hashed, compressed, encrypted with a per-object salt, uploaded, and
recorded in a local append-only catalog that preserves every prior
version until retention sweeps it away.`,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("vaultwatchd %s\ncommit: %s\nbuilt: %s\n", Version, Commit, BuildTime))
	rootCmd.PersistentFlags().String("config", "", "path to a config.yaml file (defaults to ./config.yaml if present)")
}
