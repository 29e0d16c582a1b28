package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/devstats-cli/internal/config"
)

var cfg *config.Config

var (
	sourcePath   string
	sourceFormat string
)

var rootCmd = &cobra.Command{
	Use:   "devstats",
	Short: "Prepare and query country development indicators",
	Long:  "Loads country-year population, life expectancy and GDP observations, derives income categories and decades, and serves filtered and per-region views.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if cmd.Flags().Changed("source") {
			cfg.Source.Path = sourcePath
		}
		if cmd.Flags().Changed("source-format") {
			cfg.Source.Format = sourceFormat
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sourcePath, "source", "", "source file or http(s)/ftp URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&sourceFormat, "source-format", "", "source format: auto, csv, tsv, xlsx, json (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
