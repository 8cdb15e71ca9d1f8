package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/logger"
	"github.com/nhle/forge-sparks/internal/model"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	configPath string
	logLevel   string
	jsonOutput bool
	cfg        *model.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "forge-sparks",
	Short: "forge-sparks - notifications from GitHub, GitLab, Gitea and Forgejo",
	Long: `Forge Sparks polls the notification inboxes of your forge accounts,
shows them in one list and raises a desktop notification for every new or
updated item.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		// The TUI owns the terminal.
		opts := logger.Options{Level: cfg.Log.Level, File: cfg.Log.File}
		if opts.File == "" && cmd.Name() == "run" && !headless {
			opts.File = filepath.Join(model.DefaultDataDir(), "forge-sparks.log")
		}
		return logger.Init(opts)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("forge-sparks version %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(accountsCmd)
}

func main() {
	forge.UserAgent = "forge-sparks/" + Version

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
