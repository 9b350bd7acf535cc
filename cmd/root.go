// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"

	"github.com/naka-gawa/repo-history/internal/config"
	"github.com/naka-gawa/repo-history/internal/logging"
	"github.com/naka-gawa/repo-history/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "repo-history",
	Short: "A tool to track and chart a GitHub repository's stars, forks and watchers.",
	Long: `repo-history periodically snapshots a GitHub repository's stargazers,
forks and watchers into a local SQLite database, and renders how many
arrived per hour, day, week or any number of seconds.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add persistent flags available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "repo-history.yaml", "Path to the YAML config file")
}

// env is what every command needs: configuration, a logger and the store.
type env struct {
	cfg    config.Config
	logger zerolog.Logger
	store  *store.SQLiteStore
}

// setup loads the config, builds the logger and opens the store, exiting on
// failure. The caller must close env.store.
func setup(cmd *cobra.Command, console bool) *env {
	verbose, _ := cmd.Flags().GetBool("verbose")
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := logging.ParseLevel(cfg.Base.LogLevel)
	if verbose {
		level = zerolog.DebugLevel
	}
	var logger zerolog.Logger
	if console {
		logger = logging.Console(os.Stderr, level)
	} else {
		logger = logging.New(os.Stderr, level)
	}

	s, err := store.Open(cfg.SQLite.Path, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	return &env{cfg: cfg, logger: logger, store: s}
}
