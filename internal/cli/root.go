// Package cli contains all the CLI commands for the application, built
// using the Cobra library.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github-repo-analyzer/internal/config"
	apperrors "github-repo-analyzer/internal/errors"
	"github-repo-analyzer/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Collects and analyzes GitHub repository metadata",
	Long: `analyzer collects metadata about GitHub repositories, their pull
requests and the contributors who author them, persists everything to a
local CSV store, and derives summary statistics and correlations from the
collected data.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}

// setup loads the configuration and builds the logger every command
// shares.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	level := parseLogLevel(cfg.LogLevel)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadStore opens the file-backed store and loads all tables.
func loadStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	st := store.New(store.NewFileDriver(cfg.DataDir), logger)
	if err := st.Load(); err != nil {
		return nil, err
	}
	return st, nil
}

// splitRepoArg parses an 'owner/name' argument.
func splitRepoArg(arg string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(arg, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", &apperrors.InvalidRepoFormatError{Repo: arg}
	}
	return owner, name, nil
}
