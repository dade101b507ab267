// Package commands wires the CLI surface. Commands only parse flags and
// hand off to the harvesting packages.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/guilleripa/itau-cli/internal/buildinfo"
	"github.com/guilleripa/itau-cli/internal/config"
	"github.com/guilleripa/itau-cli/internal/logger"
)

// passwordEnv hands the login password to the process. Credential storage
// stays outside this tool.
const passwordEnv = "ITAU_PASSWORD"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "itau",
		Short:   "Harvest ItauLink account and card history into CSV files",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newAccountsCommand())

	return rootCmd
}

// buildLogger maps -v counts onto log levels: warnings only by default,
// -v for progress, -vv for per-request detail.
func buildLogger(verbosity int) zerolog.Logger {
	log := logger.New()
	switch {
	case verbosity >= 2:
		return log.Level(zerolog.DebugLevel)
	case verbosity == 1:
		return log.Level(zerolog.InfoLevel)
	default:
		return log.Level(zerolog.WarnLevel)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func passwordFromEnv() (string, error) {
	password := os.Getenv(passwordEnv)
	if password == "" {
		return "", errors.New("set " + passwordEnv + " to the login password")
	}
	return password, nil
}
