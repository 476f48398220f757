// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdfharvest CLI.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdfharvest/internal/config"
	"github.com/pdiddy/pdfharvest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured from --verbose before any subcommand runs.
var logger = slog.New(slog.DiscardHandler)

// rootCmd is the base command for the pdfharvest CLI.
var rootCmd = &cobra.Command{
	Use:   "pdfharvest",
	Short: "Discover and download PDF documents linked from web pages",
	Long: `pdfharvest scans one or more seed pages for links to PDF documents,
downloads every unique match with retries and a polite delay between
requests, checks each file really is a PDF, and writes a JSON summary of
the run next to the downloads.

Configuration comes from an optional JSON or YAML file, PDFHARVEST_*
environment variables, and command-line flags, in increasing priority.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger = newLogger(cmd.ErrOrStderr(), verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default: ./pdfharvest.{yaml,json} or ~/.config/pdfharvest/)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log progress and per-link outcomes")
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads the configuration named by --config, or the first one
// found on the search path, layered over defaults and the environment.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, used, err := config.Load(path)
	if err != nil {
		return types.Config{}, err
	}
	if used != "" {
		logger.Info("using config file", slog.String("path", used))
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
