// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdfharvest/internal/config"
	"github.com/pdiddy/pdfharvest/internal/history"
	"github.com/pdiddy/pdfharvest/internal/secrets"
	"github.com/pdiddy/pdfharvest/internal/session"
	"github.com/pdiddy/pdfharvest/pkg/types"
)

const defaultOutputDir = "downloaded_pdfs"

var fetchCmd = &cobra.Command{
	Use:   "fetch <seed-url> [seed-url...]",
	Short: "Download every PDF linked from the given pages",
	Long: `Fetch scans each seed page for links to PDF documents, removes
duplicates, and downloads the rest one at a time into the output
directory, one subdirectory per source domain unless --flat is given.
Files already present and valid are skipped.

A summary of the run is written to download_summary.json in the output
directory. Individual download failures are reported there and do not
change the exit status.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringP("output-dir", "o", defaultOutputDir, "directory downloads are written to")
	fetchCmd.Flags().StringP("delay", "d", "", "delay between consecutive downloads, in seconds or as a duration (default 1)")
	fetchCmd.Flags().StringP("timeout", "t", "", "seed page request timeout, in seconds or as a duration (default 30)")
	fetchCmd.Flags().IntP("max-retries", "r", 0, "additional attempts after a transient download failure (default 3)")
	fetchCmd.Flags().Bool("no-verify", false, "skip the PDF signature check")
	fetchCmd.Flags().Bool("flat", false, "write every file directly into the output directory")
	fetchCmd.Flags().Bool("no-history", false, "do not record the run in the history database")
	fetchCmd.Flags().String("secrets-dir", ".secrets/", "directory holding basic-auth-user and basic-auth-password")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFetchFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	outputDir, _ := cmd.Flags().GetString("output-dir")
	opts := []session.Option{session.WithLogger(logger)}

	secretsDir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(secretsDir)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Info("loaded secrets", slog.Any("keys", keys))
	}
	if creds := secrets.BasicAuth(s); !creds.Empty() {
		opts = append(opts, session.WithCredentials(creds))
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		store, err := history.NewStore(outputDir)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()
		opts = append(opts, session.WithHistory(store))
	}

	sess, err := session.New(cfg, outputDir, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := sess.Run(ctx, args...)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary, outputDir)
	}
	if errors.Is(err, session.ErrNoReachableSeed) {
		return fmt.Errorf("%w: %d seed(s) failed", err, len(summary.Errors))
	}
	return err
}

// applyFetchFlags overrides cfg with every flag given on the command line.
func applyFetchFlags(cmd *cobra.Command, cfg *types.Config) error {
	flags := cmd.Flags()
	for _, f := range []struct {
		name string
		dst  *time.Duration
	}{
		{"delay", &cfg.DelayBetweenDownloads},
		{"timeout", &cfg.RequestTimeout},
	} {
		if !flags.Changed(f.name) {
			continue
		}
		raw, _ := flags.GetString(f.name)
		d, err := config.ParseSeconds(raw)
		if err != nil {
			return fmt.Errorf("--%s: %w", f.name, err)
		}
		*f.dst = d
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if noVerify, _ := flags.GetBool("no-verify"); noVerify {
		cfg.VerifyPDFContent = false
	}
	if flat, _ := flags.GetBool("flat"); flat {
		cfg.CreateSubdirs = false
	}
	return nil
}

func printSummary(w io.Writer, s *types.RunSummary, outputDir string) {
	fmt.Fprintf(w, "Download summary: found %d, downloaded %d, failed %d, skipped %d\n",
		s.Found, s.Downloaded, s.Failed, s.Skipped)
	fmt.Fprintf(w, "Summary written to %s\n", filepath.Join(outputDir, session.SummaryFile))
}
