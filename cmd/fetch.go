package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-legal/casebook-cli/internal/fetch"
	"github.com/meridian-legal/casebook-cli/internal/resilience"
)

var fetchDir string

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>...",
	Short: "Download source documents",
	Long:  "Downloads page dumps, table dumps, or workbooks over HTTP(S) or FTP into a local directory, ready for a run.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dir := fetchDir
		if dir == "" {
			dir = cfg.Fetch.Dir
		}

		opts := fetch.Options{
			HTTP: fetch.HTTPOptions{
				UserAgent:         cfg.Fetch.UserAgent,
				Timeout:           time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
				RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
				Burst:             cfg.Fetch.Burst,
				Retry: resilience.FromRetryConfig(
					cfg.Fetch.RetryMaxAttempts,
					cfg.Fetch.RetryInitialBackoffMs,
					cfg.Fetch.RetryMaxBackoffMs,
					cfg.Fetch.RetryMultiplier,
					cfg.Fetch.RetryJitter,
				),
			},
			FTP: fetch.FTPOptions{
				Timeout: time.Duration(cfg.Fetch.FTPTimeoutSecs) * time.Second,
			},
		}

		results, err := fetch.FetchAll(ctx, args, dir, opts)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		zap.L().Info("fetch complete",
			zap.Int("files", len(results)),
			zap.String("dir", dir),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "download directory (default from config)")
	rootCmd.AddCommand(fetchCmd)
}
