package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-legal/casebook-cli/internal/pipeline"
	"github.com/meridian-legal/casebook-cli/internal/store"
)

var publishInput string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish consolidated cases to Postgres",
	Long:  "Upserts a consolidated case file into the Postgres instance the downstream search service reads from.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("publish"); err != nil {
			return err
		}

		input := publishInput
		if input == "" {
			input = cfg.Pipeline.OutputPath
		}

		cases, err := pipeline.LoadCases(input)
		if err != nil {
			return eris.Wrap(err, "load cases")
		}

		pub, err := store.NewPublisher(ctx, cfg.Publish.DatabaseURL, &store.PoolConfig{
			MaxConns: int32(cfg.Publish.MaxConns),
			MinConns: int32(cfg.Publish.MinConns),
		})
		if err != nil {
			return eris.Wrap(err, "connect publisher")
		}
		defer pub.Close() //nolint:errcheck

		if err := pub.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate publisher")
		}

		n, err := pub.PublishCases(ctx, cases)
		if err != nil {
			return eris.Wrap(err, "publish cases")
		}

		zap.L().Info("publish complete",
			zap.String("input", input),
			zap.Int64("published", n),
			zap.Int("cases", len(cases)),
		)
		fmt.Printf("Published %d of %d cases.\n", n, len(cases))
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishInput, "input", "", "consolidated case file (default from config)")
	rootCmd.AddCommand(publishCmd)
}
