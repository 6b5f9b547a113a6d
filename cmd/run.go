package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-legal/casebook-cli/internal/extract"
	"github.com/meridian-legal/casebook-cli/internal/model"
	"github.com/meridian-legal/casebook-cli/internal/pipeline"
	"github.com/meridian-legal/casebook-cli/internal/ratelimit"
	"github.com/meridian-legal/casebook-cli/internal/source"
	"github.com/meridian-legal/casebook-cli/internal/store"
	anthropicpkg "github.com/meridian-legal/casebook-cli/pkg/anthropic"
	"github.com/meridian-legal/casebook-cli/pkg/azureopenai"
	"github.com/meridian-legal/casebook-cli/pkg/notion"
)

var (
	runInput      string
	runOutput     string
	runCheckpoint string
	runStartPage  int
	runEndPage    int
	runResume     bool
	runRPM        int
	runLayout     string
	runEncoding   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run case extraction over a source dump",
	Long:  "Loads a page dump, table dump, or workbook, sends each work unit through the extraction service, and writes the consolidated case list with a checkpoint after every unit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		applyRunFlags(cmd)
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		svc, err := buildService()
		if err != nil {
			return err
		}

		limiter := ratelimit.New(cfg.Extract.RequestsPerMinute)
		gw := extract.NewGateway(svc, limiter, extract.Config{
			MaxAttempts: cfg.Extract.MaxAttempts,
			RetryDelay:  time.Duration(cfg.Extract.RetryDelaySecs) * time.Second,
			Timeout:     time.Duration(cfg.Extract.TimeoutSecs) * time.Second,
		})

		layout := source.DefaultLayout()
		if cfg.Source.LayoutPath != "" {
			layout, err = source.LoadLayout(cfg.Source.LayoutPath)
			if err != nil {
				return eris.Wrap(err, "load layout")
			}
		}

		units, err := source.Load(runInput, layout, source.Options{
			StartPage: cfg.Source.StartPage,
			EndPage:   cfg.Source.EndPage,
			Encoding:  cfg.Source.Encoding,
		})
		if err != nil {
			return eris.Wrap(err, "load source")
		}

		pcfg := pipeline.Config{
			Source:         runInput,
			OutputPath:     cfg.Pipeline.OutputPath,
			CheckpointPath: cfg.Pipeline.CheckpointPath,
			Resume:         runResume,
			Rewind:         cfg.Pipeline.Rewind,
			MinUnitChars:   cfg.Pipeline.MinUnitChars,
			FuzzyThreshold: cfg.Pipeline.FuzzyThreshold,
		}
		// Page bounds double as unit bounds for page dumps. Row units are
		// already bounded by the source reader.
		if len(units) > 0 && !units[0].IsRow() {
			pcfg.StartUnit = cfg.Source.StartPage
			pcfg.EndUnit = cfg.Source.EndPage
		}

		// Run history is best effort: a store that fails to open degrades
		// to a warning and the run proceeds without it.
		st := openRunStore(ctx)
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		var runRec *model.Run
		if st != nil {
			runRec, err = st.CreateRun(ctx, runInput)
			if err != nil {
				zap.L().Warn("record run start failed, continuing without history", zap.Error(err))
				runRec = nil
			}
		}

		orch := pipeline.New(gw, pcfg)
		summary, runErr := orch.Run(ctx, units)
		if runErr != nil {
			summary = &model.RunSummary{
				State:      model.RunStateFailed,
				Source:     runInput,
				ErrorCount: len(gw.Errors()),
			}
		}

		finishRun(ctx, st, runRec, summary, gw.Errors())

		if runErr != nil {
			return eris.Wrap(runErr, "pipeline run")
		}

		zap.L().Info("extraction complete",
			zap.String("source", runInput),
			zap.Int("units_processed", summary.UnitsProcessed),
			zap.Int("cases", summary.CaseCount),
			zap.Int("duplicates", summary.DuplicateCount),
			zap.Int("errors", summary.ErrorCount),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

// applyRunFlags lets explicit flags override file and environment config.
func applyRunFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("output") {
		cfg.Pipeline.OutputPath = runOutput
	}
	if cmd.Flags().Changed("checkpoint") {
		cfg.Pipeline.CheckpointPath = runCheckpoint
	}
	if cmd.Flags().Changed("start") {
		cfg.Source.StartPage = runStartPage
	}
	if cmd.Flags().Changed("end") {
		cfg.Source.EndPage = runEndPage
	}
	if cmd.Flags().Changed("rpm") {
		cfg.Extract.RequestsPerMinute = runRPM
	}
	if cmd.Flags().Changed("layout") {
		cfg.Source.LayoutPath = runLayout
	}
	if cmd.Flags().Changed("encoding") {
		cfg.Source.Encoding = runEncoding
	}
}

// buildService constructs the configured completion backend.
func buildService() (extract.Service, error) {
	switch cfg.Extract.Provider {
	case "anthropic":
		opts := []anthropicpkg.Option{
			anthropicpkg.WithModel(cfg.Anthropic.Model),
			anthropicpkg.WithMaxTokens(int64(cfg.Anthropic.MaxTokens)),
		}
		if cfg.Anthropic.Temperature > 0 {
			opts = append(opts, anthropicpkg.WithTemperature(cfg.Anthropic.Temperature))
		}
		return anthropicpkg.NewClient(cfg.Anthropic.Key, opts...), nil
	case "azureopenai":
		opts := []azureopenai.Option{
			azureopenai.WithAPIVersion(cfg.AzureOpenAI.APIVersion),
			azureopenai.WithMaxTokens(cfg.AzureOpenAI.MaxTokens),
		}
		if cfg.AzureOpenAI.Temperature > 0 {
			opts = append(opts, azureopenai.WithTemperature(cfg.AzureOpenAI.Temperature))
		}
		return azureopenai.NewClient(cfg.AzureOpenAI.Endpoint, cfg.AzureOpenAI.Key, cfg.AzureOpenAI.Deployment, opts...), nil
	}
	return nil, eris.Errorf("unknown extract provider %q", cfg.Extract.Provider)
}

// openRunStore opens the local run history store, or returns nil if it
// cannot be used.
func openRunStore(ctx context.Context) store.Store {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		zap.L().Warn("run store unavailable, continuing without history", zap.Error(err))
		return nil
	}
	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("run store migrate failed, continuing without history", zap.Error(err))
		st.Close() //nolint:errcheck
		return nil
	}
	return st
}

// finishRun records the settled run in local history and the Notion run
// log. Neither sink is allowed to fail the run.
func finishRun(ctx context.Context, st store.Store, runRec *model.Run, summary *model.RunSummary, errs []model.UnitError) {
	if st != nil && runRec != nil {
		if err := st.CompleteRun(ctx, runRec.ID, summary); err != nil {
			zap.L().Warn("record run completion failed", zap.Error(err))
		}
		if len(errs) > 0 {
			if err := st.RecordUnitErrors(ctx, runRec.ID, errs); err != nil {
				zap.L().Warn("record unit errors failed", zap.Error(err))
			}
		}
	}

	if cfg.Notion.Token == "" || cfg.Notion.RunDB == "" {
		return
	}

	now := time.Now().UTC()
	run := model.Run{
		ID:             uuid.New().String(),
		Source:         summary.Source,
		State:          summary.State,
		StartedAt:      now.Add(-summary.Elapsed),
		CompletedAt:    &now,
		UnitsProcessed: summary.UnitsProcessed,
		UnitsSkipped:   summary.UnitsSkipped,
		CaseCount:      summary.CaseCount,
		DuplicateCount: summary.DuplicateCount,
		ErrorCount:     summary.ErrorCount,
	}
	if runRec != nil {
		run.ID = runRec.ID
		run.StartedAt = runRec.StartedAt
	}

	client := notion.NewClient(cfg.Notion.Token)
	if _, err := notion.NewRunLog(client, cfg.Notion.RunDB).Record(ctx, run); err != nil {
		zap.L().Warn("notion run log failed", zap.Error(err))
	}
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "source dump or workbook path (required)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "consolidated output path (default from config)")
	runCmd.Flags().StringVar(&runCheckpoint, "checkpoint", "", "checkpoint path (default from config)")
	runCmd.Flags().IntVar(&runStartPage, "start", 0, "first page to process")
	runCmd.Flags().IntVar(&runEndPage, "end", 0, "last page to process (0 = last)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume from the checkpoint")
	runCmd.Flags().IntVar(&runRPM, "rpm", 0, "extraction requests per minute (default from config)")
	runCmd.Flags().StringVar(&runLayout, "layout", "", "table layout YAML path")
	runCmd.Flags().StringVar(&runEncoding, "encoding", "", "dump file encoding (e.g. windows-1252)")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
