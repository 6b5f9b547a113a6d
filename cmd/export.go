package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-legal/casebook-cli/internal/export"
	"github.com/meridian-legal/casebook-cli/internal/pipeline"
)

var (
	exportInput string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export consolidated cases to a workbook",
	Long:  "Flattens a consolidated case file into one row per case and writes an .xlsx workbook for review.",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := exportInput
		if input == "" {
			input = cfg.Pipeline.OutputPath
		}

		cases, err := pipeline.LoadCases(input)
		if err != nil {
			return eris.Wrap(err, "load cases")
		}

		records := export.FlattenCases(cases)
		if err := export.WriteWorkbook(exportOut, records); err != nil {
			return eris.Wrap(err, "write workbook")
		}

		zap.L().Info("export complete",
			zap.String("input", input),
			zap.String("out", exportOut),
			zap.Int("cases", len(records)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportInput, "input", "", "consolidated case file (default from config)")
	exportCmd.Flags().StringVar(&exportOut, "out", "cases.xlsx", "workbook path to write")
	rootCmd.AddCommand(exportCmd)
}
