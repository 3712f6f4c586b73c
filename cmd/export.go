package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/store"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every stored company record to XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("export"); err != nil {
			return err
		}
		if cmd.Flags().Changed("output") {
			cfg.Run.Output = exportOutput
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return exportStored(ctx, st, cfg.Run.Output)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "XLSX output path; overrides run.output")
	rootCmd.AddCommand(exportCmd)
}

func exportStored(ctx context.Context, st store.Store, output string) error {
	records, err := st.ListCompanies(ctx)
	if err != nil {
		return eris.Wrap(err, "list companies")
	}
	saved, err := pipeline.ExportXLSX(records, output)
	if err != nil {
		return eris.Wrap(err, "export records")
	}
	if saved {
		zap.L().Info("export complete", zap.String("output", output), zap.Int("records", len(records)))
	}
	return nil
}
