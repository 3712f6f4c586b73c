package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/pipeline"
)

var (
	enrichInput       string
	enrichOutput      string
	enrichConcurrency int
	enrichLimit       int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich every company in the input list and export the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyEnrichFlags(cmd)

		names, err := pipeline.ReadCompanyNames(cfg.Run.Input)
		if err != nil {
			return eris.Wrap(err, "read company names")
		}
		names = limitNames(names, enrichLimit)
		if len(names) == 0 {
			zap.L().Warn("no company names to process", zap.String("input", cfg.Run.Input))
			return nil
		}

		env, err := initEnrich(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return runAndExport(ctx, env.Pipeline, names, cfg.Run.Output)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "company names file (.txt, .csv or .xlsx); overrides run.input")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "XLSX output path; overrides run.output")
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", 0, "companies processed in parallel; overrides run.concurrency")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "process at most N companies (0 = all)")
	rootCmd.AddCommand(enrichCmd)
}

// applyEnrichFlags copies explicitly set flags over the loaded config.
func applyEnrichFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("input") {
		cfg.Run.Input = enrichInput
	}
	if cmd.Flags().Changed("output") {
		cfg.Run.Output = enrichOutput
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Run.Concurrency = enrichConcurrency
	}
}

func limitNames(names []string, limit int) []string {
	if limit > 0 && len(names) > limit {
		return names[:limit]
	}
	return names
}

// batchRunner is satisfied by *pipeline.Pipeline.
type batchRunner interface {
	Run(ctx context.Context, names []string) (*pipeline.RunReport, error)
}

// runAndExport runs the batch and always exports whatever it collected. A
// run error is returned after the export so the process exits non-zero.
func runAndExport(ctx context.Context, r batchRunner, names []string, output string) error {
	report, runErr := r.Run(ctx, names)
	if report == nil {
		return runErr
	}

	if _, err := pipeline.ExportXLSX(report.Records, output); err != nil {
		if runErr != nil {
			zap.L().Error("export after aborted run failed", zap.Error(err))
			return runErr
		}
		return eris.Wrap(err, "export results")
	}

	if report.QuotaExceeded {
		zap.L().Error("run stopped early: oracle quota exhausted",
			zap.Int("exported", len(report.Records)),
			zap.Int("unprocessed", report.Unprocessed),
		)
	}
	return runErr
}
