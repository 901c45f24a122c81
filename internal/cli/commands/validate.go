package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/veriq-labs/veriq/internal/cli/output"
	"github.com/veriq-labs/veriq/internal/config"
	"github.com/veriq-labs/veriq/internal/engine"
	"github.com/veriq-labs/veriq/internal/linker"
	"github.com/veriq-labs/veriq/internal/loader"
	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
	"github.com/veriq-labs/veriq/pkg/suite"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a dataset against an expectation suite",
		Long: `Evaluate every expectation in the suite against the dataset and report
per-rule outcomes with row-level violation details.

A single failing or erroring rule never aborts the run; the remaining
rules still execute and the command exits non-zero at the end.`,
		Example: `  # Validate a CSV file against a suite
  veriq validate --data orders.csv --suite orders_suite.json

  # Validate a sampled subset and export the full report
  veriq validate --data orders.csv --suite orders_suite.json --sample --output run.json

  # Export the violating rows for triage
  veriq validate --data orders.csv --suite orders_suite.json --failed-records failed.csv`,
		RunE: runValidate,
	}

	cmd.Flags().String("data", "", "Path to the dataset file (.csv or .json)")
	cmd.Flags().String("suite", "", "Path to the expectation suite file (.json or .yaml)")
	cmd.Flags().String("table-name", "", "Table alias custom SQL queries resolve the dataset under")
	cmd.Flags().Int("workers", 0, "Number of concurrent rule evaluations (0 = one per rule, capped)")
	cmd.Flags().String("rule-timeout", "", "Per-rule evaluation timeout (e.g. 30s)")
	cmd.Flags().Bool("sample", false, "Validate a random sample of the dataset")
	cmd.Flags().Int("sample-size", 0, "Number of rows kept when sampling")
	cmd.Flags().Int64("sample-seed", 0, "Seed for deterministic sampling")
	cmd.Flags().StringP("output", "o", "", "Write the validation run as JSON to this path")
	cmd.Flags().String("failed-records", "", "Write violating rows as CSV to this path")

	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Data == "" {
		return fmt.Errorf("no dataset given (use --data or set data in %s)", config.ConfigFileName)
	}
	if cfg.Suite == "" {
		return fmt.Errorf("no suite given (use --suite or set suite in %s)", config.ConfigFileName)
	}

	logger := config.GetLogger(cmd.Context())

	snap, err := loader.Load(cfg.Data)
	if err != nil {
		return err
	}
	logger.Debug("dataset loaded", "name", snap.Name(), "rows", snap.RowCount(), "columns", len(snap.Columns()))

	if cfg.Sample && snap.RowCount() > cfg.SampleSize {
		snap, err = snap.Sample(cfg.SampleSize, cfg.SampleSeed)
		if err != nil {
			return fmt.Errorf("failed to sample dataset: %w", err)
		}
		logger.Debug("dataset sampled", "rows", snap.RowCount(), "seed", cfg.SampleSeed)
	}

	su, err := suite.Load(cfg.Suite)
	if err != nil {
		return err
	}

	ruleTimeout, err := cfg.RuleTimeoutDuration()
	if err != nil {
		return err
	}

	adapterCfg := cfg.AdapterConfig()
	eng, err := engine.New(engine.Config{
		TableName:     cfg.TableName,
		Workers:       cfg.Workers,
		RuleTimeout:   ruleTimeout,
		AdapterConfig: &adapterCfg,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	run, err := eng.Evaluate(cmd.Context(), su, snap)
	if err != nil {
		return err
	}

	output.RenderRun(cmd.OutOrStdout(), run)

	if cfg.Output != "" {
		if err := output.WriteRunJSON(cfg.Output, run); err != nil {
			return err
		}
	}

	if cfg.FailedRecords != "" {
		if err := exportFailedRecords(cfg.FailedRecords, snap, run, logger); err != nil {
			return err
		}
	}

	if run.Summary.Failed > 0 || run.Summary.Errored > 0 {
		return fmt.Errorf("validation failed: %d expectation(s) failed, %d errored",
			run.Summary.Failed, run.Summary.Errored)
	}
	return nil
}

func exportFailedRecords(path string, snap *dataset.Snapshot, run *core.ValidationRun, logger *slog.Logger) error {
	records, err := linker.Materialize(snap, run)
	if err != nil {
		// Resolved records are still usable; report the orphans and keep going.
		logger.Warn("some violating rows could not be linked", "error", err)
	}
	return output.WriteFailedRecordsCSV(path, snap, records)
}
