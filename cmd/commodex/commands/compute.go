package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"commodex/internal/index"
	"commodex/internal/reference"
	"commodex/internal/report"
	"commodex/internal/source"
	"commodex/internal/store"
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the index from stored inputs",
	Long: `Compute the index over a date range from the configured stores.

The date range defaults to run.start_date and run.end_date from the config.
Calculation days come from run.calendar.

Example:
  commodex compute --from 2024-01-02 --to 2024-06-28
  commodex compute --mode both --format json --weights`,
	RunE: runCompute,
}

var (
	computeFrom      string
	computeTo        string
	computeMode      string
	computeLevel     float64
	computeFormat    string
	computeWeights   bool
	computePrecision int
)

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVar(&computeFrom, "from", "", "first calculation date (default run.start_date)")
	computeCmd.Flags().StringVar(&computeTo, "to", "", "last calculation date (default run.end_date)")
	computeCmd.Flags().StringVar(&computeMode, "mode", "", "ER, TR or both (default index.mode)")
	computeCmd.Flags().Float64Var(&computeLevel, "level", 0, "level on the first date (default index.start_level)")
	computeCmd.Flags().StringVar(&computeFormat, "format", "table", "table, summary or json")
	computeCmd.Flags().BoolVar(&computeWeights, "weights", false, "include per-commodity weights")
	computeCmd.Flags().IntVar(&computePrecision, "precision", report.DefaultPrecision, "decimal places")
}

func runCompute(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	from, to := computeFrom, computeTo
	if from == "" {
		from = cfg.Run.StartDate
	}
	if to == "" {
		to = cfg.Run.EndDate
	}
	if from == "" || to == "" {
		return errors.New("a date range is required: pass --from and --to or set run.start_date and run.end_date")
	}
	start, err := index.ToDate(from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	end, err := index.ToDate(to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	mode := computeMode
	if mode == "" {
		mode = cfg.Index.Mode
	}
	modes, err := parseModes(mode)
	if err != nil {
		return err
	}
	cfg.Index.Mode = string(modes[0])
	ic, err := cfg.IndexConfig()
	if err != nil {
		return err
	}

	catalog, err := reference.Load(cfg.Reference.CatalogPath)
	if err != nil {
		return err
	}
	cal, err := calendar(cfg.Run.Calendar, catalog)
	if err != nil {
		return err
	}
	dates, err := cal.Days(start, end)
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := source.Load(ctx, source.Stores{
		Prices:      store.NewParquetStore(cfg.Storage.DataDir),
		Weights:     db,
		Disruptions: db,
		Collateral:  db,
	}, start, end, logger)
	if err != nil {
		return err
	}

	logger.Info("computing index",
		"start", start.String(),
		"end", end.String(),
		"days", len(dates),
		"modes", mode,
		"commodities", len(snap.Commodities()),
	)

	states, err := runModes(ctx, ic, modes, snap.Sources(), dates, computeLevel, logger)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), states, computeFormat, report.Options{
		Precision: computePrecision,
		Weights:   computeWeights,
	})
}
