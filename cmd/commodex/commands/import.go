package commands

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"commodex/internal/domain"
	"commodex/internal/index"
	"commodex/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Load index inputs from CSV into the stores",
	Long: `Load index inputs from a CSV file with rows of the form

  kind,date,commodity,value

where kind is one of:
  price       settlement price; value is the close
  weight      published target weight, effective from date
  disruption  market disruption event; value is an optional reason
  collateral  daily collateral rate; commodity is ignored

A header row starting with "kind" is skipped. Existing rows for the same
key are replaced. Use "-" to read standard input.

Example:
  commodex import inputs.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// importBatch holds parsed CSV rows grouped by destination.
type importBatch struct {
	Prices      []domain.PricePoint
	Weights     []domain.WeightEntry
	Disruptions []domain.Disruption
	Rates       []domain.CollateralRate
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	batch, err := parseImport(r)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	if err := store.NewParquetStore(cfg.Storage.DataDir).WritePrices(ctx, batch.Prices); err != nil {
		return fmt.Errorf("saving prices: %w", err)
	}

	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveWeights(ctx, batch.Weights); err != nil {
		return fmt.Errorf("saving weights: %w", err)
	}
	if err := db.SaveDisruptions(ctx, batch.Disruptions); err != nil {
		return fmt.Errorf("saving disruptions: %w", err)
	}
	if err := db.SaveCollateralRates(ctx, batch.Rates); err != nil {
		return fmt.Errorf("saving collateral rates: %w", err)
	}

	logger.Info("import complete",
		"prices", len(batch.Prices),
		"weights", len(batch.Weights),
		"disruptions", len(batch.Disruptions),
		"rates", len(batch.Rates),
	)
	return nil
}

// parseImport reads kind,date,commodity,value rows. Errors name the
// offending line.
func parseImport(r io.Reader) (*importBatch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	batch := &importBatch{}
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if first && strings.EqualFold(strings.TrimSpace(rec[0]), "kind") {
			continue
		}
		if err := batch.add(rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return batch, nil
}

func (b *importBatch) add(rec []string) error {
	if len(rec) < 3 {
		return fmt.Errorf("want kind,date,commodity[,value], got %d fields", len(rec))
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	kind := strings.ToLower(rec[0])
	d, err := index.ToDate(rec[1])
	if err != nil {
		return err
	}
	commodity := domain.CommodityID(strings.ToUpper(rec[2]))
	value := ""
	if len(rec) > 3 {
		value = rec[3]
	}

	number := func() (float64, error) {
		if value == "" {
			return 0, fmt.Errorf("%s row needs a value", kind)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%s value %q: %w", kind, value, err)
		}
		return f, nil
	}
	needCommodity := func() error {
		if commodity == "" {
			return fmt.Errorf("%s row needs a commodity", kind)
		}
		return nil
	}

	switch kind {
	case "price":
		if err := needCommodity(); err != nil {
			return err
		}
		f, err := number()
		if err != nil {
			return err
		}
		b.Prices = append(b.Prices, domain.PricePoint{Commodity: commodity, Date: d, Close: f})
	case "weight":
		if err := needCommodity(); err != nil {
			return err
		}
		f, err := number()
		if err != nil {
			return err
		}
		b.Weights = append(b.Weights, domain.WeightEntry{Date: d, Commodity: commodity, Weight: f})
	case "disruption":
		if err := needCommodity(); err != nil {
			return err
		}
		b.Disruptions = append(b.Disruptions, domain.Disruption{Date: d, Commodity: commodity, Reason: value})
	case "collateral":
		f, err := number()
		if err != nil {
			return err
		}
		b.Rates = append(b.Rates, domain.CollateralRate{Date: d, Rate: f})
	default:
		return fmt.Errorf("unknown kind %q", rec[0])
	}
	return nil
}
