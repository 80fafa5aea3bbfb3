package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/parquet-go/parquet-go"

	"commodex/internal/domain"
)

// Compile-time interface check.
var _ PriceStore = (*ParquetStore)(nil)

// ParquetStore implements PriceStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// PriceRecord is the Parquet schema for daily settlement prices.
type PriceRecord struct {
	Commodity string  `parquet:"commodity"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // UTC midnight, Unix ms
	Close     float64 `parquet:"close"`
}

// WritePrices writes prices to Parquet files organized by commodity and
// year. Each commodity+year combination produces a separate file at:
//
//	<DataDir>/prices/<COMMODITY>/<YYYY>.parquet
func (s *ParquetStore) WritePrices(_ context.Context, prices []domain.PricePoint) error {
	if len(prices) == 0 {
		return nil
	}

	type key struct {
		commodity domain.CommodityID
		year      int
	}
	groups := make(map[key][]PriceRecord)
	for _, p := range prices {
		k := key{commodity: p.Commodity, year: p.Date.Year}
		groups[k] = append(groups[k], PriceRecord{
			Commodity: string(p.Commodity),
			Timestamp: dateMillis(p.Date),
			Close:     p.Close,
		})
	}

	for k, records := range groups {
		path := s.pricePath(k.commodity, k.year)

		// Read existing records to merge. An unreadable file is left
		// untouched.
		existing, err := readParquetFile[PriceRecord](path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading prices for %s/%d before merge: %w", k.commodity, k.year, err)
		}
		merged := mergePriceRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing prices for %s/%d: %w", k.commodity, k.year, err)
		}
	}
	return nil
}

// ReadPrices reads prices from Parquet files for the given commodity and
// date range.
func (s *ParquetStore) ReadPrices(_ context.Context, commodity domain.CommodityID, start, end civil.Date) ([]domain.PricePoint, error) {
	from, to := dateMillis(start), dateMillis(end)

	var out []domain.PricePoint
	for year := start.Year; year <= end.Year; year++ {
		path := s.pricePath(commodity, year)

		records, err := readParquetFile[PriceRecord](path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading prices for %s/%d: %w", commodity, year, err)
		}

		for _, r := range records {
			if r.Timestamp < from || r.Timestamp > to {
				continue
			}
			out = append(out, domain.PricePoint{
				Commodity: domain.CommodityID(r.Commodity),
				Date:      millisDate(r.Timestamp),
				Close:     r.Close,
			})
		}
	}
	return out, nil
}

// ListCommodities lists all commodities that have price data.
func (s *ParquetStore) ListCommodities(_ context.Context) ([]domain.CommodityID, error) {
	dir := filepath.Join(s.DataDir, "prices")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var commodities []domain.CommodityID
	for _, e := range entries {
		if e.IsDir() {
			commodities = append(commodities, domain.CommodityID(e.Name()))
		}
	}
	sort.Slice(commodities, func(i, j int) bool { return commodities[i] < commodities[j] })
	return commodities, nil
}

// ---------------------------------------------------------------------------
// Path and conversion helpers
// ---------------------------------------------------------------------------

// pricePath returns the filesystem path for a price Parquet file.
// Layout: <dataDir>/prices/<COMMODITY>/<YYYY>.parquet
func (s *ParquetStore) pricePath(commodity domain.CommodityID, year int) string {
	return filepath.Join(s.DataDir, "prices", strings.ToUpper(string(commodity)), fmt.Sprintf("%d.parquet", year))
}

func dateMillis(d civil.Date) int64 {
	return d.In(time.UTC).UnixMilli()
}

func millisDate(ms int64) civil.Date {
	return civil.DateOf(time.UnixMilli(ms).UTC())
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergePriceRecords deduplicates price records by (commodity, timestamp),
// preferring incoming records over existing ones. Results are sorted by
// timestamp.
func mergePriceRecords(existing, incoming []PriceRecord) []PriceRecord {
	type key struct {
		commodity string
		ts        int64
	}
	seen := make(map[key]PriceRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Commodity, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Commodity, r.Timestamp}] = r
	}

	merged := make([]PriceRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
