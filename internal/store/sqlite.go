package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/civil"

	"commodex/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ WeightStore = (*SQLiteStore)(nil)
var _ DisruptionStore = (*SQLiteStore)(nil)
var _ CollateralStore = (*SQLiteStore)(nil)

// Dates are stored as ISO-8601 TEXT so that lexical order is date order.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS weights (
		date      TEXT NOT NULL,
		commodity TEXT NOT NULL,
		weight    REAL NOT NULL,
		PRIMARY KEY (date, commodity)
	)`,
	`CREATE TABLE IF NOT EXISTS disruptions (
		date      TEXT NOT NULL,
		commodity TEXT NOT NULL,
		reason    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (date, commodity)
	)`,
	`CREATE TABLE IF NOT EXISTS collateral_rates (
		date TEXT PRIMARY KEY,
		rate REAL NOT NULL
	)`,
}

// SQLiteStore implements WeightStore, DisruptionStore, and CollateralStore
// backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// WeightStore implementation
// ---------------------------------------------------------------------------

// SaveWeights upserts weight entries in a single transaction.
func (s *SQLiteStore) SaveWeights(ctx context.Context, entries []domain.WeightEntry) error {
	return s.inTx(ctx, `INSERT INTO weights (date, commodity, weight) VALUES (?, ?, ?)
		ON CONFLICT (date, commodity) DO UPDATE SET weight = excluded.weight`,
		len(entries), func(i int) []any {
			e := entries[i]
			return []any{e.Date.String(), string(e.Commodity), e.Weight}
		})
}

// ReadWeights returns the entries published within [start, end] plus the
// publication in effect at start.
func (s *SQLiteStore) ReadWeights(ctx context.Context, start, end civil.Date) ([]domain.WeightEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, commodity, weight FROM weights
		WHERE date <= ?
		  AND date >= COALESCE((SELECT MAX(date) FROM weights WHERE date <= ?), ?)
		ORDER BY date, commodity`,
		end.String(), start.String(), start.String())
	if err != nil {
		return nil, fmt.Errorf("querying weights: %w", err)
	}
	defer rows.Close()

	var out []domain.WeightEntry
	for rows.Next() {
		var (
			date, commodity string
			weight          float64
		)
		if err := rows.Scan(&date, &commodity, &weight); err != nil {
			return nil, err
		}
		d, err := civil.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("weights row %q: %w", date, err)
		}
		out = append(out, domain.WeightEntry{Date: d, Commodity: domain.CommodityID(commodity), Weight: weight})
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// DisruptionStore implementation
// ---------------------------------------------------------------------------

// SaveDisruptions upserts disruption events in a single transaction.
func (s *SQLiteStore) SaveDisruptions(ctx context.Context, events []domain.Disruption) error {
	return s.inTx(ctx, `INSERT INTO disruptions (date, commodity, reason) VALUES (?, ?, ?)
		ON CONFLICT (date, commodity) DO UPDATE SET reason = excluded.reason`,
		len(events), func(i int) []any {
			e := events[i]
			return []any{e.Date.String(), string(e.Commodity), e.Reason}
		})
}

// ReadDisruptions returns the disruption events within [start, end].
func (s *SQLiteStore) ReadDisruptions(ctx context.Context, start, end civil.Date) ([]domain.Disruption, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, commodity, reason FROM disruptions
		WHERE date >= ? AND date <= ? ORDER BY date, commodity`,
		start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("querying disruptions: %w", err)
	}
	defer rows.Close()

	var out []domain.Disruption
	for rows.Next() {
		var date, commodity, reason string
		if err := rows.Scan(&date, &commodity, &reason); err != nil {
			return nil, err
		}
		d, err := civil.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("disruptions row %q: %w", date, err)
		}
		out = append(out, domain.Disruption{Date: d, Commodity: domain.CommodityID(commodity), Reason: reason})
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// CollateralStore implementation
// ---------------------------------------------------------------------------

// SaveCollateralRates upserts collateral rates in a single transaction.
func (s *SQLiteStore) SaveCollateralRates(ctx context.Context, rates []domain.CollateralRate) error {
	return s.inTx(ctx, `INSERT INTO collateral_rates (date, rate) VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET rate = excluded.rate`,
		len(rates), func(i int) []any {
			return []any{rates[i].Date.String(), rates[i].Rate}
		})
}

// ReadCollateralRates returns the collateral rates within [start, end].
func (s *SQLiteStore) ReadCollateralRates(ctx context.Context, start, end civil.Date) ([]domain.CollateralRate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, rate FROM collateral_rates
		WHERE date >= ? AND date <= ? ORDER BY date`,
		start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("querying collateral rates: %w", err)
	}
	defer rows.Close()

	var out []domain.CollateralRate
	for rows.Next() {
		var (
			date string
			rate float64
		)
		if err := rows.Scan(&date, &rate); err != nil {
			return nil, err
		}
		d, err := civil.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("collateral_rates row %q: %w", date, err)
		}
		out = append(out, domain.CollateralRate{Date: d, Rate: rate})
	}
	return out, rows.Err()
}

// inTx executes stmt once per row inside a transaction.
func (s *SQLiteStore) inTx(ctx context.Context, stmt string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer prepared.Close()

	for i := 0; i < n; i++ {
		if _, err := prepared.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
