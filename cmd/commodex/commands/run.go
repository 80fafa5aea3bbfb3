package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"commodex/internal/domain"
	"commodex/internal/index"
	"commodex/internal/report"
)

// parseModes maps a --mode value to the modes to run. "both" selects ER and
// TR.
func parseModes(s string) ([]domain.Mode, error) {
	if strings.EqualFold(s, "both") {
		return []domain.Mode{domain.ModeExcessReturn, domain.ModeTotalReturn}, nil
	}
	m := domain.Mode(strings.ToUpper(s))
	if !m.Valid() {
		return nil, fmt.Errorf("unknown mode %q (want ER, TR or both)", s)
	}
	return []domain.Mode{m}, nil
}

// runModes computes one state per mode concurrently. States are returned in
// the order of modes.
func runModes(ctx context.Context, base index.Config, modes []domain.Mode, sources index.Sources, dates []civil.Date, level float64, log *slog.Logger) ([]*index.State, error) {
	states := make([]*index.State, len(modes))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range modes {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cfg := base
			cfg.Mode = m
			calc := index.NewCalculator(cfg, sources, log.With("mode", string(m)))
			st, err := calc.Compute(dates, level)
			if err != nil {
				return fmt.Errorf("%s: %w", m, err)
			}
			states[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}

// render writes states in the requested format. JSON output is one document
// per state.
func render(w io.Writer, states []*index.State, format string, opts report.Options) error {
	for i, st := range states {
		switch strings.ToLower(format) {
		case "json":
			if err := report.WriteJSON(w, st, opts); err != nil {
				return err
			}
		case "table", "":
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := report.WriteSummary(w, report.Summarize(st), opts); err != nil {
				return err
			}
			fmt.Fprintln(w)
			if err := report.WriteTable(w, report.Rows(st), opts); err != nil {
				return err
			}
		case "summary":
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := report.WriteSummary(w, report.Summarize(st), opts); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format %q (want table, summary or json)", format)
		}
	}
	return nil
}
