// Package source adapts the input stores to the provider interfaces consumed
// by the index calculator.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"commodex/internal/domain"
	"commodex/internal/index"
	"commodex/internal/store"
	"commodex/internal/util"
)

// Reads of the relational stores are retried while SQLite reports the
// database as locked by another writer.
const (
	readAttempts = 4
	readDelay    = 50 * time.Millisecond
)

var (
	// ErrNoPrice is returned when no settlement price is stored for a
	// commodity on a date.
	ErrNoPrice = errors.New("no price")
	// ErrNoWeights is returned for dates before the first weight publication.
	ErrNoWeights = errors.New("no weights published")
	// ErrNoRate is returned when no collateral rate is stored for a date.
	ErrNoRate = errors.New("no collateral rate")
)

// Compile-time interface checks.
var (
	_ index.WeightSource     = (*Snapshot)(nil)
	_ index.PriceSource      = (*Snapshot)(nil)
	_ index.DisruptionSource = (*Snapshot)(nil)
	_ index.CollateralSource = (*Snapshot)(nil)
)

// Stores groups the stores a Snapshot is loaded from. Collateral may be nil
// for excess return runs.
type Stores struct {
	Prices      store.PriceStore
	Weights     store.WeightStore
	Disruptions store.DisruptionStore
	Collateral  store.CollateralStore
}

type publication struct {
	date    civil.Date
	weights domain.WeightMap
}

// Snapshot is an immutable in-memory view of the inputs for a date range.
// It is safe for concurrent use.
type Snapshot struct {
	publications []publication
	prices       map[domain.PriceKey]float64
	disruptions  map[domain.PriceKey]string
	rates        map[civil.Date]float64
}

// Load reads everything needed to compute the index over [start, end]. Price
// histories are read concurrently, one commodity per goroutine.
func Load(ctx context.Context, stores Stores, start, end civil.Date, log *slog.Logger) (*Snapshot, error) {
	if log == nil {
		log = slog.Default()
	}

	var entries []domain.WeightEntry
	err := util.Retry(ctx, readAttempts, readDelay, store.IsBusy, func() (err error) {
		entries, err = stores.Weights.ReadWeights(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading weights: %w", err)
	}
	snap := &Snapshot{
		publications: groupPublications(entries),
		prices:       make(map[domain.PriceKey]float64),
		disruptions:  make(map[domain.PriceKey]string),
		rates:        make(map[civil.Date]float64),
	}

	commodities := snap.Commodities()
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range commodities {
		c := c
		g.Go(func() error {
			points, err := stores.Prices.ReadPrices(gctx, c, start, end)
			if err != nil {
				return fmt.Errorf("loading prices for %s: %w", c, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, p := range points {
				snap.prices[domain.PriceKey{Date: p.Date, Commodity: c}] = p.Close
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var events []domain.Disruption
	err = util.Retry(ctx, readAttempts, readDelay, store.IsBusy, func() (err error) {
		events, err = stores.Disruptions.ReadDisruptions(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading disruptions: %w", err)
	}
	for _, e := range events {
		snap.disruptions[domain.PriceKey{Date: e.Date, Commodity: e.Commodity}] = e.Reason
	}

	if stores.Collateral != nil {
		var rates []domain.CollateralRate
		err := util.Retry(ctx, readAttempts, readDelay, store.IsBusy, func() (err error) {
			rates, err = stores.Collateral.ReadCollateralRates(ctx, start, end)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("loading collateral rates: %w", err)
		}
		for _, r := range rates {
			snap.rates[r.Date] = r.Rate
		}
	}

	log.Debug("loaded inputs",
		"start", start.String(),
		"end", end.String(),
		"publications", len(snap.publications),
		"commodities", len(commodities),
		"prices", len(snap.prices),
		"disruptions", len(snap.disruptions),
		"rates", len(snap.rates),
	)
	return snap, nil
}

// groupPublications folds weight entries into per-date maps sorted by date.
func groupPublications(entries []domain.WeightEntry) []publication {
	byDate := make(map[civil.Date]domain.WeightMap)
	for _, e := range entries {
		if byDate[e.Date] == nil {
			byDate[e.Date] = make(domain.WeightMap)
		}
		byDate[e.Date][e.Commodity] = e.Weight
	}

	pubs := make([]publication, 0, len(byDate))
	for d, w := range byDate {
		pubs = append(pubs, publication{date: d, weights: w})
	}
	sort.Slice(pubs, func(i, j int) bool { return pubs[i].date.Before(pubs[j].date) })
	return pubs
}

// Commodities returns every commodity named by any loaded publication.
func (s *Snapshot) Commodities() []domain.CommodityID {
	all := make(domain.WeightMap)
	for _, p := range s.publications {
		for c := range p.weights {
			all[c] = 0
		}
	}
	return all.Keys()
}

// PublicationDates returns the dates on which new weights were published.
func (s *Snapshot) PublicationDates() []civil.Date {
	out := make([]civil.Date, len(s.publications))
	for i, p := range s.publications {
		out[i] = p.date
	}
	return out
}

// Weights returns the latest publication on or before d.
func (s *Snapshot) Weights(d civil.Date) (domain.WeightMap, error) {
	i := sort.Search(len(s.publications), func(i int) bool { return s.publications[i].date.After(d) })
	if i == 0 {
		return nil, fmt.Errorf("%s: %w", d, ErrNoWeights)
	}
	return s.publications[i-1].weights.Clone(), nil
}

// Price returns the stored settlement price of c on d.
func (s *Snapshot) Price(d civil.Date, c domain.CommodityID) (float64, error) {
	p, ok := s.prices[domain.PriceKey{Date: d, Commodity: c}]
	if !ok {
		return 0, fmt.Errorf("%s on %s: %w", c, d, ErrNoPrice)
	}
	return p, nil
}

// Disrupted reports whether a disruption event is stored for c on d.
func (s *Snapshot) Disrupted(d civil.Date, c domain.CommodityID) (bool, error) {
	_, ok := s.disruptions[domain.PriceKey{Date: d, Commodity: c}]
	return ok, nil
}

// Rate returns the stored collateral rate for d.
func (s *Snapshot) Rate(d civil.Date) (float64, error) {
	r, ok := s.rates[d]
	if !ok {
		return 0, fmt.Errorf("%s: %w", d, ErrNoRate)
	}
	return r, nil
}

// Sources returns the snapshot as index sources. Collateral is left nil when
// no rates were loaded so that total return runs fail with
// index.ErrNoCollateralSource rather than a missing-rate error.
func (s *Snapshot) Sources() index.Sources {
	src := index.Sources{Weights: s, Prices: s, Disruptions: s}
	if len(s.rates) > 0 {
		src.Collateral = s
	}
	return src
}
