// Package index computes a buy-and-hold commodity basket index with periodic
// reconstitution, in excess return and total return form.
//
// A Calculator reads target weights, prices, market disruption flags and
// collateral rates from injected sources and produces a State holding the
// level, reported weights and unit quantities for every date. Between
// reconstitutions the quantities are held fixed; a reconstitution happens on
// any date whose normalized target weights differ from the previous date's.
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"cloud.google.com/go/civil"

	"commodex/internal/domain"
)

// DefaultStartLevel is the index level on the first date when neither the
// caller nor the configuration supplies one.
const DefaultStartLevel = 100.0

// Config controls a Calculator.
type Config struct {
	StartLevel float64
	Mode       domain.Mode
	// Fallback resolves prices of commodities entering the basket whose
	// prior-date price is unavailable. Nil means
	// FallbackDefault(DefaultFallbackPrice).
	Fallback PriceFallback
}

// DefaultConfig returns an excess return configuration starting at 100.
func DefaultConfig() Config {
	return Config{
		StartLevel: DefaultStartLevel,
		Mode:       domain.ModeExcessReturn,
	}
}

// Calculator computes index states. It holds no per-run state, so Compute may
// be called concurrently provided the sources tolerate it.
type Calculator struct {
	cfg     Config
	sources Sources
	log     *slog.Logger
}

// NewCalculator creates a Calculator. Zero-valued config fields take their
// defaults and a nil logger means slog.Default().
func NewCalculator(cfg Config, sources Sources, log *slog.Logger) *Calculator {
	if cfg.StartLevel <= 0 {
		cfg.StartLevel = DefaultStartLevel
	}
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeExcessReturn
	}
	if log == nil {
		log = slog.Default()
	}
	return &Calculator{cfg: cfg, sources: sources, log: log}
}

// Config returns the effective configuration.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Compute runs the index over dates, which are sorted and de-duplicated
// first. initialLevel is the level on the first date; zero selects the
// configured start level and a negative or non-finite value is rejected with
// ErrInvalidLevel.
func (c *Calculator) Compute(dates []civil.Date, initialLevel float64) (*State, error) {
	if len(dates) == 0 {
		return nil, ErrEmptyDates
	}
	if err := c.checkSources(); err != nil {
		return nil, err
	}
	if !c.cfg.Mode.Valid() {
		return nil, fmt.Errorf("index: unknown mode %q", c.cfg.Mode)
	}

	level := initialLevel
	switch {
	case level < 0 || math.IsNaN(level) || math.IsInf(level, 0):
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, initialLevel)
	case level == 0:
		level = c.cfg.StartLevel
	}

	r := &run{
		cfg:     c.cfg,
		sources: c.sources,
		cache:   NewPriceCache(c.sources.Prices, c.cfg.Fallback, c.log),
		log:     c.log,
	}
	state, err := r.compute(uniqueSorted(dates), level)
	if err != nil {
		return nil, err
	}

	last, final := state.Last()
	c.log.Info("index computed",
		"mode", string(c.cfg.Mode),
		"dates", len(state.Levels),
		"last_date", last.String(),
		"final_level", final,
		"reconstitutions", len(state.Reconstitutions),
		"price_lookups", r.cache.Calls(),
	)
	return state, nil
}

func (c *Calculator) checkSources() error {
	var missing []error
	if c.sources.Weights == nil {
		missing = append(missing, errors.New("weight source"))
	}
	if c.sources.Prices == nil {
		missing = append(missing, errors.New("price source"))
	}
	if c.sources.Disruptions == nil {
		missing = append(missing, errors.New("disruption source"))
	}
	if len(missing) > 0 {
		return fmt.Errorf("index: missing required sources: %w", errors.Join(missing...))
	}
	return nil
}

// run carries the private state of a single Compute call.
type run struct {
	cfg     Config
	sources Sources
	cache   *PriceCache
	log     *slog.Logger
}

func (r *run) compute(dates []civil.Date, level float64) (*State, error) {
	state := newState(r.cfg.Mode, len(dates))

	t0 := dates[0]
	target, err := r.targetWeights(t0)
	if err != nil {
		return nil, err
	}
	held, prices, err := r.bootstrap(t0, target, level)
	if err != nil {
		return nil, err
	}
	state.record(t0, level, valueWeights(held, prices), held)

	for i := 1; i < len(dates); i++ {
		tPrev, t := dates[i-1], dates[i]

		s, err := r.advance(tPrev, t, level, held)
		if err != nil {
			return nil, err
		}

		now, err := r.targetWeights(t)
		if err != nil {
			return nil, err
		}

		if WeightsChanged(target, now) {
			rb, err := r.reconstitute(tPrev, t, held, s.prevPrices, s.disrupted, now)
			if err != nil {
				return nil, err
			}
			held = rb.quantities
			state.Reconstitutions = append(state.Reconstitutions, t)
			r.log.Debug("reconstituted",
				"date", t.String(),
				"commodities", len(held),
				"disrupted", len(rb.disrupted),
				"remaining_notional", rb.remaining,
			)
		}

		target = now
		level = s.level
		// Commodities entering the basket on t have no effective price yet
		// and report a zero weight until the next date.
		state.record(t, level, valueWeights(held, s.effPrices), held)
	}

	state.Prices = r.cache.Snapshot()
	return state, nil
}

func (r *run) targetWeights(d civil.Date) (domain.WeightMap, error) {
	raw, err := r.sources.Weights.Weights(d)
	if err != nil {
		return nil, fmt.Errorf("weights on %s: %w", d, err)
	}
	return Normalize(raw), nil
}

func (r *run) disrupted(d civil.Date, c domain.CommodityID) (bool, error) {
	flag, err := r.sources.Disruptions.Disrupted(d, c)
	if err != nil {
		return false, fmt.Errorf("disruption flag %s on %s: %w", c, d, err)
	}
	return flag, nil
}

func (r *run) collateralRate(d civil.Date) (float64, error) {
	if r.sources.Collateral == nil {
		return 0, ErrNoCollateralSource
	}
	rate, err := r.sources.Collateral.Rate(d)
	if err != nil {
		return 0, fmt.Errorf("collateral rate on %s: %w", d, err)
	}
	return rate, nil
}
