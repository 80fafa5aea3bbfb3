package index

import (
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"

	"commodex/internal/domain"
)

// DefaultFallbackPrice is the price assumed for a commodity entering the
// basket when its prior-date price cannot be resolved.
const DefaultFallbackPrice = 1.0

// PriceFallback decides what happens when a price for a commodity new to the
// holdings cannot be resolved during reconstitution. Returning an error
// aborts the run.
type PriceFallback func(d civil.Date, c domain.CommodityID, err error) (float64, error)

// FallbackDefault substitutes price for any unresolvable lookup.
func FallbackDefault(price float64) PriceFallback {
	return func(_ civil.Date, _ domain.CommodityID, _ error) (float64, error) {
		return price, nil
	}
}

// FallbackReject propagates the provider error.
func FallbackReject() PriceFallback {
	return func(_ civil.Date, _ domain.CommodityID, err error) (float64, error) {
		return 0, err
	}
}

// PriceCache memoizes successful PriceSource lookups by (date, commodity).
// Entries are written once and never evicted. Not safe for concurrent use;
// each Compute call owns its own cache.
type PriceCache struct {
	source   PriceSource
	fallback PriceFallback
	log      *slog.Logger
	prices   map[domain.PriceKey]float64
	calls    int
}

// NewPriceCache wraps source. A nil fallback selects
// FallbackDefault(DefaultFallbackPrice).
func NewPriceCache(source PriceSource, fallback PriceFallback, log *slog.Logger) *PriceCache {
	if fallback == nil {
		fallback = FallbackDefault(DefaultFallbackPrice)
	}
	if log == nil {
		log = slog.Default()
	}
	return &PriceCache{
		source:   source,
		fallback: fallback,
		log:      log,
		prices:   make(map[domain.PriceKey]float64),
	}
}

// Price returns the price of c on d, consulting the source only on a miss.
// Provider errors are returned wrapped and nothing is cached.
func (pc *PriceCache) Price(d civil.Date, c domain.CommodityID) (float64, error) {
	key := domain.PriceKey{Date: d, Commodity: c}
	if p, ok := pc.prices[key]; ok {
		return p, nil
	}

	pc.calls++
	p, err := pc.source.Price(d, c)
	if err != nil {
		return 0, fmt.Errorf("price %s on %s: %w", c, d, err)
	}
	pc.prices[key] = p
	return p, nil
}

// SafePrice behaves like Price but hands provider errors to the fallback
// policy. Fallback prices are not cached.
func (pc *PriceCache) SafePrice(d civil.Date, c domain.CommodityID) (float64, error) {
	p, err := pc.Price(d, c)
	if err == nil {
		return p, nil
	}

	p, ferr := pc.fallback(d, c, err)
	if ferr != nil {
		return 0, ferr
	}
	pc.log.Warn("using fallback price", "date", d.String(), "commodity", string(c), "price", p, "error", err)
	return p, nil
}

// Calls returns the number of lookups forwarded to the source.
func (pc *PriceCache) Calls() int {
	return pc.calls
}

// Snapshot returns a copy of the cached prices.
func (pc *PriceCache) Snapshot() map[domain.PriceKey]float64 {
	out := make(map[domain.PriceKey]float64, len(pc.prices))
	for k, v := range pc.prices {
		out[k] = v
	}
	return out
}
