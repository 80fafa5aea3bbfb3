package index

import (
	"errors"
	"fmt"
	"math"

	"cloud.google.com/go/civil"

	"commodex/internal/domain"
)

var errNoPrice = errors.New("no price")

func day(n int) civil.Date {
	return civil.Date{Year: 2024, Month: 1, Day: 1}.AddDays(n)
}

func days(n int) []civil.Date {
	out := make([]civil.Date, n)
	for i := range out {
		out[i] = day(i)
	}
	return out
}

// fixture is an in-memory set of providers keyed by date.
type fixture struct {
	weights    map[civil.Date]domain.WeightMap
	defaultW   domain.WeightMap
	prices     map[domain.PriceKey]float64
	flatPrice  map[domain.CommodityID]float64
	disrupted  map[domain.PriceKey]bool
	rate       float64
	priceCalls int
}

func newFixture(w domain.WeightMap) *fixture {
	return &fixture{
		weights:   make(map[civil.Date]domain.WeightMap),
		defaultW:  w,
		prices:    make(map[domain.PriceKey]float64),
		flatPrice: make(map[domain.CommodityID]float64),
		disrupted: make(map[domain.PriceKey]bool),
	}
}

// weightsFrom sets the target weights from d onwards.
func (f *fixture) weightsFrom(d civil.Date, w domain.WeightMap) {
	f.weights[d] = w
}

func (f *fixture) Weights(d civil.Date) (domain.WeightMap, error) {
	var best civil.Date
	w := f.defaultW
	for from, ww := range f.weights {
		if !from.After(d) && (best.IsZero() || from.After(best)) {
			best, w = from, ww
		}
	}
	return w.Clone(), nil
}

func (f *fixture) Price(d civil.Date, c domain.CommodityID) (float64, error) {
	f.priceCalls++
	if p, ok := f.prices[domain.PriceKey{Date: d, Commodity: c}]; ok {
		return p, nil
	}
	if p, ok := f.flatPrice[c]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%s %s: %w", c, d, errNoPrice)
}

func (f *fixture) Disrupted(d civil.Date, c domain.CommodityID) (bool, error) {
	return f.disrupted[domain.PriceKey{Date: d, Commodity: c}], nil
}

func (f *fixture) Rate(civil.Date) (float64, error) {
	return f.rate, nil
}

func (f *fixture) sources() Sources {
	return Sources{Weights: f, Prices: f, Disruptions: f, Collateral: f}
}

// drifting returns a fixture whose prices wander deterministically.
func drifting(w domain.WeightMap, n int) *fixture {
	f := newFixture(w)
	base := map[domain.CommodityID]float64{"CL": 80, "NG": 3, "GC": 1900, "HG": 4.2}
	for i := 0; i < n; i++ {
		for c, b := range base {
			f.prices[domain.PriceKey{Date: day(i), Commodity: c}] = b * (1 + 0.01*math.Sin(float64(i)*0.7+float64(len(c))+b))
		}
	}
	return f
}
