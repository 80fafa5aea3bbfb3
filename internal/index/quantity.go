package index

import (
	"fmt"
	"math"

	"cloud.google.com/go/civil"

	"commodex/internal/domain"
)

// bootstrap sizes the initial holdings so that the portfolio is worth level
// at t0 prices: q[c] = w[c]·level / p[c], or zero when the price is zero.
func (r *run) bootstrap(t0 civil.Date, weights domain.WeightMap, level float64) (domain.QuantityMap, map[domain.CommodityID]float64, error) {
	prices := make(map[domain.CommodityID]float64, len(weights))
	quantities := make(domain.QuantityMap, len(weights))
	for _, c := range weights.Keys() {
		p, err := r.cache.Price(t0, c)
		if err != nil {
			return nil, nil, err
		}
		prices[c] = p
		quantities[c] = unitsFor(weights[c]*level, p)
	}
	return quantities, prices, nil
}

// rebalance is the outcome of a reconstitution.
type rebalance struct {
	quantities domain.QuantityMap
	// execPrices are the prior-date prices the trades executed at, including
	// fallback prices for commodities new to the holdings.
	execPrices map[domain.CommodityID]float64
	disrupted  []domain.CommodityID
	remaining  float64
}

// reconstitute resets the holdings to target at t, trading at the prior
// close. Commodities disrupted on t keep their previous quantity; the rest
// of the prior notional is spread over the non-disrupted commodities in
// proportion to their renormalized target weights.
//
// known carries disruption flags already read for t so the source is not
// asked twice for the same commodity.
func (r *run) reconstitute(
	tPrev, t civil.Date,
	held domain.QuantityMap,
	prevPrices map[domain.CommodityID]float64,
	known map[domain.CommodityID]bool,
	target domain.WeightMap,
) (*rebalance, error) {
	universe := make(domain.QuantityMap, len(held)+len(target))
	for c := range held {
		universe[c] = 0
	}
	for c := range target {
		universe[c] = 0
	}
	names := universe.Keys()

	rb := &rebalance{
		quantities: make(domain.QuantityMap, len(names)),
		execPrices: make(map[domain.CommodityID]float64, len(names)),
	}

	disrupted := make(map[domain.CommodityID]bool, len(names))
	var total, fixed float64
	for _, c := range names {
		d, ok := known[c]
		if !ok {
			var err error
			if d, err = r.disrupted(t, c); err != nil {
				return nil, err
			}
		}
		disrupted[c] = d

		p, ok := prevPrices[c]
		if !ok {
			var err error
			if p, err = r.cache.SafePrice(tPrev, c); err != nil {
				return nil, fmt.Errorf("bootstrapping %s for reconstitution on %s: %w", c, t, err)
			}
		}
		rb.execPrices[c] = p

		value := held.Get(c) * p
		total += value
		if d {
			fixed += value
			rb.disrupted = append(rb.disrupted, c)
		}
	}
	rb.remaining = math.Max(total-fixed, 0)

	tradable := make(domain.WeightMap, len(names))
	for _, c := range names {
		if !disrupted[c] {
			tradable[c] = target.Get(c)
		}
	}
	shares := Normalize(tradable)

	for _, c := range names {
		if disrupted[c] {
			rb.quantities[c] = held.Get(c)
			continue
		}
		rb.quantities[c] = unitsFor(shares[c]*rb.remaining, rb.execPrices[c])
	}
	return rb, nil
}

// unitsFor converts a notional into units at price, treating a zero price as
// zero units.
func unitsFor(notional, price float64) float64 {
	if price == 0 {
		return 0
	}
	return notional / price
}
