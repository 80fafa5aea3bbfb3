// Package domain defines the core value types shared by the index engine, the
// input stores, and the reporting layer.
package domain

import (
	"sort"

	"cloud.google.com/go/civil"
)

// CommodityID identifies a commodity within a weight or quantity map.
type CommodityID string

// Mode selects the index variant.
type Mode string

const (
	// ModeExcessReturn is the price-only index with no cash yield.
	ModeExcessReturn Mode = "ER"
	// ModeTotalReturn is the excess return index plus collateral accrual.
	ModeTotalReturn Mode = "TR"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeExcessReturn || m == ModeTotalReturn
}

// WeightMap maps commodities to their share of the portfolio.
type WeightMap map[CommodityID]float64

// Get returns the weight for c, or 0 when c is absent.
func (w WeightMap) Get(c CommodityID) float64 {
	return w[c]
}

// Keys returns the commodities in ascending order.
func (w WeightMap) Keys() []CommodityID {
	return sortedKeys(w)
}

// Clone returns an independent copy of w.
func (w WeightMap) Clone() WeightMap {
	out := make(WeightMap, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Sum adds the values in ascending key order so the result does not depend
// on map iteration order.
func (w WeightMap) Sum() float64 {
	var s float64
	for _, k := range w.Keys() {
		s += w[k]
	}
	return s
}

// QuantityMap maps commodities to the number of index units held.
type QuantityMap map[CommodityID]float64

// Get returns the quantity held in c, or 0 when c is absent.
func (q QuantityMap) Get(c CommodityID) float64 {
	return q[c]
}

// Keys returns the commodities in ascending order.
func (q QuantityMap) Keys() []CommodityID {
	return sortedKeys(q)
}

// Clone returns an independent copy of q.
func (q QuantityMap) Clone() QuantityMap {
	out := make(QuantityMap, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// PriceKey addresses a single cached price observation.
type PriceKey struct {
	Date      civil.Date
	Commodity CommodityID
}

// ---------------------------------------------------------------------------
// Input records
// ---------------------------------------------------------------------------

// PricePoint is a settlement price for one commodity on one date.
type PricePoint struct {
	Commodity CommodityID
	Date      civil.Date
	Close     float64
}

// WeightEntry is a target weight (CPW) published for a commodity, effective
// from Date until the next publication.
type WeightEntry struct {
	Date      civil.Date
	Commodity CommodityID
	Weight    float64
}

// Disruption flags a market disruption event for a commodity on a date.
type Disruption struct {
	Date      civil.Date
	Commodity CommodityID
	Reason    string
}

// CollateralRate is the simple daily collateral rate applicable to a date.
type CollateralRate struct {
	Date civil.Date
	Rate float64
}

// SortDates sorts dates in ascending order in place.
func SortDates(dates []civil.Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

func sortedKeys(m map[CommodityID]float64) []CommodityID {
	keys := make([]CommodityID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
