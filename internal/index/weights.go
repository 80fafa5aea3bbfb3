package index

import (
	"math"

	"commodex/internal/domain"
)

// weightTolerance is the largest per-commodity weight difference treated as
// "unchanged" when comparing consecutive target weights.
const weightTolerance = 1e-10

// Normalize clamps negative weights to zero and rescales the result to sum
// to one. When nothing positive remains every key maps to zero. The input is
// not modified.
func Normalize(raw domain.WeightMap) domain.WeightMap {
	clamped := make(domain.WeightMap, len(raw))
	for c, w := range raw {
		clamped[c] = math.Max(0, w)
	}

	total := clamped.Sum()
	out := make(domain.WeightMap, len(clamped))
	if total <= 0 {
		for c := range clamped {
			out[c] = 0
		}
		return out
	}
	for c, w := range clamped {
		out[c] = w / total
	}
	return out
}

// WeightsChanged reports whether any commodity's weight differs between prev
// and now by more than 1e-10. A commodity missing from one side counts as
// zero there. A true result triggers a reconstitution.
func WeightsChanged(prev, now domain.WeightMap) bool {
	for c := range prev {
		if math.Abs(prev.Get(c)-now.Get(c)) > weightTolerance {
			return true
		}
	}
	for c := range now {
		if _, ok := prev[c]; ok {
			continue
		}
		if math.Abs(now.Get(c)) > weightTolerance {
			return true
		}
	}
	return false
}

// valueWeights returns each commodity's share of the portfolio value
// Σ q[c]·p[c], or all zeros when that value is not positive.
func valueWeights(quantities domain.QuantityMap, prices map[domain.CommodityID]float64) domain.WeightMap {
	values := make(domain.WeightMap, len(quantities))
	for c, q := range quantities {
		values[c] = q * prices[c]
	}

	total := values.Sum()
	out := make(domain.WeightMap, len(values))
	for c, v := range values {
		if total <= 0 {
			out[c] = 0
			continue
		}
		out[c] = v / total
	}
	return out
}
