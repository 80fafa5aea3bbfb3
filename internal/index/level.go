package index

import (
	"cloud.google.com/go/civil"

	"commodex/internal/domain"
)

// step is the outcome of advancing the level from t-1 to t.
type step struct {
	level      float64
	ret        float64
	prevPrices map[domain.CommodityID]float64
	effPrices  map[domain.CommodityID]float64
	disrupted  map[domain.CommodityID]bool
}

// advance moves the index level from tPrev to t using the holdings carried
// into t. A commodity disrupted on t is marked at its tPrev price, so it
// contributes nothing to the day's return.
func (r *run) advance(tPrev, t civil.Date, level float64, held domain.QuantityMap) (*step, error) {
	names := held.Keys()
	s := &step{
		prevPrices: make(map[domain.CommodityID]float64, len(names)),
		effPrices:  make(map[domain.CommodityID]float64, len(names)),
		disrupted:  make(map[domain.CommodityID]bool, len(names)),
	}

	for _, c := range names {
		p, err := r.cache.Price(tPrev, c)
		if err != nil {
			return nil, err
		}
		s.prevPrices[c] = p
	}

	var valuePrev, valueNow float64
	for _, c := range names {
		d, err := r.disrupted(t, c)
		if err != nil {
			return nil, err
		}
		s.disrupted[c] = d

		eff := s.prevPrices[c]
		if !d {
			if eff, err = r.cache.Price(t, c); err != nil {
				return nil, err
			}
		}
		s.effPrices[c] = eff

		valuePrev += held[c] * s.prevPrices[c]
		valueNow += held[c] * eff
	}

	if valuePrev > 0 {
		s.ret = valueNow/valuePrev - 1
	}
	s.level = level * (1 + s.ret)

	if r.cfg.Mode == domain.ModeTotalReturn {
		rate, err := r.collateralRate(tPrev)
		if err != nil {
			return nil, err
		}
		s.level *= 1 + rate
	}
	return s, nil
}
