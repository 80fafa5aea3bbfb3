package source

import (
	"fmt"

	"cloud.google.com/go/civil"

	"commodex/internal/domain"
	"commodex/internal/index"
)

// Synthetic is a deterministic provider set: constant weights, prices that
// drift with the day number in a 200-day cycle, no disruptions and a
// constant collateral rate.
type Synthetic struct {
	Weights domain.WeightMap
	Base    map[domain.CommodityID]float64
	Drift   map[domain.CommodityID]float64
	Rate    float64
}

// DemoSynthetic returns the three-commodity energy and metals demo basket.
func DemoSynthetic() *Synthetic {
	return &Synthetic{
		Weights: domain.WeightMap{"CL": 0.55, "NG": 0.25, "GC": 0.20},
		Base:    map[domain.CommodityID]float64{"CL": 80.0, "NG": 3.0, "GC": 1900.0},
		Drift:   map[domain.CommodityID]float64{"CL": 0.0006, "NG": 0.0003, "GC": 0.0002},
		Rate:    0.0001,
	}
}

// proleptic Gregorian day 1.
var ordinalEpoch = civil.Date{Year: 1, Month: 1, Day: 1}

// Sources returns the synthetic providers.
func (s *Synthetic) Sources() index.Sources {
	return index.Sources{
		Weights: index.WeightFunc(func(civil.Date) (domain.WeightMap, error) {
			return s.Weights.Clone(), nil
		}),
		Prices: index.PriceFunc(s.price),
		Disruptions: index.DisruptionFunc(func(civil.Date, domain.CommodityID) (bool, error) {
			return false, nil
		}),
		Collateral: index.CollateralFunc(func(civil.Date) (float64, error) {
			return s.Rate, nil
		}),
	}
}

func (s *Synthetic) price(d civil.Date, c domain.CommodityID) (float64, error) {
	base, ok := s.Base[c]
	if !ok {
		return 0, fmt.Errorf("%s on %s: %w", c, d, ErrNoPrice)
	}
	ordinal := d.DaysSince(ordinalEpoch) + 1
	return base * (1 + s.Drift[c]*float64(ordinal%200)), nil
}
