package index

import (
	"cloud.google.com/go/civil"

	"commodex/internal/domain"
)

// WeightSource supplies the raw target weights (CPWs) for a date.
type WeightSource interface {
	Weights(d civil.Date) (domain.WeightMap, error)
}

// PriceSource supplies the settlement price of a commodity on a date.
type PriceSource interface {
	Price(d civil.Date, c domain.CommodityID) (float64, error)
}

// DisruptionSource reports whether a commodity is subject to a market
// disruption event on a date.
type DisruptionSource interface {
	Disrupted(d civil.Date, c domain.CommodityID) (bool, error)
}

// CollateralSource supplies the simple daily collateral rate for a date.
type CollateralSource interface {
	Rate(d civil.Date) (float64, error)
}

// Sources bundles the providers a Calculator reads from. Collateral may be
// nil unless the calculator runs in total return mode.
type Sources struct {
	Weights     WeightSource
	Prices      PriceSource
	Disruptions DisruptionSource
	Collateral  CollateralSource
}

// WeightFunc adapts a function to WeightSource.
type WeightFunc func(d civil.Date) (domain.WeightMap, error)

func (f WeightFunc) Weights(d civil.Date) (domain.WeightMap, error) { return f(d) }

// PriceFunc adapts a function to PriceSource.
type PriceFunc func(d civil.Date, c domain.CommodityID) (float64, error)

func (f PriceFunc) Price(d civil.Date, c domain.CommodityID) (float64, error) { return f(d, c) }

// DisruptionFunc adapts a function to DisruptionSource.
type DisruptionFunc func(d civil.Date, c domain.CommodityID) (bool, error)

func (f DisruptionFunc) Disrupted(d civil.Date, c domain.CommodityID) (bool, error) { return f(d, c) }

// CollateralFunc adapts a function to CollateralSource.
type CollateralFunc func(d civil.Date) (float64, error)

func (f CollateralFunc) Rate(d civil.Date) (float64, error) { return f(d) }
