// Package store defines storage interfaces for the index inputs: settlement
// prices, published target weights, market disruption events and collateral
// rates.
package store

import (
	"context"

	"cloud.google.com/go/civil"

	"commodex/internal/domain"
)

// PriceStore persists and retrieves commodity settlement prices.
type PriceStore interface {
	// WritePrices persists a batch of prices, replacing any existing price
	// for the same commodity and date.
	WritePrices(ctx context.Context, prices []domain.PricePoint) error

	// ReadPrices returns prices for the commodity within [start, end],
	// ordered by date.
	ReadPrices(ctx context.Context, commodity domain.CommodityID, start, end civil.Date) ([]domain.PricePoint, error)

	// ListCommodities returns all commodities with stored prices.
	ListCommodities(ctx context.Context) ([]domain.CommodityID, error)
}

// WeightStore persists and retrieves published target weights.
type WeightStore interface {
	// SaveWeights upserts a batch of weight entries.
	SaveWeights(ctx context.Context, entries []domain.WeightEntry) error

	// ReadWeights returns the entries published within [start, end] together
	// with the latest publication on or before start, ordered by date.
	ReadWeights(ctx context.Context, start, end civil.Date) ([]domain.WeightEntry, error)
}

// DisruptionStore persists and retrieves market disruption events.
type DisruptionStore interface {
	// SaveDisruptions upserts a batch of disruption events.
	SaveDisruptions(ctx context.Context, events []domain.Disruption) error

	// ReadDisruptions returns the events within [start, end].
	ReadDisruptions(ctx context.Context, start, end civil.Date) ([]domain.Disruption, error)
}

// CollateralStore persists and retrieves daily collateral rates.
type CollateralStore interface {
	// SaveCollateralRates upserts a batch of rates.
	SaveCollateralRates(ctx context.Context, rates []domain.CollateralRate) error

	// ReadCollateralRates returns the rates within [start, end].
	ReadCollateralRates(ctx context.Context, start, end civil.Date) ([]domain.CollateralRate, error)
}
