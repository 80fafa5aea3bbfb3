package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commodex/internal/domain"
	"commodex/internal/index"
	"commodex/internal/store"
)

func day(n int) civil.Date {
	return civil.Date{Year: 2024, Month: 1, Day: 1}.AddDays(n)
}

func seedStores(t *testing.T, withRates bool) Stores {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	ps := store.NewParquetStore(filepath.Join(dir, "data"))
	db, err := store.NewSQLiteStore(filepath.Join(dir, "commodex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var prices []domain.PricePoint
	for i := 0; i < 5; i++ {
		prices = append(prices,
			domain.PricePoint{Commodity: "A", Date: day(i), Close: 100 + float64(i)},
			domain.PricePoint{Commodity: "B", Date: day(i), Close: 50},
		)
	}
	require.NoError(t, ps.WritePrices(ctx, prices))

	require.NoError(t, db.SaveWeights(ctx, []domain.WeightEntry{
		{Date: day(-10), Commodity: "A", Weight: 1},
		{Date: day(3), Commodity: "A", Weight: 0.5},
		{Date: day(3), Commodity: "B", Weight: 0.5},
	}))
	require.NoError(t, db.SaveDisruptions(ctx, []domain.Disruption{
		{Date: day(2), Commodity: "A", Reason: "limit up"},
	}))
	if withRates {
		var rates []domain.CollateralRate
		for i := 0; i < 5; i++ {
			rates = append(rates, domain.CollateralRate{Date: day(i), Rate: 0.001})
		}
		require.NoError(t, db.SaveCollateralRates(ctx, rates))
	}

	st := Stores{Prices: ps, Weights: db, Disruptions: db}
	if withRates {
		st.Collateral = db
	}
	return st
}

func TestLoadSnapshot(t *testing.T) {
	snap, err := Load(context.Background(), seedStores(t, true), day(0), day(4), nil)
	require.NoError(t, err)

	assert.Equal(t, []domain.CommodityID{"A", "B"}, snap.Commodities())
	assert.Equal(t, []civil.Date{day(-10), day(3)}, snap.PublicationDates())

	// Publication in effect before the range start.
	w, err := snap.Weights(day(1))
	require.NoError(t, err)
	assert.Equal(t, domain.WeightMap{"A": 1}, w)

	w, err = snap.Weights(day(4))
	require.NoError(t, err)
	assert.Equal(t, domain.WeightMap{"A": 0.5, "B": 0.5}, w)

	_, err = snap.Weights(day(-11))
	assert.ErrorIs(t, err, ErrNoWeights)

	p, err := snap.Price(day(2), "A")
	require.NoError(t, err)
	assert.Equal(t, 102.0, p)

	_, err = snap.Price(day(2), "C")
	assert.ErrorIs(t, err, ErrNoPrice)

	dis, err := snap.Disrupted(day(2), "A")
	require.NoError(t, err)
	assert.True(t, dis)
	dis, err = snap.Disrupted(day(2), "B")
	require.NoError(t, err)
	assert.False(t, dis)

	r, err := snap.Rate(day(0))
	require.NoError(t, err)
	assert.Equal(t, 0.001, r)
	_, err = snap.Rate(day(9))
	assert.ErrorIs(t, err, ErrNoRate)
}

func TestSnapshotWeightsAreCopies(t *testing.T) {
	snap, err := Load(context.Background(), seedStores(t, false), day(0), day(4), nil)
	require.NoError(t, err)

	w, err := snap.Weights(day(4))
	require.NoError(t, err)
	w["A"] = 42

	again, err := snap.Weights(day(4))
	require.NoError(t, err)
	assert.Equal(t, 0.5, again["A"])
}

func TestSnapshotDrivesCalculator(t *testing.T) {
	snap, err := Load(context.Background(), seedStores(t, true), day(0), day(4), nil)
	require.NoError(t, err)

	dates := []civil.Date{day(0), day(1), day(2), day(3), day(4)}
	calc := index.NewCalculator(index.Config{Mode: domain.ModeTotalReturn}, snap.Sources(), nil)
	state, err := calc.Compute(dates, 100)
	require.NoError(t, err)

	assert.Len(t, state.Levels, 5)
	assert.Equal(t, []civil.Date{day(3)}, state.Reconstitutions)
	// Day 2 is disrupted for A, so its return is frozen and only the
	// collateral accrues.
	l1, _ := state.Level(day(1))
	l2, _ := state.Level(day(2))
	assert.InDelta(t, l1*1.001, l2, 1e-9)
}

func TestSnapshotWithoutRates(t *testing.T) {
	snap, err := Load(context.Background(), seedStores(t, false), day(0), day(4), nil)
	require.NoError(t, err)

	src := snap.Sources()
	assert.Nil(t, src.Collateral)

	calc := index.NewCalculator(index.Config{Mode: domain.ModeTotalReturn}, src, nil)
	_, err = calc.Compute([]civil.Date{day(0), day(1)}, 100)
	assert.ErrorIs(t, err, index.ErrNoCollateralSource)

	calc = index.NewCalculator(index.Config{Mode: domain.ModeExcessReturn}, src, nil)
	_, err = calc.Compute([]civil.Date{day(0), day(1)}, 100)
	assert.NoError(t, err)
}

type failingPrices struct{ store.PriceStore }

func (failingPrices) ReadPrices(context.Context, domain.CommodityID, civil.Date, civil.Date) ([]domain.PricePoint, error) {
	return nil, errors.New("disk on fire")
}

func TestLoadPropagatesPriceErrors(t *testing.T) {
	st := seedStores(t, false)
	st.Prices = failingPrices{st.Prices}

	_, err := Load(context.Background(), st, day(0), day(4), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading prices for")
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestSynthetic(t *testing.T) {
	syn := DemoSynthetic()
	src := syn.Sources()

	// 2024-01-01 is proleptic ordinal 738886; 738886 % 200 = 86.
	p, err := src.Prices.Price(civil.Date{Year: 2024, Month: 1, Day: 1}, "CL")
	require.NoError(t, err)
	assert.InDelta(t, 80*(1+0.0006*86), p, 1e-12)

	_, err = src.Prices.Price(day(0), "ZZ")
	assert.ErrorIs(t, err, ErrNoPrice)

	w, err := src.Weights.Weights(day(0))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)

	dis, err := src.Disruptions.Disrupted(day(0), "CL")
	require.NoError(t, err)
	assert.False(t, dis)

	r, err := src.Collateral.Rate(day(0))
	require.NoError(t, err)
	assert.Equal(t, 0.0001, r)

	dates := make([]civil.Date, 10)
	for i := range dates {
		dates[i] = day(i)
	}
	state, err := index.NewCalculator(index.Config{Mode: domain.ModeTotalReturn}, src, nil).Compute(dates, 100)
	require.NoError(t, err)
	assert.Empty(t, state.Reconstitutions)
	assert.Len(t, state.Levels, 10)
}
