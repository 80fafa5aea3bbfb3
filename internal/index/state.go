package index

import (
	"cloud.google.com/go/civil"

	"commodex/internal/domain"
)

// State is the output of a Compute call. Levels, Weights and Quantities
// share the same ascending, de-duplicated set of dates. A State shares no
// maps with the calculator or its caller and is not modified after Compute
// returns.
type State struct {
	Mode       domain.Mode
	Levels     map[civil.Date]float64
	Weights    map[civil.Date]domain.WeightMap
	Quantities map[civil.Date]domain.QuantityMap
	Prices     map[domain.PriceKey]float64

	// Reconstitutions lists, in order, the dates on which holdings were
	// reset to new target weights.
	Reconstitutions []civil.Date
}

func newState(mode domain.Mode, n int) *State {
	return &State{
		Mode:       mode,
		Levels:     make(map[civil.Date]float64, n),
		Weights:    make(map[civil.Date]domain.WeightMap, n),
		Quantities: make(map[civil.Date]domain.QuantityMap, n),
	}
}

func (s *State) record(d civil.Date, level float64, weights domain.WeightMap, quantities domain.QuantityMap) {
	s.Levels[d] = level
	s.Weights[d] = weights.Clone()
	s.Quantities[d] = quantities.Clone()
}

// Dates returns the computed dates in ascending order.
func (s *State) Dates() []civil.Date {
	dates := make([]civil.Date, 0, len(s.Levels))
	for d := range s.Levels {
		dates = append(dates, d)
	}
	domain.SortDates(dates)
	return dates
}

// Level returns the index level on d.
func (s *State) Level(d civil.Date) (float64, bool) {
	l, ok := s.Levels[d]
	return l, ok
}

// Last returns the final computed date and its level.
func (s *State) Last() (civil.Date, float64) {
	var last civil.Date
	for d := range s.Levels {
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	return last, s.Levels[last]
}
