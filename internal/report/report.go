// Package report renders computed index states as tables and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"commodex/internal/domain"
	"commodex/internal/index"
)

// DefaultPrecision is the number of decimal places levels are rendered with.
const DefaultPrecision = 6

// Row is one date of an index run.
type Row struct {
	Date    civil.Date
	Level   float64
	Return  float64
	Weights domain.WeightMap
	// Reconstituted is true when holdings were reset on Date.
	Reconstituted bool
}

// Rows flattens s into date-ordered rows. Return is the level change from
// the previous row, zero on the first.
func Rows(s *index.State) []Row {
	recon := make(map[civil.Date]bool, len(s.Reconstitutions))
	for _, d := range s.Reconstitutions {
		recon[d] = true
	}

	dates := s.Dates()
	rows := make([]Row, len(dates))
	for i, d := range dates {
		lvl := s.Levels[d]
		var ret float64
		if i > 0 {
			if prev := rows[i-1].Level; prev != 0 {
				ret = lvl/prev - 1
			}
		}
		rows[i] = Row{
			Date:          d,
			Level:         lvl,
			Return:        ret,
			Weights:       s.Weights[d].Clone(),
			Reconstituted: recon[d],
		}
	}
	return rows
}

// Summary condenses a run into headline figures.
type Summary struct {
	Mode             domain.Mode
	Start, End       civil.Date
	Days             int
	FirstLevel       float64
	LastLevel        float64
	CumulativeReturn float64
	Reconstitutions  int
}

// Summarize computes the Summary of s.
func Summarize(s *index.State) Summary {
	dates := s.Dates()
	sum := Summary{Mode: s.Mode, Days: len(dates), Reconstitutions: len(s.Reconstitutions)}
	if len(dates) == 0 {
		return sum
	}
	sum.Start, sum.End = dates[0], dates[len(dates)-1]
	sum.FirstLevel = s.Levels[sum.Start]
	sum.LastLevel = s.Levels[sum.End]
	if sum.FirstLevel != 0 {
		sum.CumulativeReturn = sum.LastLevel/sum.FirstLevel - 1
	}
	return sum
}

// Options controls rendering.
type Options struct {
	// Precision is the number of decimal places for levels. Weights and
	// returns use Precision as well. Zero selects DefaultPrecision.
	Precision int
	// Weights adds a column per commodity.
	Weights bool
}

func (o Options) precision() int32 {
	if o.Precision <= 0 {
		return DefaultPrecision
	}
	return int32(o.Precision)
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// WriteTable writes rows as an aligned text table.
func WriteTable(w io.Writer, rows []Row, opts Options) error {
	p := opts.precision()
	cols := commodities(rows)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"DATE", "LEVEL", "RETURN", "RECON"}
	if opts.Weights {
		for _, c := range cols {
			header = append(header, string(c))
		}
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, r := range rows {
		mark := ""
		if r.Reconstituted {
			mark = "*"
		}
		fields := []string{r.Date.String(), fixed(r.Level, p), fixed(r.Return, p), mark}
		if opts.Weights {
			for _, c := range cols {
				fields = append(fields, fixed(r.Weights.Get(c), p))
			}
		}
		fmt.Fprintln(tw, strings.Join(fields, "\t")+"\t")
	}
	return tw.Flush()
}

// WriteSummary writes s as labelled lines.
func WriteSummary(w io.Writer, s Summary, opts Options) error {
	p := opts.precision()
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Mode\t: %s\n", s.Mode)
	fmt.Fprintf(tw, "Period\t: %s ~ %s (%d days)\n", s.Start, s.End, s.Days)
	fmt.Fprintf(tw, "First level\t: %s\n", fixed(s.FirstLevel, p))
	fmt.Fprintf(tw, "Last level\t: %s\n", fixed(s.LastLevel, p))
	fmt.Fprintf(tw, "Cumulative return\t: %s%%\n", decimal.NewFromFloat(s.CumulativeReturn).Shift(2).StringFixed(4))
	fmt.Fprintf(tw, "Reconstitutions\t: %d\n", s.Reconstitutions)
	return tw.Flush()
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

type jsonRow struct {
	Date          string                 `json:"date"`
	Level         json.Number            `json:"level"`
	Return        json.Number            `json:"return"`
	Reconstituted bool                   `json:"reconstituted,omitempty"`
	Weights       map[string]json.Number `json:"weights,omitempty"`
}

type jsonSummary struct {
	Mode             string      `json:"mode"`
	Start            string      `json:"start"`
	End              string      `json:"end"`
	Days             int         `json:"days"`
	FirstLevel       json.Number `json:"first_level"`
	LastLevel        json.Number `json:"last_level"`
	CumulativeReturn json.Number `json:"cumulative_return"`
	Reconstitutions  int         `json:"reconstitutions"`
}

type jsonReport struct {
	Summary jsonSummary `json:"summary"`
	Rows    []jsonRow   `json:"rows"`
}

// WriteJSON writes the summary and rows of s as one JSON document. Numbers
// are emitted as fixed-precision literals.
func WriteJSON(w io.Writer, s *index.State, opts Options) error {
	p := opts.precision()
	num := func(v float64) json.Number { return json.Number(fixed(v, p)) }

	sum := Summarize(s)
	out := jsonReport{
		Summary: jsonSummary{
			Mode:             string(sum.Mode),
			Start:            sum.Start.String(),
			End:              sum.End.String(),
			Days:             sum.Days,
			FirstLevel:       num(sum.FirstLevel),
			LastLevel:        num(sum.LastLevel),
			CumulativeReturn: num(sum.CumulativeReturn),
			Reconstitutions:  sum.Reconstitutions,
		},
	}

	for _, r := range Rows(s) {
		jr := jsonRow{
			Date:          r.Date.String(),
			Level:         num(r.Level),
			Return:        num(r.Return),
			Reconstituted: r.Reconstituted,
		}
		if opts.Weights {
			jr.Weights = make(map[string]json.Number, len(r.Weights))
			for c, v := range r.Weights {
				jr.Weights[string(c)] = num(v)
			}
		}
		out.Rows = append(out.Rows, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

func commodities(rows []Row) []domain.CommodityID {
	all := make(domain.WeightMap)
	for _, r := range rows {
		for c := range r.Weights {
			all[c] = 0
		}
	}
	return all.Keys()
}
