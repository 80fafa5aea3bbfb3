// Package reference holds the static catalog of exchanges and commodities
// that make up the index universe, with their contract specifications and
// published reference weights.
package reference

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"cloud.google.com/go/civil"
	"gopkg.in/yaml.v3"

	"commodex/internal/domain"
)

//go:embed catalog.yaml
var builtin []byte

// Concentration limits applied to normalized reference weights.
const (
	MaxCommodityWeight = 0.25
	MaxSectorWeight    = 0.60
)

// Exchange describes a futures exchange.
type Exchange struct {
	Name         string   `yaml:"name"`
	Timezone     string   `yaml:"timezone"`
	TradingHours string   `yaml:"trading_hours"`
	Holidays     []string `yaml:"holidays"`

	holidays []civil.Date
}

// HolidayDates returns the parsed exchange holidays.
func (e *Exchange) HolidayDates() []civil.Date {
	return e.holidays
}

// Commodity describes one index constituent and its front contract.
type Commodity struct {
	Symbol         domain.CommodityID `yaml:"symbol"`
	Exchange       string             `yaml:"exchange"`
	Sector         string             `yaml:"sector"`
	ContractSize   float64            `yaml:"contract_size"`
	TickSize       float64            `yaml:"tick_size"`
	TickValue      float64            `yaml:"tick_value"`
	DeliveryMonths []int              `yaml:"delivery_months"`
	Unit           string             `yaml:"unit"`
	Currency       string             `yaml:"currency"`
	Weight         float64            `yaml:"weight"`
}

// Catalog is the loaded reference data.
type Catalog struct {
	Exchanges   []Exchange  `yaml:"exchanges"`
	Commodities []Commodity `yaml:"commodities"`
}

// Builtin returns the catalog compiled into the binary.
func Builtin() (*Catalog, error) {
	return parse(builtin)
}

// Load reads a catalog from path. An empty path selects the built-in
// catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	for i := range c.Exchanges {
		ex := &c.Exchanges[i]
		for _, h := range ex.Holidays {
			d, err := civil.ParseDate(h)
			if err != nil {
				return nil, fmt.Errorf("exchange %s: holiday %q: %w", ex.Name, h, err)
			}
			ex.holidays = append(ex.holidays, d)
		}
	}
	return &c, nil
}

// Exchange returns the exchange with the given name.
func (c *Catalog) Exchange(name string) (*Exchange, bool) {
	for i := range c.Exchanges {
		if c.Exchanges[i].Name == name {
			return &c.Exchanges[i], true
		}
	}
	return nil, false
}

// Commodity returns the commodity with the given symbol.
func (c *Catalog) Commodity(sym domain.CommodityID) (*Commodity, bool) {
	for i := range c.Commodities {
		if c.Commodities[i].Symbol == sym {
			return &c.Commodities[i], true
		}
	}
	return nil, false
}

// WeightSum returns the sum of the published reference weights.
func (c *Catalog) WeightSum() float64 {
	return c.rawWeights().Sum()
}

// Weights returns the reference weights scaled to sum to one.
func (c *Catalog) Weights() domain.WeightMap {
	raw := c.rawWeights()
	total := raw.Sum()
	out := make(domain.WeightMap, len(raw))
	for k, v := range raw {
		if total > 0 {
			out[k] = v / total
		} else {
			out[k] = 0
		}
	}
	return out
}

func (c *Catalog) rawWeights() domain.WeightMap {
	w := make(domain.WeightMap, len(c.Commodities))
	for _, cm := range c.Commodities {
		w[cm.Symbol] += cm.Weight
	}
	return w
}

// Sectors groups commodity symbols by sector. Symbols within a sector are
// sorted.
func (c *Catalog) Sectors() map[string][]domain.CommodityID {
	out := make(map[string][]domain.CommodityID)
	for _, cm := range c.Commodities {
		out[cm.Sector] = append(out[cm.Sector], cm.Symbol)
	}
	for _, syms := range out {
		sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	}
	return out
}

// SectorWeights returns the normalized reference weight of each sector.
func (c *Catalog) SectorWeights() map[string]float64 {
	w := c.Weights()
	out := make(map[string]float64)
	for _, cm := range c.Commodities {
		out[cm.Sector] += w[cm.Symbol]
	}
	return out
}

// Holidays returns the union of the holidays of the named exchanges, sorted.
func (c *Catalog) Holidays(exchanges ...string) ([]civil.Date, error) {
	seen := make(map[civil.Date]bool)
	var out []civil.Date
	for _, name := range exchanges {
		ex, ok := c.Exchange(name)
		if !ok {
			return nil, fmt.Errorf("unknown exchange %q", name)
		}
		for _, d := range ex.holidays {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	domain.SortDates(out)
	return out, nil
}

// Validate checks the catalog for structural errors and concentration limit
// breaches. All problems are reported together.
func (c *Catalog) Validate() error {
	var errs []error

	exchanges := make(map[string]bool, len(c.Exchanges))
	for _, ex := range c.Exchanges {
		if ex.Name == "" {
			errs = append(errs, errors.New("exchange with empty name"))
			continue
		}
		if exchanges[ex.Name] {
			errs = append(errs, fmt.Errorf("duplicate exchange %s", ex.Name))
		}
		exchanges[ex.Name] = true
	}

	symbols := make(map[domain.CommodityID]bool, len(c.Commodities))
	for _, cm := range c.Commodities {
		if cm.Symbol == "" {
			errs = append(errs, errors.New("commodity with empty symbol"))
			continue
		}
		if symbols[cm.Symbol] {
			errs = append(errs, fmt.Errorf("duplicate commodity %s", cm.Symbol))
		}
		symbols[cm.Symbol] = true

		if !exchanges[cm.Exchange] {
			errs = append(errs, fmt.Errorf("%s: unknown exchange %q", cm.Symbol, cm.Exchange))
		}
		if cm.ContractSize <= 0 {
			errs = append(errs, fmt.Errorf("%s: contract size must be positive", cm.Symbol))
		}
		if cm.TickSize <= 0 {
			errs = append(errs, fmt.Errorf("%s: tick size must be positive", cm.Symbol))
		}
		if cm.Weight < 0 {
			errs = append(errs, fmt.Errorf("%s: negative weight %v", cm.Symbol, cm.Weight))
		}
		for _, m := range cm.DeliveryMonths {
			if m < 1 || m > 12 {
				errs = append(errs, fmt.Errorf("%s: invalid delivery month %d", cm.Symbol, m))
			}
		}
	}

	if c.WeightSum() <= 0 {
		errs = append(errs, errors.New("reference weights sum to zero"))
	} else {
		w := c.Weights()
		for _, k := range w.Keys() {
			if w[k] > MaxCommodityWeight {
				errs = append(errs, fmt.Errorf("%s: weight %.4f exceeds %.2f", k, w[k], MaxCommodityWeight))
			}
		}
		sectors := c.SectorWeights()
		names := make([]string, 0, len(sectors))
		for s := range sectors {
			names = append(names, s)
		}
		sort.Strings(names)
		for _, s := range names {
			if sectors[s] > MaxSectorWeight {
				errs = append(errs, fmt.Errorf("sector %s: weight %.4f exceeds %.2f", s, sectors[s], MaxSectorWeight))
			}
		}
	}

	return errors.Join(errs...)
}
