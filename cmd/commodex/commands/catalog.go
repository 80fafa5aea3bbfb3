package commands

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"commodex/internal/reference"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print and validate the reference catalog",
	Long: `Print the commodities of the reference catalog with their contract
specifications and weights, then the sector totals, and validate it.

The catalog is reference.catalog_path from the config, or the built-in one.

Example:
  commodex catalog`,
	RunE: runCatalog,
}

// Published weights that drift further than this from one are reported.
const weightSumTolerance = 0.01

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	catalog, err := reference.Load(cfg.Reference.CatalogPath)
	if err != nil {
		return err
	}

	if err := writeCatalog(cmd.OutOrStdout(), catalog); err != nil {
		return err
	}

	if sum := catalog.WeightSum(); math.Abs(sum-1) > weightSumTolerance {
		logger.Warn("published weights do not sum to one; they are normalized before use", "sum", sum)
	}
	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("catalog is invalid:\n%w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\ncatalog OK")
	return nil
}

func writeCatalog(w io.Writer, c *reference.Catalog) error {
	weights := c.Weights()
	pct := func(v float64) string { return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%" }

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tEXCHANGE\tSECTOR\tCONTRACT\tUNIT\tPUBLISHED\tWEIGHT")
	for _, cm := range c.Commodities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			cm.Symbol, cm.Exchange, cm.Sector,
			decimal.NewFromFloat(cm.ContractSize).String(), cm.Unit,
			decimal.NewFromFloat(cm.Weight).StringFixed(3), pct(weights[cm.Symbol]))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sectors := c.SectorWeights()
	names := make([]string, 0, len(sectors))
	for s := range sectors {
		names = append(names, s)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTOR\tWEIGHT\tCOMMODITIES")
	groups := c.Sectors()
	for _, s := range names {
		syms := make([]string, len(groups[s]))
		for i, sym := range groups[s] {
			syms[i] = string(sym)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s, pct(sectors[s]), strings.Join(syms, ","))
	}
	return tw.Flush()
}
