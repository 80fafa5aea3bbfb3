package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"commodex/internal/config"
	"commodex/internal/reference"
	"commodex/internal/util"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "commodex",
	Short: "Commodity basket index engine",
	Long: `commodex computes a buy-and-hold commodity basket index with periodic
reconstitution, in excess return (ER) and total return (TR) form.

Inputs (settlement prices, target weights, disruption events and collateral
rates) are read from a parquet price store and a SQLite database.

Examples:
  commodex import inputs.csv
  commodex compute --from 2024-01-02 --to 2024-06-28 --mode both
  commodex demo --days 15
  commodex catalog`,
	SilenceUsage: true,
}

// Execute runs the root command until it returns or the process receives an
// interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $COMMODEX_CONFIG, else built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// setup loads the configuration and installs the logger.
func setup() (*config.Config, *slog.Logger, error) {
	path := configFile
	if path == "" {
		path = os.Getenv("COMMODEX_CONFIG")
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := util.NewLogger(os.Stderr, level, cfg.Logging.Format)
	util.SetDefault(logger)
	return cfg, logger, nil
}

// calendar builds a business-day calendar from its config name. "weekdays" (or
// empty) skips weekends only; "exchanges:NYMEX,ICE" also skips the listed
// exchanges' holidays.
func calendar(name string, catalog *reference.Catalog) (*util.Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "weekdays") {
		return util.NewCalendar(nil), nil
	}
	names, ok := strings.CutPrefix(name, "exchanges:")
	if !ok {
		return nil, fmt.Errorf("unknown calendar %q", name)
	}
	var exchanges []string
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			exchanges = append(exchanges, strings.ToUpper(n))
		}
	}
	holidays, err := catalog.Holidays(exchanges...)
	if err != nil {
		return nil, err
	}
	return util.NewCalendar(holidays), nil
}
