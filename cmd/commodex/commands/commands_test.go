package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commodex/internal/domain"
	"commodex/internal/reference"
)

func TestParseImport(t *testing.T) {
	in := `kind,date,commodity,value
# comment
price,2024-01-02,wti,71.5
weight, 2024-01-01 ,WTI,0.6
disruption,2024-01-03,WTI,limit up
disruption,2024-01-04,BRENT
collateral,2024-01-02,,0.0002
`
	b, err := parseImport(strings.NewReader(in))
	require.NoError(t, err)

	d := func(day int) civil.Date { return civil.Date{Year: 2024, Month: 1, Day: day} }
	assert.Equal(t, []domain.PricePoint{{Commodity: "WTI", Date: d(2), Close: 71.5}}, b.Prices)
	assert.Equal(t, []domain.WeightEntry{{Date: d(1), Commodity: "WTI", Weight: 0.6}}, b.Weights)
	assert.Equal(t, []domain.Disruption{
		{Date: d(3), Commodity: "WTI", Reason: "limit up"},
		{Date: d(4), Commodity: "BRENT"},
	}, b.Disruptions)
	assert.Equal(t, []domain.CollateralRate{{Date: d(2), Rate: 0.0002}}, b.Rates)
}

func TestParseImportErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unknown kind", "volume,2024-01-02,WTI,1\n", `line 1: unknown kind "volume"`},
		{"bad date", "price,02/01/2024,WTI,1\n", "line 1:"},
		{"missing value", "price,2024-01-02,WTI\n", "line 1: price row needs a value"},
		{"bad number", "kind,date,commodity,value\nweight,2024-01-02,WTI,lots\n", `line 2: weight value "lots"`},
		{"missing commodity", "price,2024-01-02,,1\n", "line 1: price row needs a commodity"},
		{"short row", "price,2024-01-02\n", "line 1: want kind,date,commodity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseImport(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseModes(t *testing.T) {
	m, err := parseModes("both")
	require.NoError(t, err)
	assert.Equal(t, []domain.Mode{domain.ModeExcessReturn, domain.ModeTotalReturn}, m)

	m, err = parseModes("tr")
	require.NoError(t, err)
	assert.Equal(t, []domain.Mode{domain.ModeTotalReturn}, m)

	_, err = parseModes("XR")
	assert.Error(t, err)
}

func TestCalendarSpec(t *testing.T) {
	catalog, err := reference.Builtin()
	require.NoError(t, err)

	start := civil.Date{Year: 2024, Month: 1, Day: 12} // Friday
	end := civil.Date{Year: 2024, Month: 1, Day: 16}

	cal, err := calendar("weekdays", catalog)
	require.NoError(t, err)
	days, err := cal.Days(start, end)
	require.NoError(t, err)
	assert.Len(t, days, 3)

	cal, err = calendar("exchanges:nymex, ice", catalog)
	require.NoError(t, err)
	days, err = cal.Days(start, end)
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{start, end}, days, "2024-01-15 is an exchange holiday")

	_, err = calendar("lunar", catalog)
	assert.Error(t, err)
	_, err = calendar("exchanges:MOON", catalog)
	assert.Error(t, err)
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestImportAndCompute(t *testing.T) {
	t.Setenv("DATA_DIR", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("INDEX_MODE", "")
	t.Setenv("INDEX_START_LEVEL", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("COMMODEX_CONFIG", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "commodex.yaml")
	writeFile(t, cfgPath, fmt.Sprintf(`
storage:
  data_dir: %q
  sqlite_path: %q
run:
  start_date: "2024-01-02"
  end_date: "2024-01-05"
`, filepath.Join(dir, "data"), filepath.Join(dir, "db", "commodex.db")))

	csvPath := filepath.Join(dir, "inputs.csv")
	writeFile(t, csvPath, `kind,date,commodity,value
weight,2024-01-01,A,0.5
weight,2024-01-01,B,0.5
price,2024-01-02,A,100
price,2024-01-03,A,110
price,2024-01-04,A,110
price,2024-01-05,A,110
price,2024-01-02,B,100
price,2024-01-03,B,100
price,2024-01-04,B,100
price,2024-01-05,B,100
collateral,2024-01-02,,0.001
collateral,2024-01-03,,0.001
collateral,2024-01-04,,0.001
collateral,2024-01-05,,0.001
`)

	_, err := execute(t, "import", csvPath, "--config", cfgPath)
	require.NoError(t, err)

	out, err := execute(t, "compute", "--config", cfgPath, "--mode", "both", "--format", "json",
		"--from", "", "--to", "", "--level", "0")
	require.NoError(t, err)

	type doc struct {
		Summary struct {
			Mode      string  `json:"mode"`
			Days      int     `json:"days"`
			LastLevel float64 `json:"last_level"`
		} `json:"summary"`
	}
	dec := json.NewDecoder(strings.NewReader(out))
	var er, tr doc
	require.NoError(t, dec.Decode(&er))
	require.NoError(t, dec.Decode(&tr))

	assert.Equal(t, "ER", er.Summary.Mode)
	assert.Equal(t, 4, er.Summary.Days)
	assert.InDelta(t, 105.0, er.Summary.LastLevel, 1e-6)

	assert.Equal(t, "TR", tr.Summary.Mode)
	assert.InDelta(t, 105*1.001*1.001*1.001, tr.Summary.LastLevel, 1e-6)
}

func TestComputeRequiresRange(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("COMMODEX_CONFIG", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "commodex.yaml")
	writeFile(t, cfgPath, fmt.Sprintf("storage:\n  sqlite_path: %q\n", filepath.Join(dir, "c.db")))

	_, err := execute(t, "compute", "--config", cfgPath, "--from", "", "--to", "", "--mode", "ER")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date range is required")
}

func TestDemo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("COMMODEX_CONFIG", "")
	out, err := execute(t, "demo", "--config", "", "--days", "15", "--format", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Mode")
	assert.Contains(t, out, ": ER")
	assert.Contains(t, out, ": TR")
	assert.Contains(t, out, "2024-01-02 ~ 2024-01-16 (15 days)")
}

func TestCatalogCommand(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("COMMODEX_CONFIG", "")
	out, err := execute(t, "catalog", "--config", "")
	require.NoError(t, err)
	assert.Contains(t, out, "FEEDER_CATTLE")
	assert.Contains(t, out, "precious_metals")
	assert.Contains(t, out, "catalog OK")
}
