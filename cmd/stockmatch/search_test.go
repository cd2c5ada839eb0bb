package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/stockmatch/internal/engine"
	"github.com/vyrodovalexey/stockmatch/internal/model"
)

const testCatalog = `[
  {"code": "A", "description": "Rice 1kg", "quantity": 3, "sale_price": "5.00", "profit_margin": "0.1"},
  {"code": "B", "description": "Beans 1kg", "quantity": 1, "sale_price": "7.00", "profit_margin": "0.1"},
  {"code": "G", "description": "Wine glass", "quantity": 4, "sale_price": "17.00", "profit_margin": "0.1"}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	root := newRootCmd()
	root.SetOut(buf)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestSearchCmd_Flags(t *testing.T) {
	cmd := newSearchCmd(nil)

	assert.Equal(t, "search PRICE", cmd.Use)
	for _, name := range []string{
		"catalog", "blacklist", "mode", "tolerance", "max-items", "nearest",
		"exclude", "admissibility", "greedy", "timeout", "json",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %q should exist", name)
	}
	assert.Equal(t, "10", cmd.Flags().Lookup("max-items").DefValue)
	assert.Equal(t, "single", cmd.Flags().Lookup("mode").DefValue)
	assert.Equal(t, "price", cmd.Flags().Lookup("admissibility").DefValue)
	assert.Equal(t, "false", cmd.Flags().Lookup("greedy").DefValue)
}

func TestSearchConfig(t *testing.T) {
	cfg, err := searchConfig(&searchOptions{admissibility: "Margin", greedy: true})

	require.NoError(t, err)
	assert.Equal(t, engine.AdmitByMargin, cfg.Admissibility)
	assert.True(t, cfg.GreedyFirst)
	assert.Positive(t, cfg.MaxCells, "unset limits keep their defaults")

	_, err = searchConfig(&searchOptions{admissibility: "vibes"})
	assert.ErrorIs(t, err, engine.ErrInvalidRequest)
}

func TestSearchCmd_Admissibility(t *testing.T) {
	catalog := writeFile(t, "items.json", `[
  {"code": "Z", "description": "Loss leader", "quantity": 2, "sale_price": "17.00", "profit_margin": "0"},
  {"code": "G", "description": "Wine glass", "quantity": 4, "sale_price": "17.50", "profit_margin": "0.1"}
]`)

	byPrice, err := execute(t, "search", "17", "--catalog", catalog)
	require.NoError(t, err)
	byMargin, err := execute(t, "search", "17", "--catalog", catalog, "--admissibility", "margin")
	require.NoError(t, err)

	assert.Contains(t, byPrice, "Loss leader")
	assert.NotContains(t, byMargin, "Loss leader")
	assert.Contains(t, byMargin, "Wine glass")
}

func TestSearchCmd_Greedy(t *testing.T) {
	catalog := writeFile(t, "items.json", testCatalog)

	out, err := execute(t, "search", "17", "--catalog", catalog, "--mode", "multi",
		"--tolerance", "0", "--greedy", "--json")

	require.NoError(t, err)
	var result model.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.True(t, result.Found())
	assert.Equal(t, "17", result.Total.String())
}

func TestSearchCmd_Nearest(t *testing.T) {
	catalog := writeFile(t, "items.json", testCatalog)

	out, err := execute(t, "search", "6", "--catalog", catalog, "--nearest", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "Nearest:")
	assert.Contains(t, out, "Rice 1kg")
	assert.Contains(t, out, "Beans 1kg")
	assert.NotContains(t, out, "Wine glass")
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "search")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_RequiresCatalog(t *testing.T) {
	_, err := execute(t, "search", "17")

	assert.ErrorIs(t, err, errNoCatalog)
}

func TestSearchCmd_SingleText(t *testing.T) {
	catalog := writeFile(t, "items.json", testCatalog)

	out, err := execute(t, "search", "16,90", "--catalog", catalog)

	require.NoError(t, err)
	assert.Contains(t, out, "Wine glass")
	assert.Contains(t, out, "Total: 17.00 (target 16.90)")
}

func TestSearchCmd_CombinationJSON(t *testing.T) {
	catalog := writeFile(t, "items.json", testCatalog)
	blacklist := writeFile(t, "blacklist.txt", "glass\n")

	out, err := execute(t, "search", "17,00",
		"--catalog", catalog,
		"--blacklist", blacklist,
		"--mode", "combination",
		"--tolerance", "0",
		"--json",
	)

	require.NoError(t, err)
	var result model.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Found())
	assert.Equal(t, "17", result.Total.String())
	assert.ElementsMatch(t, []string{"A", "B"}, result.Codes())
	assert.ElementsMatch(t,
		[]model.WithdrawalLine{{Code: "A", Units: 2}, {Code: "B", Units: 1}},
		result.Lines())
}

func TestSearchCmd_NotFound(t *testing.T) {
	catalog := writeFile(t, "items.json", testCatalog)

	out, err := execute(t, "search", "17", "--catalog", catalog, "--mode", "multi",
		"--tolerance", "0", "--exclude", "G,B")

	require.NoError(t, err)
	assert.Contains(t, out, "No match for 17.00 within 0.00.")
}

func TestSearchCmd_Errors(t *testing.T) {
	catalog := writeFile(t, "items.json", testCatalog)
	broken := writeFile(t, "broken.json", `{"code":`)
	duplicates := writeFile(t, "dups.json", `[{"code":"A"},{"code":"A"}]`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown mode", args: []string{"search", "17", "--catalog", catalog, "--mode", "both"}, want: "unknown search mode"},
		{name: "bad price", args: []string{"search", "abc", "--catalog", catalog}, want: "invalid price format"},
		{name: "missing file", args: []string{"search", "17", "--catalog", filepath.Join(t.TempDir(), "nope.json")}, want: "read catalog"},
		{name: "broken file", args: []string{"search", "17", "--catalog", broken}, want: "parse catalog"},
		{name: "duplicate codes", args: []string{"search", "17", "--catalog", duplicates}, want: "load catalog"},
		{name: "zero target", args: []string{"search", "0", "--catalog", catalog}, want: "search failed"},
		{name: "target overflows", args: []string{"search", "1e17", "--catalog", catalog}, want: "price out of range"},
		{name: "unknown admissibility", args: []string{"search", "17", "--catalog", catalog, "--admissibility", "cost"}, want: "unknown admissibility"},
		{name: "nearest past cap", args: []string{"search", "17", "--catalog", catalog, "--nearest", "51"}, want: "nearest count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
