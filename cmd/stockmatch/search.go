package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/stockmatch/internal/engine"
	"github.com/vyrodovalexey/stockmatch/internal/model"
	"github.com/vyrodovalexey/stockmatch/internal/session"
	"github.com/vyrodovalexey/stockmatch/internal/store"
)

var errNoCatalog = errors.New("--catalog is required")

type searchOptions struct {
	catalog       string
	blacklist     string
	mode          string
	tolerance     string
	maxItems      int
	nearest       int
	exclude       []string
	admissibility string
	greedy        bool
	timeout       time.Duration
	json          bool
}

func newSearchCmd(logger func() *zap.Logger) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search PRICE",
		Short: "Search the catalog for a target price",
		Long: `Searches a JSON catalog for the item or combination of items closest to
PRICE. Prices accept either decimal separator, so "17,00" and "17.00" are
the same target.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], opts, logger())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.catalog, "catalog", "c", "", "catalog file (JSON array of items)")
	flags.StringVarP(&opts.blacklist, "blacklist", "b", "", "blacklist file, one term per line")
	flags.StringVarP(&opts.mode, "mode", "m", "single", "search mode: single|product or multi|combination")
	flags.StringVarP(&opts.tolerance, "tolerance", "t", "", "accepted distance from the target (default 0,40)")
	flags.IntVarP(&opts.maxItems, "max-items", "n", session.DefaultMaxItems, "maximum distinct items in a combination")
	flags.IntVar(&opts.nearest, "nearest", 0, "also list the N items priced closest to PRICE (single mode)")
	flags.StringSliceVarP(&opts.exclude, "exclude", "x", nil, "item codes to leave out")
	flags.StringVar(&opts.admissibility, "admissibility", string(engine.AdmitByPrice),
		"which items may be offered: price (positive sale price) or margin (positive profit margin)")
	flags.BoolVar(&opts.greedy, "greedy", false, "try a randomized greedy pass before the exact solver")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up after this long")
	flags.BoolVar(&opts.json, "json", false, "output the result as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, price string, opts *searchOptions, logger *zap.Logger) error {
	defer func() { _ = logger.Sync() }()

	if opts.catalog == "" {
		return errNoCatalog
	}

	mode, err := model.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	input := model.SearchInput{
		Price:     price,
		Mode:      mode,
		Tolerance: opts.tolerance,
		MaxItems:  opts.maxItems,
		Exclude:   opts.exclude,
		Nearest:   opts.nearest,
	}
	req, toleranceSet, err := input.Request()
	if err != nil {
		return err
	}

	cfg, err := searchConfig(opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	items, err := loadCatalog(ctx, opts.catalog)
	if err != nil {
		return err
	}
	if opts.blacklist != "" {
		content, err := os.ReadFile(opts.blacklist)
		if err != nil {
			return fmt.Errorf("read blacklist: %w", err)
		}
		req.Blacklist = store.ParseBlacklist(string(content))
	}

	sup := session.NewSupervisor(cfg, logger)
	defer sup.Shutdown()
	req = sup.WithDefaults(req, toleranceSet)

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	result, err := sup.Search(ctx, items, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.json {
		return outputResultJSON(cmd, result)
	}
	outputResultText(cmd, req, result)
	return nil
}

// searchConfig starts from the server defaults and applies the solver flags.
func searchConfig(opts *searchOptions) (session.Config, error) {
	cfg := session.DefaultConfig()

	admissibility, err := engine.ParseAdmissibility(opts.admissibility)
	if err != nil {
		return session.Config{}, fmt.Errorf("--admissibility: %w", err)
	}
	cfg.Admissibility = admissibility
	cfg.GreedyFirst = opts.greedy

	return cfg, nil
}

// loadCatalog reads the catalog file through the memory store so it gets
// the same validation as a catalog import over HTTP.
func loadCatalog(ctx context.Context, path string) ([]model.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	catalog := store.NewMemoryStore()
	if err := catalog.Replace(ctx, items); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalog.List(ctx)
}

func outputResultJSON(cmd *cobra.Command, result model.SearchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResultText(cmd *cobra.Command, req model.SearchRequest, result model.SearchResult) {
	if !result.Found() {
		cmd.Printf("No match for %s within %s.\n", req.Target.StringFixed(2), req.Tolerance.StringFixed(2))
		return
	}

	if result.Item != nil {
		cmd.Printf("  %-12s %-40s %s\n", result.Item.Code, result.Item.Description, result.Item.SalePrice.StringFixed(2))
	}
	for _, e := range result.Combination {
		cmd.Printf("  %-12s %-40s %d x %s = %s\n",
			e.Item.Code, e.Item.Description, e.Units, e.Item.SalePrice.StringFixed(2), e.Subtotal().StringFixed(2))
	}
	cmd.Printf("Total: %s (target %s)\n", result.Total.StringFixed(2), req.Target.StringFixed(2))

	if len(result.Nearest) > 0 {
		cmd.Println("Nearest:")
		for _, it := range result.Nearest {
			cmd.Printf("  %-12s %-40s %s\n", it.Code, it.Description, it.SalePrice.StringFixed(2))
		}
	}
}
