// Package main exports every stored variant summary to CSV, XLSX and Markdown,
// or resolves a bundle query against the stored variant keys.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"skyblock-price-lab/internal/app"
	"skyblock-price-lab/internal/config"
	"skyblock-price-lab/internal/reporting"
	"skyblock-price-lab/internal/variant"
)

func main() {
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	printMarkdown := flag.Bool("print", false, "Also print the Markdown report to stdout")
	resolve := flag.String("resolve", "", "Print the variant keys matching ITEM=BUNDLE (e.g. PET=bundle:pet:tiger) and exit")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	// Summaries never live in ClickHouse.
	cfg.ClickHouseDSN = ""

	ctx := context.Background()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open stores: %v", err)
	}
	defer stores.Close()

	if *resolve != "" {
		if err := resolveBundle(ctx, app.NewBundleService(cfg, stores), *resolve); err != nil {
			stores.Close()
			logger.Fatalf("Resolve failed: %v", err)
		}
		return
	}

	gen := reporting.NewGenerator(stores.Summaries)

	paths, err := reporting.Export(ctx, gen, *outputDir)
	if err != nil {
		stores.Close()
		logger.Fatalf("Export failed: %v", err)
	}

	fmt.Println("Reports generated successfully:")
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}

	if *printMarkdown {
		report, err := gen.Generate(ctx)
		if err != nil {
			stores.Close()
			logger.Fatalf("Generate failed: %v", err)
		}
		fmt.Println()
		fmt.Print(reporting.RenderMarkdown(report))
	}
}

// resolveBundle prints the stored variant keys of an item matching a bundle.
func resolveBundle(ctx context.Context, bundles *variant.BundleService, arg string) error {
	itemID, bundleKey, ok := strings.Cut(arg, "=")
	if !ok || itemID == "" || bundleKey == "" {
		return fmt.Errorf("--resolve must be ITEM=BUNDLE, got %q", arg)
	}

	keys, err := bundles.Resolve(ctx, itemID, bundleKey)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s: %d variant(s)\n", itemID, bundleKey, len(keys))
	for _, k := range keys {
		fmt.Printf("  %s\n", k)
	}
	return nil
}
