// Command scrape downloads the configured wiki pages into the raw pages file.
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/Caia-Tech/ff6-dataset/internal/cli"
)

func main() {
	cli.Run(run)
}

func run() error {
	common := cli.RegisterFlags()
	pages := flag.String("pages", "", "comma-separated page titles (default: the configured page list)")
	out := flag.String("out", "", "raw pages output file")
	flag.Parse()

	cfg, err := cli.Bootstrap(common)
	if err != nil {
		return err
	}
	if *out == "" {
		*out = cfg.DataPaths.RawPages
	}

	var titles []string
	for _, t := range strings.Split(*pages, ",") {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) == 0 {
		titles = cfg.Wiki.Pages
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	env, err := cli.NewEnv(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Printf("🌐 Scraping %d pages from %s\n", len(titles), cfg.Wiki.APIURL)
	stats, err := env.Runner.Scrape(ctx, env.RunID, titles, *out)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	fmt.Printf("\n✅ Done! Scraped %d pages (%d sections).\n", stats.Fetched, stats.Sections)
	if stats.Missing > 0 || stats.Failed > 0 {
		fmt.Printf("⚠️  %d not found, %d failed\n", stats.Missing, stats.Failed)
	}
	fmt.Printf("💾 Saved to %s\n", *out)
	return nil
}
