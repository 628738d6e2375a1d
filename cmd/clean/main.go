// Command clean strips wiki markup from the raw pages.
package main

import (
	"flag"
	"fmt"

	"github.com/Caia-Tech/ff6-dataset/internal/cli"
)

func main() {
	cli.Run(run)
}

func run() error {
	common := cli.RegisterFlags()
	in := flag.String("in", "", "raw pages file")
	out := flag.String("out", "", "cleaned pages output file")
	flag.Parse()

	cfg, err := cli.Bootstrap(common)
	if err != nil {
		return err
	}
	if *in == "" {
		*in = cfg.DataPaths.RawPages
	}
	if *out == "" {
		*out = cfg.DataPaths.CleanedPages
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	env, err := cli.NewEnv(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Printf("🧹 Cleaning %s\n", *in)
	stats, err := env.Runner.Clean(ctx, env.RunID, *in, *out)
	if err != nil {
		return fmt.Errorf("clean failed: %w", err)
	}

	if stats.PagesDropped > 0 {
		fmt.Printf("⚠️  Skipped %d pages with too little content\n", stats.PagesDropped)
	}
	fmt.Printf("\n✅ Done! Saved %d pages (%d sections) to %s\n", stats.PagesOut, stats.SectionsOut, *out)
	return nil
}
