// Command generate turns cleaned sections into template training pairs.
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
	in := flag.String("in", "", "cleaned pages file")
	out := flag.String("out", "", "training pairs output file")
	seed := flag.Int64("seed", 0, "shuffle seed (0 seeds from the clock)")
	flag.Parse()

	cfg, err := cli.Bootstrap(common)
	if err != nil {
		return err
	}
	if *in == "" {
		*in = cfg.DataPaths.CleanedPages
	}
	if *out == "" {
		*out = cfg.DataPaths.TrainingFile
	}

	if *seed != 0 {
		cfg.Generation.Seed = *seed
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	env, err := cli.NewEnv(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	stats, err := env.Runner.Generate(ctx, env.RunID, *in, *out)
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}

	fmt.Printf("✅ Generated %d training pairs.\n", stats.Pairs)
	if stats.Duplicates > 0 {
		fmt.Printf("   (%d duplicate instructions dropped)\n", stats.Duplicates)
	}
	fmt.Printf("💾 Saved to %s\n", *out)
	return nil
}
