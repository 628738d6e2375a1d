// Command expand asks the model for extra question/answer pairs per section
// and appends them to the training file.
package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Caia-Tech/ff6-dataset/internal/cli"
	"github.com/Caia-Tech/ff6-dataset/internal/expansion"
	"github.com/Caia-Tech/ff6-dataset/internal/pipeline"
)

func main() {
	cli.Run(run)
}

func run() error {
	common := cli.RegisterFlags()
	in := flag.String("in", "", "cleaned pages file")
	out := flag.String("out", "", "training pairs file to extend")
	model := flag.String("model", "", "override the model")
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
	if *model != "" {
		cfg.Expansion.Model = *model
	}

	tokens, err := expansion.NewTokenCounter(expansion.DefaultEncoding)
	if err != nil {
		log.Warn().Err(err).Msg("Token encoding unavailable, estimating from length")
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	env, err := cli.NewEnv(cfg, pipeline.WithTokenCounter(tokens))
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Printf("🤖 Expanding %s with %s\n", *in, cfg.Expansion.Model)
	stats, err := env.Runner.Expand(ctx, env.RunID, *in, *out)
	if errors.Is(err, expansion.ErrNoAPIKey) {
		return fmt.Errorf("%w (add it to .env or the environment)", err)
	}
	if err != nil {
		return fmt.Errorf("expand failed: %w", err)
	}

	fmt.Printf("\n✅ Generated %d new pairs from %d sections.\n", stats.NewPairs, stats.Processed)
	if stats.RequestErrors > 0 || stats.ParseErrors > 0 {
		fmt.Printf("⚠️  %d request errors, %d unparseable responses\n", stats.RequestErrors, stats.ParseErrors)
	}
	fmt.Printf("🔢 ~%d prompt tokens sent, %d in / %d out billed\n", stats.PromptTokens, stats.InputTokens, stats.OutputTokens)
	fmt.Printf("💾 Total pairs now in %s\n", *out)
	return nil
}
