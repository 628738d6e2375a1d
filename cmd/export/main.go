// Command export copies the cleaned pages and training pairs into Postgres
// or Elasticsearch.
package main

import (
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Caia-Tech/ff6-dataset/internal/cli"
	"github.com/Caia-Tech/ff6-dataset/internal/export"
	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

func main() {
	cli.Run(run)
}

func run() error {
	common := cli.RegisterFlags()
	target := flag.String("target", export.TargetPostgres, "export target: postgres or elastic")
	pagesPath := flag.String("pages", "", "cleaned pages file")
	pairsPath := flag.String("pairs", "", "training pairs file")
	flag.Parse()

	cfg, err := cli.Bootstrap(common)
	if err != nil {
		return err
	}
	if *pagesPath == "" {
		*pagesPath = cfg.DataPaths.CleanedPages
	}
	if *pairsPath == "" {
		*pairsPath = cfg.DataPaths.TrainingFile
	}

	pages, err := dataset.LoadPages(*pagesPath)
	if err != nil {
		return err
	}
	pairs, err := dataset.LoadPairs(*pairsPath)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	sink, err := export.NewSink(ctx, *target, cfg.Export)
	if err != nil {
		return fmt.Errorf("failed to open %s sink: %w", *target, err)
	}
	defer sink.Close()

	fmt.Printf("📤 Exporting %d pages and %d pairs to %s\n", len(pages), len(pairs), *target)
	stats, err := sink.Export(ctx, pages, pairs)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	log.Info().
		Str("target", stats.Target).
		Int("pages", stats.Pages).
		Int("sections", stats.Sections).
		Int("pairs", stats.Pairs).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("Export complete")

	fmt.Printf("✅ Exported %d pages, %d sections and %d pairs", stats.Pages, stats.Sections, stats.Pairs)
	if stats.Failed > 0 {
		fmt.Printf(" (%d failed)", stats.Failed)
	}
	fmt.Println()
	return nil
}
