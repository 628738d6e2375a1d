// Command review samples training pairs for manual accept/reject/edit.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Caia-Tech/ff6-dataset/internal/cli"
	"github.com/Caia-Tech/ff6-dataset/internal/pipeline"
	"github.com/Caia-Tech/ff6-dataset/internal/review"
	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
)

func main() {
	cli.Run(run)
}

func run() error {
	common := cli.RegisterFlags()
	in := flag.String("in", "", "training pairs file")
	outDir := flag.String("out", "", "directory for accepted.json and rejected.json")
	sample := flag.Int("n", 0, "sample size (default 200)")
	plain := flag.Bool("plain", false, "line-oriented prompts instead of the full-screen UI")
	flag.Parse()

	cfg, err := cli.Bootstrap(common)
	if err != nil {
		return err
	}
	if *in == "" {
		*in = cfg.DataPaths.TrainingFile
	}
	if *outDir == "" {
		*outDir = cfg.Review.OutputDir
	}
	if *outDir == "" {
		*outDir = cfg.DataPaths.ReviewDir
	}
	if *sample > 0 {
		cfg.Review.SampleSize = *sample
	}
	if *plain {
		cfg.Review.Plain = true
	}
	if !cfg.Review.Plain && cfg.Logging.Console {
		// console logs would tear the full-screen UI
		cfg.Logging.Console = false
		if err := logging.SetupLogger(cfg.Logging); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
	}

	pairs, err := dataset.LoadPairs(*in)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return errors.New("no pairs to review in " + *in)
	}

	session := review.NewSessionFromConfig(pairs, cfg.Review, nil)
	if cfg.Review.Plain {
		err = review.RunPrompt(session, os.Stdin, os.Stdout)
	} else {
		err = review.RunTUI(session)
	}
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	if err := session.Save(*outDir); err != nil {
		return err
	}

	sum := session.Summary()
	fmt.Print(review.FormatSummary(sum, *outDir))

	if !cfg.Snapshot.Enabled {
		return nil
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	env, err := cli.NewEnv(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	summary := fmt.Sprintf("%d accepted, %d edited, %d rejected", sum.Accepted, sum.Edited, sum.Rejected)
	hash, err := env.Runner.Snapshot(ctx, env.RunID, pipeline.StageReview, summary,
		filepath.Join(*outDir, dataset.AcceptedFile),
		filepath.Join(*outDir, dataset.RejectedFile))
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	if hash != "" {
		fmt.Printf("📸 Snapshot %s\n", hash[:min(len(hash), 8)])
	}
	return nil
}
