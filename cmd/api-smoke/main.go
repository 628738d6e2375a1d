// Command api-smoke checks the Anthropic key with a one-line prompt.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/Caia-Tech/ff6-dataset/internal/cli"
	"github.com/Caia-Tech/ff6-dataset/internal/expansion"
)

func main() {
	cli.Run(run)
}

func run() error {
	common := cli.RegisterFlags()
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Parse()

	cfg, err := cli.Bootstrap(common)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	reply, err := expansion.SmokeTest(ctx, cfg.Expansion, *timeout)
	if err != nil {
		return fmt.Errorf("API smoke test failed: %w", err)
	}
	fmt.Println(reply)
	return nil
}
