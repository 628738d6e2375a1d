// Command check-pages lists the titles in the raw pages file.
package main

import (
	"flag"
	"fmt"

	"github.com/Caia-Tech/ff6-dataset/internal/cli"
	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

func main() {
	cli.Run(run)
}

func run() error {
	common := cli.RegisterFlags()
	in := flag.String("in", "", "raw pages file")
	flag.Parse()

	cfg, err := cli.Bootstrap(common)
	if err != nil {
		return err
	}
	if *in == "" {
		*in = cfg.DataPaths.RawPages
	}

	pages, err := dataset.LoadPages(*in)
	if err != nil {
		return err
	}

	fmt.Printf("Pages in raw file: %d\n", len(pages))
	for _, title := range dataset.Titles(pages) {
		fmt.Printf("  %s\n", title)
	}
	return nil
}
