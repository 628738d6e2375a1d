// Command diag prints section statistics for the cleaned pages.
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
	in := flag.String("in", "", "cleaned pages file")
	top := flag.Int("top", 20, "number of headings to list")
	flag.Parse()

	cfg, err := cli.Bootstrap(common)
	if err != nil {
		return err
	}
	if *in == "" {
		*in = cfg.DataPaths.CleanedPages
	}

	pages, err := dataset.LoadPages(*in)
	if err != nil {
		return err
	}

	stats := dataset.ComputeStatistics(pages, *top)
	fmt.Printf("Total pages: %d\n", stats.TotalPages)
	fmt.Printf("Total sections: %d\n", stats.TotalSections)
	fmt.Printf("Average sections per page: %.1f\n", stats.AvgSectionsPerPage)

	fmt.Printf("\nTop %d section headings:\n", *top)
	for _, h := range stats.TopHeadings {
		fmt.Printf("  %s: %d\n", h.Heading, h.Count)
	}
	return nil
}
