package dataset

import (
	"sort"
	"strings"
)

// HeadingCount is one row of the heading frequency table
type HeadingCount struct {
	Heading string `json:"heading"`
	Count   int    `json:"count"`
}

// Statistics summarises a page collection
type Statistics struct {
	TotalPages         int            `json:"total_pages"`
	TotalSections      int            `json:"total_sections"`
	AvgSectionsPerPage float64        `json:"avg_sections_per_page"`
	TopHeadings        []HeadingCount `json:"top_headings"`
	TotalPairs         int            `json:"total_pairs,omitempty"`
}

// ComputeStatistics counts pages, sections and the topN most common
// lowercased headings. Ties are broken alphabetically.
func ComputeStatistics(pages []Page, topN int) Statistics {
	stats := Statistics{TotalPages: len(pages)}
	counts := make(map[string]int)

	for _, page := range pages {
		stats.TotalSections += len(page.Sections)
		for _, s := range page.Sections {
			counts[s.HeadingKey()]++
		}
	}
	if stats.TotalPages > 0 {
		stats.AvgSectionsPerPage = float64(stats.TotalSections) / float64(stats.TotalPages)
	}

	headings := make([]HeadingCount, 0, len(counts))
	for h, c := range counts {
		headings = append(headings, HeadingCount{Heading: h, Count: c})
	}
	sort.Slice(headings, func(i, j int) bool {
		if headings[i].Count != headings[j].Count {
			return headings[i].Count > headings[j].Count
		}
		return headings[i].Heading < headings[j].Heading
	})
	if topN > 0 && len(headings) > topN {
		headings = headings[:topN]
	}
	stats.TopHeadings = headings

	return stats
}

// Titles returns the page titles in file order
func Titles(pages []Page) []string {
	titles := make([]string, len(pages))
	for i, p := range pages {
		titles[i] = p.Title
	}
	return titles
}

// FindPage looks a page up by title. Underscores and spaces are interchangeable
// and the comparison ignores case.
func FindPage(pages []Page, title string) (*Page, bool) {
	want := normalizeTitle(title)
	for i := range pages {
		if normalizeTitle(pages[i].Title) == want {
			return &pages[i], true
		}
	}
	return nil, false
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
}
