package processing

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
)

// Config controls which sections and pages survive cleaning
type Config struct {
	MinSectionLength int      `json:"min_section_length"`
	MinPageLength    int      `json:"min_page_length"`
	TemplatePasses   int      `json:"template_passes"`
	SkipHeadings     []string `json:"skip_headings"`
}

// DefaultSkipHeadings are headings whose sections never carry useful prose
var DefaultSkipHeadings = []string{
	"citations", "see also", "external links",
	"references", "notes",
	"unlisted entries", "dummied",
	"gallery",
	"non-final fantasy guest appearances",
	"unused weapons",
	"packaging artwork",
	"production credits",
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() *Config {
	skip := make([]string, 0, len(DefaultSkipHeadings)+26)
	skip = append(skip, DefaultSkipHeadings...)
	// single letter index headings on list pages
	for c := 'a'; c <= 'z'; c++ {
		skip = append(skip, string(c))
	}

	return &Config{
		MinSectionLength: 20,
		MinPageLength:    50,
		TemplatePasses:   DefaultTemplatePasses,
		SkipHeadings:     skip,
	}
}

// CleaningStats summarises a CleanPages run
type CleaningStats struct {
	PagesIn          int            `json:"pages_in"`
	PagesOut         int            `json:"pages_out"`
	PagesDropped     int            `json:"pages_dropped"`
	SectionsIn       int            `json:"sections_in"`
	SectionsOut      int            `json:"sections_out"`
	SectionsSkipped  int            `json:"sections_skipped"` // skip-set headings
	SectionsTooShort int            `json:"sections_too_short"`
	BytesRemoved     int            `json:"bytes_removed"`
	RuleHits         map[string]int `json:"rule_hits"`
	Duration         time.Duration  `json:"duration"`
}

// PageCleaner turns raw pages into cleaned pages
type PageCleaner struct {
	config  *Config
	cleaner *MarkupCleaner
	skip    map[string]bool
	logger  zerolog.Logger
}

// NewPageCleaner creates a page cleaner from config
func NewPageCleaner(config *Config) *PageCleaner {
	if config == nil {
		config = DefaultConfig()
	}
	skip := make(map[string]bool, len(config.SkipHeadings))
	for _, h := range config.SkipHeadings {
		skip[strings.ToLower(strings.TrimSpace(h))] = true
	}

	return &PageCleaner{
		config:  config,
		cleaner: NewMarkupCleaner(config.TemplatePasses),
		skip:    skip,
		logger:  logging.GetLogger("cleaner"),
	}
}

// Cleaner exposes the underlying markup cleaner
func (pc *PageCleaner) Cleaner() *MarkupCleaner {
	return pc.cleaner
}

// SkipHeading reports whether a section with this heading is dropped before cleaning
func (pc *PageCleaner) SkipHeading(heading string) bool {
	return pc.skip[strings.ToLower(strings.TrimSpace(heading))]
}

// CleanPage cleans one page. The second return value is false when the page
// should be dropped. The input page is not modified.
func (pc *PageCleaner) CleanPage(page dataset.Page, stats *CleaningStats) (dataset.Page, bool) {
	if stats == nil {
		stats = &CleaningStats{}
	}
	if stats.RuleHits == nil {
		stats.RuleHits = make(map[string]int)
	}

	cleaned := dataset.Page{
		Title:    page.Title,
		URL:      page.URL,
		Sections: make([]dataset.Section, 0, len(page.Sections)),
	}

	for _, section := range page.Sections {
		stats.SectionsIn++
		if pc.SkipHeading(section.Heading) {
			stats.SectionsSkipped++
			continue
		}

		content, result := pc.cleaner.Clean(section.Content)
		stats.BytesRemoved += result.BytesRemoved
		for _, name := range result.RulesApplied {
			stats.RuleHits[name]++
		}

		if utf8.RuneCountInString(content) < pc.config.MinSectionLength {
			stats.SectionsTooShort++
			continue
		}

		versions := make([]dataset.VersionTag, len(section.Versions))
		copy(versions, section.Versions)
		cleaned.Sections = append(cleaned.Sections, dataset.Section{
			Heading:  section.Heading,
			Content:  content,
			Versions: versions,
		})
	}

	if len(cleaned.Sections) == 0 || cleaned.TotalContentLength() < pc.config.MinPageLength {
		pc.logger.Info().
			Str("title", page.Title).
			Int("chars", cleaned.TotalContentLength()).
			Msg("Skipping page with too little content")
		return dataset.Page{}, false
	}

	stats.SectionsOut += len(cleaned.Sections)
	return cleaned, true
}

// CleanPages cleans every page and drops stubs and empty pages
func (pc *PageCleaner) CleanPages(pages []dataset.Page) ([]dataset.Page, *CleaningStats) {
	start := time.Now()
	stats := &CleaningStats{
		PagesIn:  len(pages),
		RuleHits: make(map[string]int),
	}

	out := make([]dataset.Page, 0, len(pages))
	for _, page := range pages {
		cleaned, ok := pc.CleanPage(page, stats)
		if !ok {
			stats.PagesDropped++
			continue
		}
		out = append(out, cleaned)
		pc.logger.Debug().
			Str("title", page.Title).
			Int("sections", len(cleaned.Sections)).
			Msg("Page cleaned")
	}

	stats.PagesOut = len(out)
	stats.Duration = time.Since(start)
	return out, stats
}
