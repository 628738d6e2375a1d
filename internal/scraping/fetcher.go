package scraping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
	"github.com/Caia-Tech/ff6-dataset/pkg/ratelimit"
)

var (
	// ErrPageMissing is returned when the wiki reports the title as missing
	ErrPageMissing = errors.New("page not found")
	// ErrEmptyContent is returned when the page has no revision text
	ErrEmptyContent = errors.New("page has no content")
)

// Config configures the wiki fetcher
type Config struct {
	APIURL         string        `json:"api_url"`
	PageURLPrefix  string        `json:"page_url_prefix"`
	UserAgent      string        `json:"user_agent"`
	RequestTimeout time.Duration `json:"request_timeout"`
	RequestDelay   time.Duration `json:"request_delay"`
	RobotsPolicy   string        `json:"robots_policy"` // enforce, warn, ignore
	Pages          []string      `json:"pages"`
}

// DefaultConfig returns the settings for the Final Fantasy fandom wiki
func DefaultConfig() *Config {
	pages := make([]string, len(DefaultPages))
	copy(pages, DefaultPages)

	return &Config{
		APIURL:         "https://finalfantasy.fandom.com/api.php",
		PageURLPrefix:  "https://finalfantasy.fandom.com/wiki/",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		RequestTimeout: 10 * time.Second,
		RequestDelay:   1 * time.Second,
		RobotsPolicy:   RobotsWarn,
		Pages:          pages,
	}
}

// apiResponse mirrors the parts of a formatversion=2 revisions query we read
type apiResponse struct {
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				Slots struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

// ScrapeStats summarises one scrape run
type ScrapeStats struct {
	Requested int           `json:"requested"`
	Fetched   int           `json:"fetched"`
	Missing   int           `json:"missing"`
	Failed    int           `json:"failed"`
	Sections  int           `json:"sections"`
	Duration  time.Duration `json:"duration"`
}

// Fetcher downloads page markup from a MediaWiki API one title at a time
type Fetcher struct {
	config    *Config
	collector *colly.Collector
	limiter   *ratelimit.Limiter
	logger    zerolog.Logger
}

// NewFetcher creates a fetcher. A nil limiter gets one paced at config.RequestDelay.
func NewFetcher(config *Config, limiter *ratelimit.Limiter) *Fetcher {
	if config == nil {
		config = DefaultConfig()
	}
	if limiter == nil {
		limiter = ratelimit.NewLimiterWithIntervals(map[string]time.Duration{
			ratelimit.SourceWiki: config.RequestDelay,
		})
	}

	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(config.RequestTimeout)

	return &Fetcher{
		config:    config,
		collector: c,
		limiter:   limiter,
		logger:    logging.GetLogger("scraper"),
	}
}

// Limiter exposes the pacing limiter so callers can adjust it
func (f *Fetcher) Limiter() *ratelimit.Limiter {
	return f.limiter
}

// PageURL returns the human-facing article URL for a title
func (f *Fetcher) PageURL(title string) string {
	return f.config.PageURLPrefix + title
}

// QueryURL builds the revisions query for a title
func (f *Fetcher) QueryURL(title string) (string, error) {
	u, err := url.Parse(f.config.APIURL)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("titles", title)
	params.Set("prop", "revisions")
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// FetchPage downloads one article and splits it into sections.
// ErrPageMissing and ErrEmptyContent mean the page should be skipped.
func (f *Fetcher) FetchPage(ctx context.Context, title string) (*dataset.Page, error) {
	if err := f.limiter.WaitForSource(ctx, ratelimit.SourceWiki); err != nil {
		return nil, err
	}

	queryURL, err := f.QueryURL(title)
	if err != nil {
		return nil, err
	}

	var body []byte
	c := f.collector.Clone()
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		f.logger.Debug().
			Str("title", title).
			Int("status", r.StatusCode).
			Err(err).
			Msg("Wiki request failed")
	})

	if err := c.Visit(queryURL); err != nil {
		f.limiter.RecordError(ratelimit.SourceWiki)
		return nil, fmt.Errorf("failed to fetch %s: %w", title, err)
	}

	markup, err := parseRevisionContent(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", title, err)
	}

	return &dataset.Page{
		Title:    title,
		URL:      f.PageURL(title),
		Sections: SplitSections(markup),
	}, nil
}

func parseRevisionContent(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("invalid api response: %w", err)
	}

	if len(resp.Query.Pages) == 0 {
		return "", ErrPageMissing
	}
	page := resp.Query.Pages[0]
	if page.Missing {
		return "", ErrPageMissing
	}
	if len(page.Revisions) == 0 || page.Revisions[0].Slots.Main.Content == "" {
		return "", ErrEmptyContent
	}
	return page.Revisions[0].Slots.Main.Content, nil
}

// Scrape fetches every title in order. Failed and missing pages are logged
// and skipped; only context cancellation stops the run early.
func (f *Fetcher) Scrape(ctx context.Context, titles []string) ([]dataset.Page, *ScrapeStats, error) {
	start := time.Now()
	stats := &ScrapeStats{Requested: len(titles)}
	pages := make([]dataset.Page, 0, len(titles))

	for i, title := range titles {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return pages, stats, err
		}

		f.logger.Info().
			Int("index", i+1).
			Int("total", len(titles)).
			Str("title", title).
			Msg("Scraping page")

		page, err := f.FetchPage(ctx, title)
		switch {
		case err == nil:
			pages = append(pages, *page)
			stats.Fetched++
			stats.Sections += len(page.Sections)
			f.logger.Info().
				Str("title", title).
				Int("sections", len(page.Sections)).
				Msg("Page scraped")
		case errors.Is(err, ErrPageMissing), errors.Is(err, ErrEmptyContent):
			stats.Missing++
			f.logger.Warn().Str("title", title).Err(err).Msg("Skipping page")
		case ctx.Err() != nil:
			stats.Duration = time.Since(start)
			return pages, stats, ctx.Err()
		default:
			stats.Failed++
			f.logger.Error().Str("title", title).Err(err).Msg("Failed to scrape page")
		}
	}

	stats.Duration = time.Since(start)
	return pages, stats, nil
}
