package scraping

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"

	"github.com/Caia-Tech/ff6-dataset/pkg/ratelimit"
)

// Robots policies
const (
	RobotsEnforce = "enforce"
	RobotsWarn    = "warn"
	RobotsIgnore  = "ignore"
)

// ErrDisallowed is returned under the enforce policy when robots.txt blocks the API path
var ErrDisallowed = errors.New("blocked by robots.txt")

// ComplianceResult represents the result of a robots.txt check
type ComplianceResult struct {
	URL        string        `json:"url"`
	Domain     string        `json:"domain"`
	Allowed    bool          `json:"allowed"`
	Checked    bool          `json:"checked"`
	CrawlDelay time.Duration `json:"crawl_delay"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// ComplianceChecker reads robots.txt for the wiki host
type ComplianceChecker struct {
	client    *http.Client
	userAgent string
}

// NewComplianceChecker creates a checker that identifies itself with userAgent
func NewComplianceChecker(userAgent string, timeout time.Duration) *ComplianceChecker {
	return &ComplianceChecker{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Check fetches robots.txt for targetURL's host and tests the URL's path.
// An unreachable robots.txt is reported as allowed and unchecked.
func (cc *ComplianceChecker) Check(ctx context.Context, targetURL string) (*ComplianceResult, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	result := &ComplianceResult{
		URL:       targetURL,
		Domain:    parsed.Host,
		Allowed:   true,
		CheckedAt: time.Now(),
	}

	robotsURL := (&url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build robots request: %w", err)
	}
	req.Header.Set("User-Agent", cc.userAgent)

	resp, err := cc.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("robots_url", robotsURL).Msg("robots.txt unreachable, assuming allowed")
		return result, nil
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.Warn().Err(err).Str("robots_url", robotsURL).Msg("robots.txt unparseable, assuming allowed")
		return result, nil
	}

	group := robots.FindGroup(cc.userAgent)
	result.Checked = true
	result.Allowed = group.Test(parsed.Path)
	result.CrawlDelay = group.CrawlDelay

	log.Debug().
		Str("domain", result.Domain).
		Bool("allowed", result.Allowed).
		Dur("crawl_delay", result.CrawlDelay).
		Msg("robots.txt checked")

	return result, nil
}

// ApplyRobotsPolicy checks the fetcher's API URL and adjusts its pacing.
// Under the enforce policy a disallowed path returns ErrDisallowed.
func (f *Fetcher) ApplyRobotsPolicy(ctx context.Context, checker *ComplianceChecker) (*ComplianceResult, error) {
	if f.config.RobotsPolicy == RobotsIgnore {
		return nil, nil
	}

	result, err := checker.Check(ctx, f.config.APIURL)
	if err != nil {
		return nil, err
	}

	if !result.Allowed {
		if f.config.RobotsPolicy == RobotsEnforce {
			return result, fmt.Errorf("%s: %w", f.config.APIURL, ErrDisallowed)
		}
		f.logger.Warn().
			Str("url", f.config.APIURL).
			Msg("robots.txt disallows the API path; continuing under warn policy")
	}

	if result.CrawlDelay > f.limiter.Interval(ratelimit.SourceWiki) {
		f.logger.Info().
			Dur("crawl_delay", result.CrawlDelay).
			Msg("Raising request delay to robots.txt crawl-delay")
		f.limiter.SetInterval(ratelimit.SourceWiki, result.CrawlDelay)
	}

	return result, nil
}
