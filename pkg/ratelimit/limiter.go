package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Source names used by the dataset tools
const (
	SourceWiki      = "wiki"
	SourceAnthropic = "anthropic"
)

// Limiter enforces a fixed minimum interval between requests per source.
// There is no backoff: the interval applies regardless of outcome.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*SourceLimiter
}

// SourceLimiter tracks the pacing state of a single source
type SourceLimiter struct {
	name            string
	minInterval     time.Duration
	lastRequestTime time.Time
	requestCount    int64
	errorCount      int64
}

// NewLimiter creates a limiter with the default pacing for the wiki and
// the model API
func NewLimiter() *Limiter {
	return NewLimiterWithIntervals(map[string]time.Duration{
		SourceWiki:      1 * time.Second,
		SourceAnthropic: 500 * time.Millisecond,
	})
}

// NewLimiterWithIntervals creates a limiter for the given sources
func NewLimiterWithIntervals(intervals map[string]time.Duration) *Limiter {
	l := &Limiter{limiters: make(map[string]*SourceLimiter, len(intervals))}
	for name, interval := range intervals {
		l.limiters[name] = &SourceLimiter{name: name, minInterval: interval}
	}
	return l
}

// SetInterval changes the minimum interval for a source, registering it if needed
func (l *Limiter) SetInterval(source string, interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[source]; ok {
		limiter.minInterval = interval
		return
	}
	l.limiters[source] = &SourceLimiter{name: source, minInterval: interval}
}

// Interval returns the current minimum interval for a source
func (l *Limiter) Interval(source string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[source]; ok {
		return limiter.minInterval
	}
	return 0
}

// WaitForSource blocks until it's safe to make a request to the source
func (l *Limiter) WaitForSource(ctx context.Context, source string) error {
	l.mu.Lock()
	limiter, exists := l.limiters[source]
	if !exists {
		l.mu.Unlock()
		return fmt.Errorf("unknown source: %s", source)
	}

	now := time.Now()
	sinceLast := now.Sub(limiter.lastRequestTime)

	if sinceLast < limiter.minInterval {
		waitTime := limiter.minInterval - sinceLast
		l.mu.Unlock()

		timer := time.NewTimer(waitTime)
		defer timer.Stop()

		select {
		case <-timer.C:
			l.mu.Lock()
			limiter.lastRequestTime = time.Now()
			limiter.requestCount++
			l.mu.Unlock()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	limiter.lastRequestTime = now
	limiter.requestCount++
	l.mu.Unlock()
	return nil
}

// RecordError counts a failed request. It does not change pacing.
func (l *Limiter) RecordError(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[source]; ok {
		limiter.errorCount++
	}
}

// GetStats returns statistics for all sources
func (l *Limiter) GetStats() map[string]SourceStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := make(map[string]SourceStats, len(l.limiters))
	for name, limiter := range l.limiters {
		stats[name] = SourceStats{
			RequestCount:    limiter.requestCount,
			ErrorCount:      limiter.errorCount,
			LastRequestTime: limiter.lastRequestTime,
			MinInterval:     limiter.minInterval,
		}
	}
	return stats
}

// SourceStats contains statistics for a source
type SourceStats struct {
	RequestCount    int64
	ErrorCount      int64
	LastRequestTime time.Time
	MinInterval     time.Duration
}
