package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_WaitForSource(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		interval    time.Duration
		shouldError bool
	}{
		{name: "wiki pacing", source: SourceWiki, interval: 120 * time.Millisecond},
		{name: "model api pacing", source: SourceAnthropic, interval: 60 * time.Millisecond},
		{name: "unknown source", source: "unknown", shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewLimiterWithIntervals(map[string]time.Duration{
				SourceWiki:      120 * time.Millisecond,
				SourceAnthropic: 60 * time.Millisecond,
			})
			ctx := context.Background()

			start := time.Now()
			err := limiter.WaitForSource(ctx, tt.source)
			if tt.shouldError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Less(t, time.Since(start), 50*time.Millisecond, "first request should be immediate")

			start = time.Now()
			require.NoError(t, limiter.WaitForSource(ctx, tt.source))
			elapsed := time.Since(start)
			assert.GreaterOrEqual(t, elapsed, tt.interval-10*time.Millisecond)
			assert.Less(t, elapsed, tt.interval+100*time.Millisecond)
		})
	}
}

func TestLimiter_ContextCancellation(t *testing.T) {
	limiter := NewLimiterWithIntervals(map[string]time.Duration{SourceWiki: time.Hour})
	require.NoError(t, limiter.WaitForSource(context.Background(), SourceWiki))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.WaitForSource(ctx, SourceWiki)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLimiter_ErrorsDoNotChangePacing(t *testing.T) {
	limiter := NewLimiter()
	for i := 0; i < 5; i++ {
		limiter.RecordError(SourceWiki)
	}
	limiter.RecordError("unknown")

	stats := limiter.GetStats()
	assert.Equal(t, int64(5), stats[SourceWiki].ErrorCount)
	assert.Equal(t, time.Second, stats[SourceWiki].MinInterval)
	assert.Equal(t, 500*time.Millisecond, limiter.Interval(SourceAnthropic))
}

func TestLimiter_SetInterval(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetInterval(SourceWiki, 5*time.Second)
	limiter.SetInterval("mirror", 2*time.Second)

	assert.Equal(t, 5*time.Second, limiter.Interval(SourceWiki))
	assert.Equal(t, 2*time.Second, limiter.Interval("mirror"))
	assert.Zero(t, limiter.Interval("missing"))
}
