// Package ratelimit spaces out requests to the same site within a job.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/metrics"
)

// Limiter holds one token bucket per site.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// Config holds rate limiter configuration.
type Config struct {
	// Delay is the minimum gap between requests to one site. Zero disables
	// limiting.
	Delay time.Duration
	Burst int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Wait blocks until a request to the URL's site may proceed.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	site := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		site = crawler.SiteKey(u.Hostname())
	}
	l.mu.Lock()
	limiter, exists := l.limiters[site]
	if !exists {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[site] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(site, waited)
	}
	return nil
}
