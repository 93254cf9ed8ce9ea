// Package collyfetcher implements Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/webextract/internal/crawler"
)

// DefaultUserAgent mimics a desktop browser; many sites refuse obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxBodySize = 10 << 20
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodySize   int
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// attempt is written only by the goroutine running the collector.
type attempt struct {
	result   crawler.PageFetchResult
	fetchErr *crawler.FetchError
	visitErr error
}

// Fetch retrieves one page. Timeouts, transport failures, non-2xx statuses
// and non-HTML bodies are reported through the result's Err.
func (f *Fetcher) Fetch(ctx context.Context, url string) crawler.PageFetchResult {
	start := time.Now()
	collector := f.buildCollector()

	done := make(chan attempt, 1)
	go func() {
		var a attempt
		f.configureCollectorHooks(collector, url, start, &a)
		a.visitErr = collector.Visit(url)
		done <- a
	}()

	select {
	case <-ctx.Done():
		return crawler.PageFetchResult{
			URL:      url,
			Duration: time.Since(start),
			Err:      &crawler.FetchError{URL: url, Err: ctx.Err()},
		}
	case a := <-done:
		return finish(url, start, a)
	}
}

func finish(url string, start time.Time, a attempt) crawler.PageFetchResult {
	res := a.result
	res.URL = url
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	switch {
	case a.fetchErr != nil:
		res.Err = a.fetchErr
	case a.visitErr != nil:
		res.Err = &crawler.FetchError{URL: url, Err: a.visitErr}
	case res.StatusCode == 0:
		res.Err = &crawler.FetchError{URL: url, Err: fmt.Errorf("no response")}
	}
	return res
}

func (f *Fetcher) buildCollector() *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.AllowURLRevisit = true
	collector.MaxBodySize = f.cfg.MaxBodySize
	collector.SetRequestTimeout(f.cfg.Timeout)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, url string, start time.Time, a *attempt) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	hooks.OnResponse(func(r *colly.Response) {
		a.result = crawler.PageFetchResult{
			URL:        url,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			RawHTML:    string(r.Body),
			Duration:   time.Since(start),
		}
		if r.Headers != nil {
			a.result.Headers = r.Headers.Clone()
		}
		if !isHTML(a.result.Headers) {
			a.fetchErr = &crawler.FetchError{
				URL:        url,
				StatusCode: r.StatusCode,
				Err:        fmt.Errorf("%w: %s", crawler.ErrUnsupportedContent, a.result.Headers.Get("Content-Type")),
			}
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
			a.result.StatusCode = status
		}
		if status != 0 && err != nil && err.Error() == http.StatusText(status) {
			err = nil
		}
		a.fetchErr = &crawler.FetchError{URL: url, StatusCode: status, Err: err}
	})
}

// isHTML accepts missing content types since many servers omit them.
func isHTML(h http.Header) bool {
	ct := h.Get("Content-Type")
	if ct == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.Contains(strings.ToLower(ct), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml" || mediaType == "text/plain"
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
