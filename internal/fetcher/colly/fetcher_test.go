package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webextract/internal/crawler"
)

func TestFetchHTML(t *testing.T) {
	t.Parallel()

	userAgents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgents <- r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>hello</p></body></html>")
	}))
	t.Cleanup(srv.Close)

	res := New(Config{Timeout: time.Second}).Fetch(context.Background(), srv.URL+"/page")

	require.NoError(t, res.Err)
	require.True(t, res.OK())
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.RawHTML, "<p>hello</p>")
	require.Equal(t, srv.URL+"/page", res.URL)
	require.Equal(t, srv.URL+"/page", res.FinalURL)
	require.Equal(t, DefaultUserAgent, <-userAgents)
}

func TestFetchSameURLTwice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html></html>")
	}))
	t.Cleanup(srv.Close)

	f := New(Config{Timeout: time.Second})
	require.NoError(t, f.Fetch(context.Background(), srv.URL).Err)
	require.NoError(t, f.Fetch(context.Background(), srv.URL).Err)
}

func TestFetchNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/busy" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	f := New(Config{Timeout: time.Second})

	res := f.Fetch(context.Background(), srv.URL+"/missing")
	var fe *crawler.FetchError
	require.ErrorAs(t, res.Err, &fe)
	require.Equal(t, http.StatusNotFound, fe.StatusCode)
	require.False(t, fe.Temporary())

	res = f.Fetch(context.Background(), srv.URL+"/busy")
	require.ErrorAs(t, res.Err, &fe)
	require.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	require.True(t, fe.Temporary())
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	res := New(Config{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL)

	var fe *crawler.FetchError
	require.ErrorAs(t, res.Err, &fe)
	require.True(t, fe.Timeout())
}

func TestFetchContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(Config{Timeout: time.Second}).Fetch(ctx, "http://127.0.0.1:1/unreachable")

	require.Error(t, res.Err)
}

func TestFetchRejectsNonHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	t.Cleanup(srv.Close)

	res := New(Config{Timeout: time.Second}).Fetch(context.Background(), srv.URL+"/file.pdf")

	require.ErrorIs(t, res.Err, crawler.ErrUnsupportedContent)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	hooks := &stubHooks{}
	var a attempt
	f.configureCollectorHooks(hooks, "https://example.com", time.Now(), &a)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	req := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(req)
	require.Contains(t, req.Headers.Get("Accept"), "text/html")

	final, err := url.Parse("https://example.com/landing")
	require.NoError(t, err)
	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("body"),
		Headers:    &http.Header{"Content-Type": {"text/html"}},
		Request:    &colly.Request{URL: final},
	})
	require.Nil(t, a.fetchErr)
	require.Equal(t, "https://example.com/landing", a.result.FinalURL)
	require.Equal(t, "body", a.result.RawHTML)

	hooks.onError(nil, errors.New("boom"))
	require.NotNil(t, a.fetchErr)
	require.EqualError(t, a.fetchErr, "fetch https://example.com: boom")
}

func TestBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "test-agent", RespectRobots: true})
	c := f.buildCollector()

	require.Equal(t, "test-agent", c.UserAgent)
	require.False(t, c.IgnoreRobotsTxt)
	require.True(t, c.AllowURLRevisit)
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
