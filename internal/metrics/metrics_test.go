package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestObservePage(t *testing.T) {
	t.Parallel()

	ObservePage("https://observe-page.test/a", "success", 512, 150*time.Millisecond)
	ObservePage("https://observe-page.test/b", "error", 0, time.Second)

	require.InDelta(t, 1, testutil.ToFloat64(pagesTotal.WithLabelValues("observe-page.test", "success")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pagesTotal.WithLabelValues("observe-page.test", "error")), 0)
	require.InDelta(t, 512, testutil.ToFloat64(bytesTotal.WithLabelValues("observe-page.test")), 0)
}

func TestObserveExtraction(t *testing.T) {
	t.Parallel()

	ObserveExtraction("observe-strategy", 72)
	ObserveExtraction("observe-strategy", 40)

	require.InDelta(t, 2, testutil.ToFloat64(extractionStrategyTotal.WithLabelValues("observe-strategy")), 0)
	require.Positive(t, testutil.CollectAndCount(qualityScore))
}

func TestInitIdempotent(t *testing.T) {
	t.Parallel()

	Init()
	Init()
	require.NotNil(t, pagesTotal)
	require.NotNil(t, httpRequestsTotal)
	require.NotNil(t, activeJobs)
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://google.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
