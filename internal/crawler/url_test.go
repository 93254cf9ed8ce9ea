package crawler

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases host and scheme", in: "HTTPS://Example.COM/About", want: "https://example.com/About"},
		{name: "drops default port", in: "http://example.com:80/a", want: "http://example.com/a"},
		{name: "drops tls port", in: "https://example.com:443/a", want: "https://example.com/a"},
		{name: "keeps custom port", in: "https://example.com:8443/a", want: "https://example.com:8443/a"},
		{name: "drops fragment", in: "https://example.com/a#section", want: "https://example.com/a"},
		{name: "sorts query", in: "https://example.com/a?b=2&a=1", want: "https://example.com/a?a=1&b=2"},
		{name: "trims trailing slash", in: "https://example.com/docs/", want: "https://example.com/docs"},
		{name: "root collapses", in: "https://example.com/", want: "https://example.com"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURLRejectsRelative(t *testing.T) {
	t.Parallel()

	_, err := NormalizeURL("/about")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidURL))
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://example.com/blog/post")
	require.NoError(t, err)

	got, err := ResolveURL(base, "../about/")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/about", got)

	got, err = ResolveURL(base, "HTTPS://Other.example.org/x#frag")
	require.NoError(t, err)
	require.Equal(t, "https://other.example.org/x", got)

	for _, href := range []string{"mailto:hi@example.com", "javascript:void(0)", "tel:+15555555", ""} {
		_, err := ResolveURL(base, href)
		require.Error(t, err, href)
	}
}

func TestValidateTargetURL(t *testing.T) {
	t.Parallel()

	u, err := ValidateTargetURL("  https://example.com/path ")
	require.NoError(t, err)
	require.Equal(t, "example.com", u.Hostname())

	for _, raw := range []string{"", "example.com", "ftp://example.com", "https://", "://bad"} {
		_, err := ValidateTargetURL(raw)
		require.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestSameSite(t *testing.T) {
	t.Parallel()

	require.True(t, SameSite("https://www.example.com/a", "https://example.com/b"))
	require.True(t, SameSite("https://EXAMPLE.com", "http://example.com:8080/"))
	require.False(t, SameSite("https://example.com", "https://example.org"))
	require.False(t, SameSite("not a url", "https://example.org"))
}

func TestJobCloneIsolatesSlices(t *testing.T) {
	t.Parallel()

	orig := Job{ID: "job-1", Pages: []PageResult{{URL: "https://example.com"}}}
	cp := orig.Clone()
	cp.Pages = append(cp.Pages, PageResult{URL: "https://example.com/about"})
	cp.Pages[0].URL = "changed"

	require.Len(t, orig.Pages, 1)
	require.Equal(t, "https://example.com", orig.Pages[0].URL)
}

func TestFetchErrorClassification(t *testing.T) {
	t.Parallel()

	require.True(t, (&FetchError{URL: "u", StatusCode: 503}).Temporary())
	require.True(t, (&FetchError{URL: "u", StatusCode: 429}).Temporary())
	require.False(t, (&FetchError{URL: "u", StatusCode: 404}).Temporary())
	require.Contains(t, (&FetchError{URL: "u", StatusCode: 404}).Error(), "status 404")
}
