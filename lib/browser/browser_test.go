package browser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldCapture(t *testing.T) {
	captured := []string{
		"https://shapes.inc/api/shapes/abc/memories",
		"https://shapes.inc/api/memories?page=2",
		"https://shapes.inc/dashboard/abc",
	}
	for _, url := range captured {
		require.True(t, ShouldCapture(url), "url %q", url)
	}

	skipped := []string{
		"https://shapes.inc/static/app.js",
		"https://shapes.inc/styles.css?v=123",
		"https://shapes.inc/logo.svg#icon",
		"https://www.google-analytics.com/collect",
		"https://o123.ingest.sentry.io/api/envelope",
	}
	for _, url := range skipped {
		require.False(t, ShouldCapture(url), "url %q", url)
	}
}

func TestDecodableContentType(t *testing.T) {
	require.True(t, DecodableContentType("application/json"))
	require.True(t, DecodableContentType("application/json; charset=utf-8"))
	require.True(t, DecodableContentType("text/plain"))
	require.False(t, DecodableContentType("image/png"))
	require.False(t, DecodableContentType("application/octet-stream"))
	require.False(t, DecodableContentType(""))
}

func TestSelectorCSS(t *testing.T) {
	require.Equal(t, "div > p", Selector{Kind: KindCSS, Value: "div > p"}.CSS())
	require.Equal(t, `[class*="memory-card"]`, Selector{Kind: KindPartialClass, Value: "memory-card"}.CSS())
	require.Equal(t, `[aria-label*="next"]`, Selector{Kind: KindAriaLabel, Value: "next"}.CSS())
	// text matching has no css equivalent
	require.Empty(t, Selector{Kind: KindTextContains, Value: "Next"}.CSS())
}
