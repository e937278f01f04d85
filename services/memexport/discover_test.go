package memexport

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestTargetsFromAnchors(t *testing.T) {
	html := `<html><body>
		<a href="/dashboard/abc123">Shape One</a>
		<a href="/dashboard/abc123?tab=settings">Shape One Again</a>
		<a href="/dashboard/def456/memories">Shape Two</a>
		<a href="/dashboard/ghi789"></a>
		<a href="/pricing">Pricing</a>
	</body></html>`

	targets := targetsFromHTML(html, "https://shapes.inc")

	want := []Target{
		{ID: "abc123", Name: "Shape One", URL: "https://shapes.inc/dashboard/abc123"},
		{ID: "def456", Name: "Shape Two", URL: "https://shapes.inc/dashboard/def456"},
	}
	if diff := cmp.Diff(want, targets); diff != "" {
		t.Fatalf("targets mismatch:\n%s", diff)
	}
}

func TestTargetsFromDataAttributes(t *testing.T) {
	html := `<html><body>
		<div data-shape-id="xyz1">Card Shape</div>
		<div data-id="xyz2">Other Shape</div>
	</body></html>`

	targets := targetsFromHTML(html, "https://shapes.inc")

	require.Len(t, targets, 2)
	require.Equal(t, "xyz1", targets[0].ID)
	require.Equal(t, "Card Shape", targets[0].Name)
	require.Equal(t, "xyz2", targets[1].ID)
}

func TestTargetIDFromHref(t *testing.T) {
	cases := map[string]string{
		"/dashboard/abc":              "abc",
		"/dashboard/abc/memories":     "abc",
		"/dashboard/abc?tab=memories": "abc",
		"/dashboard/abc#section":      "abc",
		"/pricing":                    "",
	}
	for href, want := range cases {
		require.Equal(t, want, targetIDFromHref(href), "href %q", href)
	}
}

func TestDiscoverTargetsNavigatesDashboard(t *testing.T) {
	page := newFakePage(fakeView{html: `<html><body>
		<a href="/dashboard/one">First</a>
	</body></html>`})

	targets, err := DiscoverTargets(context.Background(), page, "https://shapes.inc/")
	require.NoError(t, err)
	require.Equal(t, []string{"https://shapes.inc/dashboard"}, page.navigates)
	require.Len(t, targets, 1)
	require.Equal(t, "https://shapes.inc/dashboard/one", targets[0].URL)
}
