package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestGetText(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<p>Hello <b>bold</b> world</p>`))
	require.NoError(t, err)
	require.Equal(t, "Hello bold world", CleanText(GetText(doc)))
	require.Empty(t, GetText(nil))
}

func TestCleanText(t *testing.T) {
	cases := map[string]string{
		"  hello   world  ":      "hello world",
		"line\n\nbreak":          "line break",
		"tabs\t\tand\t\tspaces ": "tabs and spaces",
		"":                       "",
	}
	for in, want := range cases {
		require.Equal(t, want, CleanText(in), "input %q", in)
	}
}

func TestExtractLinks(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>
		<a href="/one">  First
			Link </a>
		<a href="/two">Second</a>
		<a>no href</a>
	</body></html>`))
	require.NoError(t, err)

	links := ExtractLinks(doc.Find("a"))

	want := []Link{
		{Name: "First Link", Href: "/one"},
		{Name: "Second", Href: "/two"},
	}
	if diff := cmp.Diff(want, links); diff != "" {
		t.Fatalf("links mismatch:\n%s", diff)
	}
}
