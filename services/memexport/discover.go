package memexport

import (
	"context"
	"log/slog"
	"strings"

	"memexporter/lib/browser"
	"memexporter/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Target is one resource whose memories can be exported.
type Target struct {
	ID   string
	Name string
	URL  string
}

// DiscoverTargets lists the user's exportable targets from the
// dashboard: anchor links first, data-attribute cards when the link
// layout has changed out from under us.
func DiscoverTargets(ctx context.Context, page browser.Page, baseURL string) ([]Target, error) {
	ctx, span := tracer.Start(ctx, "DiscoverTargets")
	defer span.End()

	dashboardURL := strings.TrimSuffix(baseURL, "/") + "/dashboard"
	err := page.Navigate(ctx, dashboardURL)
	if err != nil {
		return nil, err
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}

	targets := targetsFromHTML(html, strings.TrimSuffix(baseURL, "/"))
	slog.InfoContext(ctx, "discovered targets", "count", len(targets))
	return targets, nil
}

func targetsFromHTML(html, baseURL string) []Target {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var targets []Target
	seen := map[string]bool{}

	for _, link := range htmlutil.ExtractLinks(doc.Find(`a[href*="/dashboard/"]`)) {
		id := targetIDFromHref(link.Href)
		if id == "" || seen[id] || link.Name == "" {
			continue
		}
		seen[id] = true
		targets = append(targets, Target{
			ID:   id,
			Name: link.Name,
			URL:  baseURL + "/dashboard/" + id,
		})
	}
	if len(targets) > 0 {
		return targets
	}

	// fallback: cards carrying an id as a data attribute
	doc.Find("[data-shape-id], [data-id]").Each(func(_ int, card *goquery.Selection) {
		id := card.AttrOr("data-shape-id", "")
		if id == "" {
			id = card.AttrOr("data-id", "")
		}
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		name := htmlutil.CleanText(card.Text())
		if i := strings.Index(name, "\n"); i >= 0 {
			name = name[:i]
		}
		targets = append(targets, Target{
			ID:   id,
			Name: name,
			URL:  baseURL + "/dashboard/" + id,
		})
	})
	return targets
}

func targetIDFromHref(href string) string {
	_, after, found := strings.Cut(href, "/dashboard/")
	if !found {
		return ""
	}
	for _, sep := range []string{"/", "?", "#"} {
		if i := strings.Index(after, sep); i >= 0 {
			after = after[:i]
		}
	}
	return after
}
