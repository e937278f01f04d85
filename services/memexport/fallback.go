package memexport

import (
	"context"
	"regexp"
	"strings"

	"memexporter/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// stripRule is one step of best-effort text surgery. The rules run in
// order and are explicitly allowed to leave residual noise behind:
// the point is recovering a usable payload, not a clean one.
type stripRule struct {
	name    string
	pattern *regexp.Regexp
	replace string
}

var observedDatePattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}`)

var fallbackStripRules = []stripRule{
	{
		name:    "page indicator",
		pattern: regexp.MustCompile(`(?i)page\s+\d+\s+of\s+\d+`),
	},
	{
		name:    "select all",
		pattern: regexp.MustCompile(`(?i)select\s+all\s*\(\d+\)`),
	},
	{
		name:    "kind keyword",
		pattern: regexp.MustCompile(`(?i)(automatic|manual)\s+memor(y|ies)`),
	},
	{
		name:    "date",
		pattern: observedDatePattern,
	},
}

var kindKeywordPattern = regexp.MustCompile(`(?i)(automatic|manual)\s+memor`)

// fallbackStrategy is the last resort: scan every block-level element
// for the classification keywords next to a selection checkbox, then
// strip the known boilerplate and keep whatever text remains.
type fallbackStrategy struct {
	minContent int
}

func (fallbackStrategy) Name() string { return string(SourceDOMFallback) }

func (s fallbackStrategy) Attempt(ctx context.Context, state PageState) []Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(state.HTML))
	if err != nil {
		return nil
	}

	var out []Record
	seen := map[string]bool{}
	doc.Find("div, li, tr").Each(func(_ int, el *goquery.Selection) {
		text := el.Text()
		if !kindKeywordPattern.MatchString(text) {
			return
		}
		if el.Find(`input[type="checkbox"]`).Length() == 0 {
			return
		}
		// prefer the innermost matching element so one memory row
		// doesn't also surface through every ancestor wrapper
		if el.Find("div, li, tr").FilterFunction(func(_ int, inner *goquery.Selection) bool {
			return kindKeywordPattern.MatchString(inner.Text()) &&
				inner.Find(`input[type="checkbox"]`).Length() > 0
		}).Length() > 0 {
			return
		}

		record, ok := s.recordFromText(text)
		if !ok || seen[record.Key()] {
			return
		}
		seen[record.Key()] = true
		out = append(out, record)
	})
	return out
}

func (s fallbackStrategy) recordFromText(text string) (Record, bool) {
	kind := KindUnknown
	if match := kindKeywordPattern.FindString(text); match != "" {
		kind = normalizeKind(match)
	}
	observedAt := observedDatePattern.FindString(text)

	for _, rule := range fallbackStripRules {
		text = rule.pattern.ReplaceAllString(text, rule.replace)
	}
	content, ok := acceptContent(htmlutil.CleanText(text), s.minContent)
	if !ok {
		return Record{}, false
	}

	return Record{
		Content:    content,
		Kind:       kind,
		ObservedAt: observedAt,
		Source:     SourceDOMFallback,
	}, true
}
