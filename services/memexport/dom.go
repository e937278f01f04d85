package memexport

import (
	"context"
	"strings"

	"memexporter/lib/browser"
	"memexporter/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// ordered container probes. class names on the target are
// build-hashed, so every match is a substring match.
var memoryContainerSelectors = []browser.Selector{
	{Name: "memory card", Kind: browser.KindPartialClass, Value: "memory-card"},
	{Name: "memory item", Kind: browser.KindPartialClass, Value: "memory-item"},
	{Name: "memory entry", Kind: browser.KindPartialClass, Value: "memory-entry"},
	{Name: "long term list child", Kind: browser.KindCSS, Value: `[class*="long-term"] > *, [class*="memory-list"] > *, [class*="memoryList"] > *`},
	{Name: "data attribute", Kind: browser.KindCSS, Value: "[data-memory], [data-memory-id]"},
}

// sub-element probes within a container
var (
	domContentSelectors = []string{
		`[class*="content"]`, `[class*="text"]`, `[class*="body"]`, "p",
	}
	domLabelSelectors = []string{
		`[class*="label"]`, `[class*="badge"]`, `[class*="tag"]`, `[class*="type"]`,
	}
	domDateSelectors = []string{
		"time", `[class*="date"]`, `[class*="time"]`, `[class*="created"]`,
	}
)

// domStrategy reads records straight out of the rendered document.
// One container probe winning is enough; later probes would only
// re-match the same nodes under a different name.
type domStrategy struct {
	minContent int
}

func (domStrategy) Name() string { return string(SourceDOMPrimary) }

func (s domStrategy) Attempt(ctx context.Context, state PageState) []Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(state.HTML))
	if err != nil {
		// malformed markup is "no records", never an error
		return nil
	}

	for _, probe := range memoryContainerSelectors {
		containers := doc.Find(probe.CSS())
		if containers.Length() == 0 {
			continue
		}
		records := s.recordsFromContainers(containers)
		if len(records) > 0 {
			return records
		}
	}
	return nil
}

func (s domStrategy) recordsFromContainers(containers *goquery.Selection) []Record {
	var out []Record
	containers.Each(func(_ int, container *goquery.Selection) {
		content := firstMatchText(container, domContentSelectors)
		if content == "" {
			// a container with no content sub-element is some other
			// widget that happened to match the class probe, skip it
			return
		}
		content, ok := acceptContent(content, s.minContent)
		if !ok {
			return
		}
		out = append(out, Record{
			Content:    content,
			Kind:       normalizeKind(firstMatchText(container, domLabelSelectors)),
			ObservedAt: firstMatchText(container, domDateSelectors),
			Source:     SourceDOMPrimary,
		})
	})
	return out
}

func firstMatchText(container *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		match := container.Find(selector).First()
		if match.Length() == 0 {
			continue
		}
		text := htmlutil.CleanText(match.Text())
		if text != "" {
			return text
		}
	}
	return ""
}
