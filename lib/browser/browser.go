// Package browser is the page-driver seam between the exporter core
// and a real automated browser. The core only ever talks to the Page
// interface, concrete automation (chromedp) lives behind it so the
// extraction logic stays testable against fixture pages.
package browser

import (
	"context"
	"strings"
)

// SelectorKind tags how a Selector's value should be interpreted.
type SelectorKind int

const (
	// a plain CSS selector
	KindCSS SelectorKind = iota
	// matches any element whose class attribute contains the value.
	// target class names are build-hashed and unstable, exact class
	// matches break silently on redeploys.
	KindPartialClass
	// matches elements whose aria-label contains the value
	KindAriaLabel
	// matches elements whose visible text contains the value
	KindTextContains
)

// Selector is one named probe in an ordered fallback list. Name is
// only used for diagnostics.
type Selector struct {
	Name  string
	Kind  SelectorKind
	Value string
}

// CSS renders the selector as a CSS expression where possible.
// KindTextContains has no CSS equivalent and returns "".
func (s Selector) CSS() string {
	switch s.Kind {
	case KindCSS:
		return s.Value
	case KindPartialClass:
		return `[class*="` + s.Value + `"]`
	case KindAriaLabel:
		return `[aria-label*="` + s.Value + `"]`
	}
	return ""
}

// Element is a handle to one matched node. Implementations keep
// whatever they need to click it later.
type Element interface {
	// flattened visible text of the node
	Text() string
	// attribute value, "" when absent
	Attr(name string) string
}

// Response is one captured network response. Body is only retained
// for decodable content types (json, text).
type Response struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// Page is the minimal capability set the exporter consumes.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// full serialized html of the current document
	HTML(ctx context.Context) (string, error)
	// visible text of the current document
	Text(ctx context.Context) (string, error)
	Find(ctx context.Context, sel Selector) ([]Element, error)
	Click(ctx context.Context, el Element) error
	// runs a script in the page, unmarshalling the result into out
	// (out may be nil when the result is irrelevant)
	Evaluate(ctx context.Context, script string, out any) error
	// snapshot of every response captured since the last clear,
	// in arrival order
	Responses() []Response
	ClearResponses()
	URL() string
}

var assetSuffixes = []string{
	".js", ".css", ".png", ".jpg", ".jpeg", ".svg", ".ico",
	".woff", ".woff2",
}

var telemetryHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"doubleclick.net",
	"sentry.io",
	"posthog.com",
	"segment.io",
	"hotjar.com",
}

// ShouldCapture reports whether a response URL is worth buffering.
// Assets and known telemetry endpoints never carry records and only
// bloat the buffer.
func ShouldCapture(url string) bool {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	lower := strings.ToLower(trimmed)
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	for _, host := range telemetryHosts {
		if strings.Contains(lower, host) {
			return false
		}
	}
	return true
}

// DecodableContentType reports whether a response body should be
// retained for inspection.
func DecodableContentType(contentType string) bool {
	lower := strings.ToLower(contentType)
	return strings.Contains(lower, "json") || strings.Contains(lower, "text")
}
