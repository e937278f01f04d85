// Package memexport extracts long-term memory entries from a
// dashboard whose page structure is undocumented and unstable. The
// page is driven through lib/browser; everything in this package is
// about getting usable records out of whatever the page happens to
// look like today.
package memexport

import (
	"encoding/json"
	"strings"

	"memexporter/lib/browser"
)

// Source records which strategy produced a record. Diagnostic only,
// it never influences ranking or merging.
type Source string

const (
	SourceNetwork     Source = "network"
	SourceDOMPrimary  Source = "dom_primary"
	SourceDOMFallback Source = "dom_fallback"
)

// Kind is the coarse classification of a memory entry.
const (
	KindAutomatic = "automatic"
	KindManual    = "manual"
	KindUnknown   = "unknown"
)

// DefaultMinContentLength filters out stray UI text (labels, button
// captions) that the looser strategies inevitably pick up.
const DefaultMinContentLength = 10

// Record is one extracted memory entry.
type Record struct {
	// the primary text payload, required and non-empty after trimming
	Content string `json:"content"`
	Kind    string `json:"kind"`
	// kept in whatever form the source exposed it. formats vary
	// (human-readable date vs numeric epoch) and garbled values are
	// worth more than rejected ones.
	ObservedAt string `json:"observed_at,omitempty"`
	Source     Source `json:"source"`
	// original payload when the record came from an intercepted
	// response, for forensic debugging
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Key is the sole deduplication key: two records with the same
// trimmed content are the same logical memory regardless of
// provenance or metadata.
func (r Record) Key() string {
	return strings.TrimSpace(r.Content)
}

// acceptContent trims a candidate payload and rejects it when it is
// too short to be a real memory.
func acceptContent(s string, minLength int) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < minLength {
		return "", false
	}
	return trimmed, true
}

func normalizeKind(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "auto"):
		return KindAutomatic
	case strings.Contains(lower, "manual"):
		return KindManual
	}
	return KindUnknown
}

// PageState is the observable state of one page-view: the rendered
// document plus every response captured while it loaded. Strategies
// are pure functions of this snapshot.
type PageState struct {
	HTML      string
	Responses []browser.Response
}
