package memexport

import (
	"context"
	"encoding/json"
	"fmt"

	"memexporter/lib/browser"
)

// container keys probed, in order, when a response body is an object
// rather than a bare array
var containerKeys = []string{
	"memories", "data", "results", "items", "records",
	"long_term_memories", "ltm", "memory_list",
}

// field names tried, in order, for the text payload of a candidate
var contentFields = []string{
	"content", "text", "memory", "summary", "value", "message", "result",
}

var kindFields = []string{"summary_type", "type", "kind"}

var observedAtFields = []string{"created_at", "date", "timestamp", "updated_at"}

var identifierFields = []string{"id", "_id", "uuid", "memory_id"}

// objects from configuration/personality endpoints look superficially
// like records (they have "value", "message", ...). two or more hits
// against this vocabulary marks a candidate as a false positive.
var metadataVocabulary = []string{
	"personality", "system_prompt", "model", "engine", "temperature",
	"top_p", "max_tokens", "voice", "avatar_url", "settings",
	"preset", "visibility",
}

// networkStrategy mines the captured response buffer for record
// arrays. It is authoritative when it finds anything at all, since
// intercepted payloads reflect ground-truth server data rather than
// whatever subset the ui chose to render.
type networkStrategy struct {
	minContent int
}

func (networkStrategy) Name() string { return string(SourceNetwork) }

func (s networkStrategy) Attempt(ctx context.Context, state PageState) []Record {
	var out []Record
	for _, res := range state.Responses {
		if res.Status < 200 || res.Status >= 300 || len(res.Body) == 0 {
			continue
		}
		if !browser.DecodableContentType(res.ContentType) {
			continue
		}
		var decoded any
		if err := json.Unmarshal(res.Body, &decoded); err != nil {
			continue
		}
		for _, candidate := range candidateObjects(decoded) {
			record, ok := s.recordFromObject(candidate)
			if ok {
				out = append(out, record)
			}
		}
	}
	return out
}

// candidateObjects locates the record array inside a decoded body:
// the body itself when it is an array, the first non-empty array
// under a known container key, or the object wrapped as a singleton
// when it looks like a lone record.
func candidateObjects(decoded any) []map[string]any {
	switch v := decoded.(type) {
	case []any:
		return objectsOf(v)
	case map[string]any:
		for _, key := range containerKeys {
			inner, ok := v[key].([]any)
			if !ok || len(inner) == 0 {
				continue
			}
			objects := objectsOf(inner)
			if len(objects) > 0 {
				return objects
			}
		}
		if looksLikeRecord(v) {
			return []map[string]any{v}
		}
	}
	return nil
}

func objectsOf(items []any) []map[string]any {
	var out []map[string]any
	for _, item := range items {
		if object, ok := item.(map[string]any); ok {
			out = append(out, object)
		}
	}
	return out
}

func looksLikeRecord(object map[string]any) bool {
	hasContent := false
	for _, field := range contentFields {
		if text, ok := object[field].(string); ok && text != "" {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return false
	}
	for _, field := range identifierFields {
		if _, ok := object[field]; ok {
			return true
		}
	}
	return false
}

func isMetadataObject(object map[string]any) bool {
	hits := 0
	for _, key := range metadataVocabulary {
		if _, ok := object[key]; ok {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

func (s networkStrategy) recordFromObject(object map[string]any) (Record, bool) {
	if isMetadataObject(object) {
		return Record{}, false
	}

	var content string
	for _, field := range contentFields {
		if text, ok := object[field].(string); ok && text != "" {
			content = text
			break
		}
	}
	content, ok := acceptContent(content, s.minContent)
	if !ok {
		return Record{}, false
	}

	kind := KindUnknown
	for _, field := range kindFields {
		if raw, ok := object[field].(string); ok && raw != "" {
			kind = normalizeKind(raw)
			break
		}
	}

	observedAt := ""
	for _, field := range observedAtFields {
		switch v := object[field].(type) {
		case string:
			observedAt = v
		case float64:
			// numeric epochs are preserved as-is, the serializer
			// formats them for the human-readable report
			observedAt = fmt.Sprintf("%.0f", v)
		}
		if observedAt != "" {
			break
		}
	}

	raw, err := json.Marshal(object)
	if err != nil {
		raw = nil
	}

	return Record{
		Content:    content,
		Kind:       kind,
		ObservedAt: observedAt,
		Source:     SourceNetwork,
		Raw:        raw,
	}, true
}
