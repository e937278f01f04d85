package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"memexporter/services/memexport"
)

// ConvertJSON re-renders an existing json export as the text report,
// written next to the input with a .txt extension. It accepts both
// this tool's artifact shape and raw captured API dumps, which use a
// different container key and field names.
func ConvertJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}

	doc, err := parseLooseExport(data)
	if err != nil {
		return "", err
	}

	txtPath := strings.TrimSuffix(path, ".json") + ".txt"
	err = os.WriteFile(txtPath, []byte(renderText(doc)), 0o644)
	if err != nil {
		return "", fmt.Errorf("write text report: %w", err)
	}
	return txtPath, nil
}

var looseContainerKeys = []string{"records", "memories", "items", "data", "results"}

func parseLooseExport(data []byte) (Document, error) {
	var decoded any
	err := json.Unmarshal(data, &decoded)
	if err != nil {
		return Document{}, fmt.Errorf("parse export: %w", err)
	}

	doc := Document{Target: "unknown"}

	var items []any
	switch v := decoded.(type) {
	case []any:
		items = v
	case map[string]any:
		if target, ok := v["target"].(string); ok {
			doc.Target = target
		} else if target, ok := v["shape"].(string); ok {
			doc.Target = target
		}
		if exportedAt, ok := v["exported_at"].(string); ok {
			doc.ExportedAt = exportedAt
		}
		for _, key := range looseContainerKeys {
			if inner, ok := v[key].([]any); ok {
				items = inner
				break
			}
		}
	default:
		return Document{}, fmt.Errorf("unrecognized export shape")
	}

	for _, item := range items {
		object, ok := item.(map[string]any)
		if !ok {
			continue
		}
		doc.Records = append(doc.Records, looseRecord(object))
	}
	doc.Count = len(doc.Records)
	return doc, nil
}

func looseRecord(object map[string]any) memexport.Record {
	record := memexport.Record{Kind: memexport.KindUnknown}

	for _, field := range []string{"result", "content", "text", "memory"} {
		if text, ok := object[field].(string); ok && text != "" {
			record.Content = text
			break
		}
	}
	for _, field := range []string{"summary_type", "type", "kind"} {
		if kind, ok := object[field].(string); ok && kind != "" {
			record.Kind = strings.ToLower(kind)
			break
		}
	}
	for _, field := range []string{"created_at", "date", "observed_at"} {
		switch v := object[field].(type) {
		case string:
			record.ObservedAt = v
		case float64:
			record.ObservedAt = fmt.Sprintf("%.0f", v)
		}
		if record.ObservedAt != "" {
			break
		}
	}
	return record
}
