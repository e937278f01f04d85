// Package export is the serializer collaborator: it turns an
// accumulated record set into the durable artifacts (structured json
// plus a human-readable report) and writes the mid-run checkpoints.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"memexporter/services/memexport"
)

// Document is the artifact shape shared by final exports and
// checkpoints.
type Document struct {
	Target string `json:"target"`
	// set on final exports only; checkpoints stay timestamp-free so
	// the same accumulated state always writes the same bytes
	ExportedAt string             `json:"exported_at,omitempty"`
	Count      int                `json:"count"`
	Records    []memexport.Record `json:"records"`
}

// FileSerializer writes artifacts under one output directory.
type FileSerializer struct {
	Dir string
	// overridable for deterministic tests
	Now func() time.Time
}

func NewFileSerializer(dir string) *FileSerializer {
	return &FileSerializer{Dir: dir, Now: time.Now}
}

// safeName mirrors the target name into something every filesystem
// accepts.
func safeName(target string) string {
	var b strings.Builder
	for _, c := range target {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == ' ':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return strings.TrimSpace(b.String())
}

func (s *FileSerializer) document(target string, records []memexport.Record) Document {
	if records == nil {
		records = []memexport.Record{}
	}
	return Document{
		Target:     target,
		ExportedAt: s.Now().Format(time.RFC3339),
		Count:      len(records),
		Records:    records,
	}
}

func (s *FileSerializer) writeJSON(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	err = os.MkdirAll(s.Dir, 0o755)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Export writes the timestamped json artifact and the text report.
func (s *FileSerializer) Export(ctx context.Context, target string, records []memexport.Record) (memexport.Artifacts, error) {
	doc := s.document(target, records)
	stamp := s.Now().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s", safeName(target), stamp)

	jsonPath := filepath.Join(s.Dir, base+".json")
	err := s.writeJSON(jsonPath, doc)
	if err != nil {
		return memexport.Artifacts{}, err
	}

	txtPath := filepath.Join(s.Dir, base+".txt")
	err = os.WriteFile(txtPath, []byte(renderText(doc)), 0o644)
	if err != nil {
		return memexport.Artifacts{}, fmt.Errorf("write text report: %w", err)
	}

	return memexport.Artifacts{JSONPath: jsonPath, TextPath: txtPath}, nil
}

// Checkpoint overwrites the stable per-target checkpoint artifact.
// Same accumulated state in, byte-identical artifact out.
func (s *FileSerializer) Checkpoint(ctx context.Context, target string, records []memexport.Record) error {
	doc := s.document(target, records)
	doc.ExportedAt = ""
	path := filepath.Join(s.Dir, safeName(target)+"_checkpoint.json")
	return s.writeJSON(path, doc)
}

func renderText(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Memories for: %s\n", doc.Target)
	if doc.ExportedAt != "" {
		fmt.Fprintf(&b, "Exported: %s\n", doc.ExportedAt)
	}
	fmt.Fprintf(&b, "Total: %d\n", doc.Count)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for i, record := range doc.Records {
		header := fmt.Sprintf("--- Memory #%d [%s]", i+1, strings.ToUpper(record.Kind))
		if date := FormatObservedAt(record.ObservedAt); date != "" {
			header += " " + date
		}
		b.WriteString(header + " ---\n")
		content := record.Content
		if content == "" {
			content = "(empty)"
		}
		b.WriteString(content + "\n\n")
	}
	return b.String()
}

// FormatObservedAt renders a source timestamp for the report. Numeric
// epochs become dates; anything unparseable passes through untouched,
// a garbled date is still better than none.
func FormatObservedAt(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	epoch, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return time.Unix(int64(epoch), 0).UTC().Format("01/02/2006")
}
