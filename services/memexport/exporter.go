package memexport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"memexporter/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Artifacts are the durable outputs the serializer produced for one
// target.
type Artifacts struct {
	JSONPath string
	TextPath string
}

// Serializer is responsible for durable output. The core calls Export
// exactly once per target, at the end of a successful or
// partially-successful run, plus periodic Checkpoint calls mid-run.
type Serializer interface {
	Checkpointer
	Export(ctx context.Context, target string, records []Record) (Artifacts, error)
}

type Config struct {
	BaseURL              string `json:"base_url"`
	OutputDir            string `json:"output_dir"`
	PageCap              int    `json:"page_cap"`
	CheckpointInterval   int    `json:"checkpoint_interval"`
	LargeExportThreshold int    `json:"large_export_threshold"`
	MinContentLength     int    `json:"min_content_length"`
	LoginTimeoutSeconds  int    `json:"login_timeout_seconds"`
	Debug                bool   `json:"debug"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:              "https://shapes.inc",
		OutputDir:            "exports",
		CheckpointInterval:   50,
		LargeExportThreshold: 10,
		MinContentLength:     DefaultMinContentLength,
		LoginTimeoutSeconds:  300,
	}
}

// Diagnostics is the optional per-target payload surfaced in debug
// mode. Internal retries and fallbacks collapse into these counters.
type Diagnostics struct {
	PagesVisited    int
	AdvanceFailures int
	Stalled         bool
	// path of the page dump written when a target yielded nothing
	DebugDump string
}

type Result struct {
	Target      Target
	Count       int
	Artifacts   Artifacts
	Diagnostics Diagnostics
}

// RunRecorder persists a summary of each finished run. Optional;
// failures are logged and swallowed like checkpoint failures.
type RunRecorder interface {
	RecordRun(ctx context.Context, target string, startedAt, finishedAt time.Time, count, pagesVisited int, jsonPath, txtPath string) error
}

// Exporter processes targets strictly sequentially against one
// browser page, preserving the single authenticated session.
type Exporter struct {
	page       browser.Page
	serializer Serializer
	recorder   RunRecorder
	config     Config
}

func NewExporter(page browser.Page, serializer Serializer, config Config) *Exporter {
	return &Exporter{
		page:       page,
		serializer: serializer,
		config:     config,
	}
}

// WithRunRecorder attaches an optional run ledger.
func (e *Exporter) WithRunRecorder(recorder RunRecorder) *Exporter {
	e.recorder = recorder
	return e
}

// ExportAll processes each target in turn. A target that fails or
// yields nothing never aborts the remaining targets.
func (e *Exporter) ExportAll(ctx context.Context, targets []Target) []Result {
	var results []Result
	for _, target := range targets {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "run cancelled", "remaining", len(targets)-len(results))
			break
		}
		result, err := e.ExportTarget(ctx, target)
		if err != nil {
			slog.WarnContext(ctx, "target export failed",
				"target", target.Name, "err", err)
			continue
		}
		results = append(results, result)
	}
	return results
}

// ExportTarget drives one target end to end: navigate to its memories
// view, traverse every page, and hand the deduplicated set to the
// serializer. Partial progress always wins over failing hard; the
// only errors returned are ones that prevented reaching the target's
// content at all.
func (e *Exporter) ExportTarget(ctx context.Context, target Target) (Result, error) {
	ctx, span := tracer.Start(ctx, "ExportTarget")
	defer span.End()
	span.SetAttributes(attribute.String("target", target.Name))

	startedAt := time.Now()
	slog.InfoContext(ctx, "processing target", "name", target.Name, "url", target.URL)

	e.page.ClearResponses()
	err := e.navigateToMemories(ctx, target.URL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not reach memories view")
		return Result{}, fmt.Errorf("reach memories view for %s: %w", target.Name, err)
	}

	cursor := e.readCursor(ctx)
	if cursor.Total == 1 {
		// unpaginated views load incrementally on scroll instead
		e.scrollToLoadAll(ctx)
	}

	acc := NewAccumulator(target.Name, e.serializer)
	chain := NewChain(ChainOptions{MinContentLength: e.config.MinContentLength})
	controller := NewController(e.page, chain, ControllerOptions{
		PageCap:              e.config.PageCap,
		CheckpointInterval:   e.config.CheckpointInterval,
		LargeExportThreshold: e.config.LargeExportThreshold,
	})
	stats := controller.Run(ctx, acc)

	result := Result{
		Target: target,
		Count:  acc.Count(),
		Diagnostics: Diagnostics{
			PagesVisited:    stats.PagesVisited,
			AdvanceFailures: stats.AdvanceFailures,
			Stalled:         stats.Stalled,
		},
	}

	if acc.Count() == 0 {
		slog.WarnContext(ctx, "no memories found for target", "target", target.Name)
		if e.config.Debug {
			result.Diagnostics.DebugDump = e.dumpPage(ctx, target.Name)
		}
		return result, nil
	}

	artifacts, err := e.serializer.Export(ctx, target.Name, acc.Records())
	if err != nil {
		// the records still exist in the last checkpoint, surface
		// the failure without discarding the count
		slog.ErrorContext(ctx, "failed to write export",
			"target", target.Name, "err", err)
	} else {
		result.Artifacts = artifacts
	}

	e.recordRun(ctx, target, startedAt, result)

	slog.InfoContext(ctx, "target exported",
		"target", target.Name,
		"count", result.Count,
		"pages", stats.PagesVisited)
	return result, nil
}

func (e *Exporter) recordRun(ctx context.Context, target Target, startedAt time.Time, result Result) {
	if e.recorder == nil {
		return
	}
	err := e.recorder.RecordRun(ctx,
		target.Name, startedAt, time.Now(),
		result.Count, result.Diagnostics.PagesVisited,
		result.Artifacts.JSONPath, result.Artifacts.TextPath)
	if err != nil {
		slog.WarnContext(ctx, "failed to record run", "err", err)
	}
}

// memoriesURLPatterns are tried in order until one lands on a page
// mentioning memories. The site has moved this view several times.
var memoriesURLPatterns = []string{
	"%s/memories",
	"%s?tab=memories",
	"%s#memories",
	"%s/memory",
}

var memoriesTabProbes = []browser.Selector{
	{Name: "memories tab", Kind: browser.KindTextContains, Value: "Memories"},
	{Name: "memory tab", Kind: browser.KindTextContains, Value: "Memory"},
}

func (e *Exporter) navigateToMemories(ctx context.Context, targetURL string) error {
	base := strings.TrimSuffix(targetURL, "/")
	var lastErr error
	for _, pattern := range memoriesURLPatterns {
		url := fmt.Sprintf(pattern, base)
		err := e.page.Navigate(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		html, err := e.page.HTML(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.Contains(strings.ToLower(html), "memor") {
			e.clickMemoriesTab(ctx)
			return nil
		}
	}

	// last resort: the target page itself, hoping for a tab
	err := e.page.Navigate(ctx, base)
	if err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	e.clickMemoriesTab(ctx)
	return nil
}

func (e *Exporter) clickMemoriesTab(ctx context.Context) {
	for _, probe := range memoriesTabProbes {
		elements, err := e.page.Find(ctx, probe)
		if err != nil || len(elements) == 0 {
			continue
		}
		err = e.page.Click(ctx, elements[0])
		if err == nil {
			time.Sleep(time.Second * 2)
			return
		}
	}
}

func (e *Exporter) readCursor(ctx context.Context) PageCursor {
	text, err := e.page.Text(ctx)
	if err != nil {
		return PageCursor{Current: 1, Total: 1}
	}
	return readCursor(text)
}

var loadMoreProbes = []browser.Selector{
	{Name: "load more text", Kind: browser.KindTextContains, Value: "Load More"},
	{Name: "show more text", Kind: browser.KindTextContains, Value: "Show More"},
	{Name: "load more class", Kind: browser.KindPartialClass, Value: "load-more"},
	{Name: "load more camel", Kind: browser.KindPartialClass, Value: "loadMore"},
}

// scrollToLoadAll walks an infinite-scroll view to its end: scroll,
// click any load-more control, and stop once the document height
// stays put for three rounds.
func (e *Exporter) scrollToLoadAll(ctx context.Context) {
	const maxScrolls = 50

	previousHeight := -1
	stableRounds := 0
	for i := 0; i < maxScrolls; i++ {
		if ctx.Err() != nil {
			return
		}
		err := e.page.Evaluate(ctx, "window.scrollTo(0, document.body.scrollHeight)", nil)
		if err != nil {
			slog.DebugContext(ctx, "scroll failed", "err", err)
			return
		}
		time.Sleep(time.Millisecond * 1500)

		for _, probe := range loadMoreProbes {
			elements, err := e.page.Find(ctx, probe)
			if err != nil || len(elements) == 0 {
				continue
			}
			if e.page.Click(ctx, elements[0]) == nil {
				time.Sleep(time.Second * 2)
			}
			break
		}

		var height int
		err = e.page.Evaluate(ctx, "document.body.scrollHeight", &height)
		if err != nil {
			return
		}
		if height == previousHeight {
			stableRounds++
			if stableRounds >= 3 {
				slog.DebugContext(ctx, "scroll settled", "rounds", i+1)
				return
			}
		} else {
			stableRounds = 0
		}
		previousHeight = height
	}
}

// dumpPage saves the rendered html next to the exports so a broken
// selector set can be diagnosed from the artifact alone.
func (e *Exporter) dumpPage(ctx context.Context, targetName string) string {
	html, err := e.page.HTML(ctx)
	if err != nil {
		return ""
	}
	err = os.MkdirAll(e.config.OutputDir, 0o755)
	if err != nil {
		return ""
	}
	path := filepath.Join(e.config.OutputDir, targetName+"_debug.html")
	err = os.WriteFile(path, []byte(html), 0o644)
	if err != nil {
		slog.WarnContext(ctx, "failed to write debug dump", "err", err)
		return ""
	}
	slog.InfoContext(ctx, "wrote debug page dump", "path", path)
	return path
}
