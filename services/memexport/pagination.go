package memexport

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"memexporter/lib/browser"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PageCursor is the current/total page-position pair. Total is 1 when
// the view is unpaginated or the indicator couldn't be read.
type PageCursor struct {
	Current int
	Total   int
}

var pageIndicatorPattern = regexp.MustCompile(`(?i)page\s+(\d+)\s+of\s+(\d+)`)

// readCursor parses the "page X of Y" indicator out of the visible
// page text. Every read is a fresh read: stale or shrunken totals are
// reconciled by the controller, never here.
func readCursor(text string) PageCursor {
	groups := pageIndicatorPattern.FindStringSubmatch(text)
	if len(groups) < 3 {
		return PageCursor{Current: 1, Total: 1}
	}
	current, err1 := strconv.Atoi(groups[1])
	total, err2 := strconv.Atoi(groups[2])
	if err1 != nil || err2 != nil || current < 1 || total < 1 {
		return PageCursor{Current: 1, Total: 1}
	}
	if current > total {
		total = current
	}
	return PageCursor{Current: current, Total: total}
}

// ordered probes for the next-page control. layout changes break
// selectors silently, so there are three independent ways in.
var nextControlProbes = []browser.Selector{
	{Name: "accessible label", Kind: browser.KindAriaLabel, Value: "next"},
	{Name: "accessible label (capitalized)", Kind: browser.KindAriaLabel, Value: "Next"},
	{Name: "button glyph scan", Kind: browser.KindCSS, Value: "button"},
	{Name: "pagination container", Kind: browser.KindCSS,
		Value: `[class*="pagination"] button, [class*="Pagination"] button, nav button`},
}

var nextGlyphs = []string{"›", "»", "→", ">"}
var previousHints = []string{"‹", "«", "←", "<", "prev", "previous", "back"}

type ControllerOptions struct {
	// hard cap on pages visited, 0 means no cap
	PageCap int
	// checkpoint every this many pages (default 50), only when the
	// total page count exceeds LargeExportThreshold
	CheckpointInterval   int
	LargeExportThreshold int
	// pause after each advance so the view settles before re-reading
	StepDelay time.Duration
	// wait before the single local retry of a failed advance
	RetryDelay time.Duration
}

func (o ControllerOptions) withDefaults() ControllerOptions {
	if o.CheckpointInterval <= 0 {
		o.CheckpointInterval = 50
	}
	if o.LargeExportThreshold <= 0 {
		o.LargeExportThreshold = 10
	}
	if o.StepDelay <= 0 {
		o.StepDelay = time.Millisecond * 1500
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second * 2
	}
	return o
}

// TraversalStats summarizes one traversal. A stalled traversal is not
// an error: everything accumulated before the stall is kept.
type TraversalStats struct {
	PagesVisited    int
	AdvanceFailures int
	Stalled         bool
}

// Controller drives the paged result set strictly sequentially: page
// N+1 is never visited before page N's extraction completes, because
// the underlying browser tab is a single mutable resource.
type Controller struct {
	page  browser.Page
	chain Chain
	opts  ControllerOptions
}

func NewController(page browser.Page, chain Chain, opts ControllerOptions) Controller {
	return Controller{
		page:  page,
		chain: chain,
		opts:  opts.withDefaults(),
	}
}

// Run traverses pages 1..min(total, cap), feeding each page-view's
// extraction into the accumulator. It only ever stops early on
// cancellation or an unrecoverable advance failure, and in both cases
// the accumulator keeps everything gathered so far.
func (c Controller) Run(ctx context.Context, acc *Accumulator) TraversalStats {
	ctx, span := tracer.Start(ctx, "controller:Run")
	defer span.End()

	stats := TraversalStats{}

	cursor := c.readCursorFromPage(ctx)
	if cursor.Current > 1 {
		// traversal always starts from a known origin, checkpoint
		// numbering assumes page 1 is first
		c.returnToOrigin(ctx)
		cursor = c.readCursorFromPage(ctx)
	}
	highWater := cursor.Total
	slog.InfoContext(ctx, "starting traversal", "total_pages", highWater)

	for pageNo := 1; pageNo <= c.pageLimit(highWater); pageNo++ {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "traversal cancelled", "visited", stats.PagesVisited)
			stats.Stalled = true
			break
		}

		if pageNo > 1 {
			err := c.advance(ctx)
			if err != nil {
				slog.WarnContext(ctx, "could not advance, keeping partial results",
					"page", pageNo, "visited", stats.PagesVisited, "err", err)
				span.AddEvent("advance failed")
				stats.AdvanceFailures++
				stats.Stalled = true
				break
			}

			fresh := c.readCursorFromPage(ctx)
			if fresh.Total > highWater {
				highWater = fresh.Total
			}
			if fresh.Current != pageNo {
				// a mismatch confirms nothing is where we expect it,
				// but extraction still runs on whatever rendered
				slog.WarnContext(ctx, "page indicator mismatch",
					"expected", pageNo, "indicated", fresh.Current)
			}
		}

		state := c.snapshot(ctx)
		records := c.chain.Extract(ctx, state)
		added := acc.Add(records)
		c.page.ClearResponses()
		stats.PagesVisited++

		slog.DebugContext(ctx, "page extracted",
			"page", pageNo, "records", len(records), "new", added, "total", acc.Count())
		span.SetAttributes(attribute.Int("pages_visited", stats.PagesVisited))

		if highWater > c.opts.LargeExportThreshold && pageNo%c.opts.CheckpointInterval == 0 {
			acc.Checkpoint(ctx)
		}
	}

	if stats.Stalled {
		span.SetStatus(codes.Error, "traversal stalled")
	}
	return stats
}

func (c Controller) pageLimit(total int) int {
	if c.opts.PageCap > 0 && c.opts.PageCap < total {
		return c.opts.PageCap
	}
	return total
}

func (c Controller) readCursorFromPage(ctx context.Context) PageCursor {
	text, err := c.page.Text(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read page text for cursor", "err", err)
		return PageCursor{Current: 1, Total: 1}
	}
	return readCursor(text)
}

func (c Controller) returnToOrigin(ctx context.Context) {
	url := c.page.URL()
	if url == "" {
		return
	}
	err := c.page.Navigate(ctx, url)
	if err != nil {
		slog.WarnContext(ctx, "failed to return to first page", "err", err)
	}
	time.Sleep(c.opts.StepDelay)
}

func (c Controller) snapshot(ctx context.Context) PageState {
	html, err := c.page.HTML(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read page html", "err", err)
	}
	return PageState{
		HTML:      html,
		Responses: c.page.Responses(),
	}
}

// advance clicks the next-page control, retrying once locally after a
// short wait. Failure after the retry is reported to the caller, who
// stops the traversal without discarding anything.
func (c Controller) advance(ctx context.Context) error {
	attempt := func() error {
		return c.tryAdvance(ctx)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.RetryDelay), 1),
		ctx,
	)
	return backoff.Retry(attempt, policy)
}

func (c Controller) tryAdvance(ctx context.Context) error {
	control, probe, err := c.findNextControl(ctx)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "clicking next-page control", "probe", probe)
	err = c.page.Click(ctx, control)
	if err != nil {
		return fmt.Errorf("click next control: %w", err)
	}
	time.Sleep(c.opts.StepDelay)
	return nil
}

func (c Controller) findNextControl(ctx context.Context) (browser.Element, string, error) {
	for _, probe := range nextControlProbes {
		elements, err := c.page.Find(ctx, probe)
		if err != nil || len(elements) == 0 {
			continue
		}

		switch probe.Name {
		case "button glyph scan":
			if el := pickGlyphButton(elements); el != nil {
				return el, probe.Name, nil
			}
		case "pagination container":
			if el := pickPositionalButton(elements); el != nil {
				return el, probe.Name, nil
			}
		default:
			return elements[0], probe.Name, nil
		}
	}
	return nil, "", fmt.Errorf("no next-page control found")
}

func pickGlyphButton(elements []browser.Element) browser.Element {
	for _, el := range elements {
		text := strings.TrimSpace(el.Text())
		for _, glyph := range nextGlyphs {
			if text == glyph {
				return el
			}
		}
		if strings.Contains(strings.ToLower(text), "next") {
			return el
		}
	}
	return nil
}

// pickPositionalButton is the last-ditch probe: inside whatever looks
// like a pagination container, the advance control is the last button
// that isn't obviously a "previous".
func pickPositionalButton(elements []browser.Element) browser.Element {
	for i := len(elements) - 1; i >= 0; i-- {
		text := strings.ToLower(strings.TrimSpace(elements[i].Text()))
		isPrevious := false
		for _, hint := range previousHints {
			if text == hint || strings.Contains(text, hint) {
				isPrevious = true
				break
			}
		}
		if !isPrevious {
			return elements[i]
		}
	}
	return nil
}
