package memexport

import (
	"context"
	"testing"
	"time"

	"memexporter/lib/browser"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestReadCursor(t *testing.T) {
	cases := []struct {
		name string
		text string
		want PageCursor
	}{
		{"standard", "footer stuff Page 3 of 12 more stuff", PageCursor{Current: 3, Total: 12}},
		{"case insensitive", "PAGE 1 OF 2", PageCursor{Current: 1, Total: 2}},
		{"absent", "no indicator anywhere", PageCursor{Current: 1, Total: 1}},
		{"current beyond total", "Page 12 of 10", PageCursor{Current: 12, Total: 12}},
		{"zero current", "Page 0 of 5", PageCursor{Current: 1, Total: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, readCursor(tc.text)); diff != "" {
				t.Fatalf("cursor mismatch:\n%s", diff)
			}
		})
	}
}

func testControllerOptions() ControllerOptions {
	return ControllerOptions{
		StepDelay:  time.Millisecond,
		RetryDelay: time.Millisecond,
	}
}

func testChain() Chain {
	return NewChain(ChainOptions{})
}

func TestControllerVisitsEveryPageInOrder(t *testing.T) {
	page := newFakePage(
		fakeView{html: viewHTML(1, 3, "First page memory entry alpha")},
		fakeView{html: viewHTML(2, 3, "Second page memory entry beta")},
		fakeView{html: viewHTML(3, 3, "Third page memory entry gamma")},
	)
	acc := NewAccumulator("test", nil)

	stats := NewController(page, testChain(), testControllerOptions()).Run(context.Background(), acc)

	require.Equal(t, 3, stats.PagesVisited)
	require.False(t, stats.Stalled)
	require.Equal(t, 3, acc.Count())
	// strictly monotonic, no revisits
	require.Equal(t, []int{1, 2, 3}, page.htmlReads)
}

func TestControllerKeepsPartialProgressOnAdvanceFailure(t *testing.T) {
	page := newFakePage(
		fakeView{html: viewHTML(1, 5, "Only the first page was reachable")},
		fakeView{html: viewHTML(2, 5, "Never reached page two entry")},
	)
	page.failAdvanceTo = 2
	acc := NewAccumulator("test", nil)

	stats := NewController(page, testChain(), testControllerOptions()).Run(context.Background(), acc)

	require.True(t, stats.Stalled)
	require.Equal(t, 1, stats.AdvanceFailures)
	require.Equal(t, 1, stats.PagesVisited)
	require.Equal(t, 1, acc.Count())
	require.Equal(t, "Only the first page was reachable", acc.Records()[0].Content)
}

func TestControllerRetriesAdvanceOnce(t *testing.T) {
	page := newFakePage(
		fakeView{html: viewHTML(1, 2, "First page survives the flake")},
		fakeView{html: viewHTML(2, 2, "Second page reached after retry")},
	)
	page.flakyClicks = 1

	acc := NewAccumulator("test", nil)
	stats := NewController(page, testChain(), testControllerOptions()).Run(context.Background(), acc)

	require.False(t, stats.Stalled)
	require.Equal(t, 2, stats.PagesVisited)
	require.Equal(t, 2, acc.Count())
}

func TestControllerHighWaterTotal(t *testing.T) {
	// the indicator shrinks mid-run; the traversal bound must not
	page := newFakePage(
		fakeView{html: viewHTML(1, 3, "Page one entry before the shrink")},
		fakeView{html: viewHTML(2, 2, "Page two claims a smaller total")},
		fakeView{html: viewHTML(3, 3, "Page three still gets visited")},
	)
	acc := NewAccumulator("test", nil)

	stats := NewController(page, testChain(), testControllerOptions()).Run(context.Background(), acc)

	require.Equal(t, 3, stats.PagesVisited)
	require.Equal(t, 3, acc.Count())
}

func TestControllerRaisesTotalMidRun(t *testing.T) {
	page := newFakePage(
		fakeView{html: viewHTML(1, 2, "Page one entry before the growth")},
		fakeView{html: viewHTML(2, 4, "Page two announces more pages")},
		fakeView{html: viewHTML(3, 4, "Page three exists after all here")},
		fakeView{html: viewHTML(4, 4, "Page four closes out the run")},
	)
	acc := NewAccumulator("test", nil)

	stats := NewController(page, testChain(), testControllerOptions()).Run(context.Background(), acc)

	require.Equal(t, 4, stats.PagesVisited)
	require.Equal(t, 4, acc.Count())
}

func TestControllerPageCap(t *testing.T) {
	page := newFakePage(
		fakeView{html: viewHTML(1, 5, "Capped run page one entry text")},
		fakeView{html: viewHTML(2, 5, "Capped run page two entry text")},
		fakeView{html: viewHTML(3, 5, "Capped run page three entry")},
	)
	acc := NewAccumulator("test", nil)

	opts := testControllerOptions()
	opts.PageCap = 2
	stats := NewController(page, testChain(), opts).Run(context.Background(), acc)

	require.Equal(t, 2, stats.PagesVisited)
	require.False(t, stats.Stalled)
	require.Equal(t, 2, acc.Count())
}

func TestControllerReturnsToOriginWhenMidway(t *testing.T) {
	page := newFakePage(
		fakeView{html: viewHTML(1, 2, "Back at the first page again")},
		fakeView{html: viewHTML(2, 2, "Second page after the reset")},
	)
	// a prior navigation left a url behind, and the view renders page 2
	page.url = "https://shapes.inc/dashboard/shape/memories"
	page.idx = 1

	acc := NewAccumulator("test", nil)
	stats := NewController(page, testChain(), testControllerOptions()).Run(context.Background(), acc)

	require.Equal(t, []string{"https://shapes.inc/dashboard/shape/memories"}, page.navigates)
	require.Equal(t, 2, stats.PagesVisited)
	require.Equal(t, []int{1, 2}, page.htmlReads)
}

func TestControllerCheckpointsLargeExports(t *testing.T) {
	page := newFakePage(
		fakeView{html: viewHTML(1, 4, "Checkpointed page one entry here")},
		fakeView{html: viewHTML(2, 4, "Checkpointed page two entry here")},
		fakeView{html: viewHTML(3, 4, "Checkpointed page three entry")},
		fakeView{html: viewHTML(4, 4, "Checkpointed page four entry")},
	)

	cp := &captureCheckpointer{}
	acc := NewAccumulator("test", cp)

	opts := testControllerOptions()
	opts.CheckpointInterval = 2
	opts.LargeExportThreshold = 3
	NewController(page, testChain(), opts).Run(context.Background(), acc)

	// pages 2 and 4
	require.Equal(t, 2, cp.calls)
	require.Len(t, cp.records, 4)
}

func TestControllerSmallExportSkipsCheckpoints(t *testing.T) {
	page := newFakePage(
		fakeView{html: viewHTML(1, 2, "Small export page one entry")},
		fakeView{html: viewHTML(2, 2, "Small export page two entry")},
	)
	cp := &captureCheckpointer{}
	acc := NewAccumulator("test", cp)

	opts := testControllerOptions()
	opts.CheckpointInterval = 1
	opts.LargeExportThreshold = 10
	NewController(page, testChain(), opts).Run(context.Background(), acc)

	require.Zero(t, cp.calls)
}

func TestControllerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := newFakePage(fakeView{html: viewHTML(1, 3, "Never extracted due to cancel")})
	acc := NewAccumulator("test", nil)

	stats := NewController(page, testChain(), testControllerOptions()).Run(ctx, acc)

	require.True(t, stats.Stalled)
	require.Zero(t, stats.PagesVisited)
	require.Zero(t, acc.Count())
}

func TestControllerClearsResponsesBetweenPages(t *testing.T) {
	body := []byte(`[{"content": "Network response on page one only"}]`)
	page := newFakePage(
		fakeView{
			html:      emptyViewHTML(1, 2),
			responses: []browser.Response{{URL: "a", Status: 200, ContentType: "application/json", Body: body}},
		},
		fakeView{html: viewHTML(2, 2, "Page two came from the dom")},
	)
	acc := NewAccumulator("test", nil)

	NewController(page, testChain(), testControllerOptions()).Run(context.Background(), acc)

	records := acc.Records()
	require.Len(t, records, 2)
	require.Equal(t, SourceNetwork, records[0].Source)
	require.Equal(t, SourceDOMPrimary, records[1].Source)
	require.True(t, page.cleared[0])
	require.True(t, page.cleared[1])
}
