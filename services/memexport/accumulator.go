package memexport

import (
	"context"
	"log/slog"
)

// Checkpointer persists a partial snapshot of accumulated records.
// Implementations must overwrite any prior checkpoint for the same
// target, so repeated calls with the same state are idempotent.
type Checkpointer interface {
	Checkpoint(ctx context.Context, target string, records []Record) error
}

// Accumulator owns the deduplicated record sequence for one target's
// run. It is the only state that outlives a page-view; the pagination
// controller is its sole writer, so no locking is involved.
type Accumulator struct {
	target       string
	records      []Record
	seen         map[string]struct{}
	checkpointer Checkpointer
}

func NewAccumulator(target string, checkpointer Checkpointer) *Accumulator {
	return &Accumulator{
		target:       target,
		seen:         map[string]struct{}{},
		checkpointer: checkpointer,
	}
}

// Add appends every record whose content key hasn't been seen yet and
// reports how many were new. First-seen metadata wins: a duplicate's
// kind/date/raw payload is discarded along with it.
func (a *Accumulator) Add(records []Record) int {
	added := 0
	for _, record := range records {
		key := record.Key()
		if key == "" {
			continue
		}
		if _, dup := a.seen[key]; dup {
			continue
		}
		a.seen[key] = struct{}{}
		a.records = append(a.records, record)
		added++
	}
	return added
}

func (a *Accumulator) Count() int {
	return len(a.records)
}

// Records returns a copy of the accumulated sequence in arrival order.
func (a *Accumulator) Records() []Record {
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

// Checkpoint writes the current state through the checkpointer.
// Write failures are logged and swallowed: losing a checkpoint is
// recoverable, aborting a 200-page run over it is not.
func (a *Accumulator) Checkpoint(ctx context.Context) {
	if a.checkpointer == nil {
		return
	}
	err := a.checkpointer.Checkpoint(ctx, a.target, a.Records())
	if err != nil {
		slog.WarnContext(ctx, "failed to write checkpoint",
			"target", a.target, "count", a.Count(), "err", err)
		return
	}
	slog.DebugContext(ctx, "checkpoint written", "target", a.target, "count", a.Count())
}
