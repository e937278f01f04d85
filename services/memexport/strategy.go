package memexport

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("memexporter/memexport")

// Strategy is one self-contained extraction procedure. Attempt must
// never block indefinitely and must not fail on absence of data:
// absence and structural parse errors both reduce to an empty slice.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, state PageState) []Record
}

// Chain runs strategies in priority order and returns the first
// non-empty result. Results from different strategies are never
// merged within one page-view: mixing field heuristics on the same
// view risks double-counting the same entry.
type Chain struct {
	strategies []Strategy
}

type ChainOptions struct {
	// minimum trimmed content length, DefaultMinContentLength when 0
	MinContentLength int
}

// NewChain builds the standard chain: intercepted network responses
// are authoritative when non-empty (they reflect server data), the
// structural dom query is next, the text heuristic is last.
func NewChain(opts ChainOptions) Chain {
	minLength := opts.MinContentLength
	if minLength <= 0 {
		minLength = DefaultMinContentLength
	}
	return Chain{
		strategies: []Strategy{
			networkStrategy{minContent: minLength},
			domStrategy{minContent: minLength},
			fallbackStrategy{minContent: minLength},
		},
	}
}

// NewChainOf builds a chain from explicit strategies, in order.
func NewChainOf(strategies ...Strategy) Chain {
	return Chain{strategies: strategies}
}

// Extract returns the first non-empty strategy result for the page
// state, or an empty slice when every strategy comes up dry.
func (c Chain) Extract(ctx context.Context, state PageState) []Record {
	ctx, span := tracer.Start(ctx, "chain:Extract")
	defer span.End()

	for _, strategy := range c.strategies {
		records := strategy.Attempt(ctx, state)
		if len(records) == 0 {
			slog.DebugContext(ctx, "strategy yielded nothing", "strategy", strategy.Name())
			continue
		}
		slog.DebugContext(ctx, "strategy yielded records",
			"strategy", strategy.Name(), "count", len(records))
		span.AddEvent("extracted", trace.WithAttributes(
			attribute.String("strategy", strategy.Name()),
			attribute.Int("count", len(records)),
		))
		return records
	}
	return nil
}
