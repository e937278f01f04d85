package memexport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	name     string
	records  []Record
	attempts int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Attempt(ctx context.Context, state PageState) []Record {
	s.attempts++
	return s.records
}

func TestChainFirstNonEmptyWins(t *testing.T) {
	first := &stubStrategy{name: "first"}
	second := &stubStrategy{name: "second", records: []Record{{Content: "found by the second strategy"}}}
	third := &stubStrategy{name: "third", records: []Record{{Content: "never reached"}}}

	records := NewChainOf(first, second, third).Extract(context.Background(), PageState{})

	require.Len(t, records, 1)
	require.Equal(t, "found by the second strategy", records[0].Content)
	require.Equal(t, 1, first.attempts)
	require.Equal(t, 1, second.attempts)
	// results are never merged across strategies
	require.Zero(t, third.attempts)
}

func TestChainAllEmpty(t *testing.T) {
	first := &stubStrategy{name: "first"}
	second := &stubStrategy{name: "second"}

	records := NewChainOf(first, second).Extract(context.Background(), PageState{})
	require.Empty(t, records)
}

func TestNewChainOrder(t *testing.T) {
	chain := NewChain(ChainOptions{})
	require.Len(t, chain.strategies, 3)
	require.Equal(t, string(SourceNetwork), chain.strategies[0].Name())
	require.Equal(t, string(SourceDOMPrimary), chain.strategies[1].Name())
	require.Equal(t, string(SourceDOMFallback), chain.strategies[2].Name())
}
