package signals

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/0xkylo/moonshot/types"
)

// Source produces a batch of trading signals
type Source interface {
	Signals(ctx context.Context) []types.TradingSignal
}

// Aggregator merges signals from multiple sources into one batch,
// deduplicated by token address and sorted by confidence.
type Aggregator struct {
	sources []Source
}

// NewAggregator creates an aggregator over the given sources
func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// Signals collects from every source. When two sources flag the same
// token, the higher-confidence signal wins.
func (a *Aggregator) Signals(ctx context.Context) []types.TradingSignal {
	best := make(map[string]types.TradingSignal)
	for _, source := range a.sources {
		for _, signal := range source.Signals(ctx) {
			existing, seen := best[signal.Token.Address]
			if !seen || signal.Confidence.GreaterThan(existing.Confidence) {
				best[signal.Token.Address] = signal
			}
		}
	}

	merged := make([]types.TradingSignal, 0, len(best))
	for _, signal := range best {
		merged = append(merged, signal)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence.GreaterThan(merged[j].Confidence)
	})

	log.Info().
		Int("sources", len(a.sources)).
		Int("count", len(merged)).
		Msg("📡 Signals aggregated")

	return merged
}
