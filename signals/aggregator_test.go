package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xkylo/moonshot/types"
)

type staticSource []types.TradingSignal

func (s staticSource) Signals(_ context.Context) []types.TradingSignal {
	return s
}

func signalFor(address, confidence, source string) types.TradingSignal {
	return types.TradingSignal{
		Token:      types.TokenInfo{Address: address},
		Type:       types.SignalBuy,
		Confidence: dec(confidence),
		Source:     source,
	}
}

func TestAggregatorMergesAndSorts(t *testing.T) {
	t.Parallel()

	trendSource := staticSource{
		signalFor("token-a", "0.6", "trend_analysis"),
		signalFor("token-b", "0.9", "trend_analysis"),
	}
	walletSource := staticSource{
		signalFor("token-c", "0.7", "wallet_tracking"),
	}

	agg := NewAggregator(trendSource, walletSource)
	merged := agg.Signals(context.Background())

	require.Len(t, merged, 3)
	assert.Equal(t, "token-b", merged[0].Token.Address)
	assert.Equal(t, "token-c", merged[1].Token.Address)
	assert.Equal(t, "token-a", merged[2].Token.Address)
}

func TestAggregatorDeduplicatesByConfidence(t *testing.T) {
	t.Parallel()

	trendSource := staticSource{signalFor("token-a", "0.6", "trend_analysis")}
	walletSource := staticSource{signalFor("token-a", "0.9", "wallet_tracking")}

	agg := NewAggregator(trendSource, walletSource)
	merged := agg.Signals(context.Background())

	require.Len(t, merged, 1)
	assert.Equal(t, "wallet_tracking", merged[0].Source)
	assert.True(t, merged[0].Confidence.Equal(dec("0.9")))
}

func TestAggregatorNoSources(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	assert.Empty(t, agg.Signals(context.Background()))
}
