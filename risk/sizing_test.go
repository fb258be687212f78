package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xkylo/moonshot/types"
)

func TestTierPolicyFactors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level      types.RiskLevel
		strategy   string
		adjustment string
	}{
		{types.RiskLow, "1.2", "1.2"},
		{types.RiskMedium, "1", "1"},
		{types.RiskHigh, "0.8", "0.8"},
		{types.RiskVeryHigh, "0.5", "0.6"},
		// Unknown tiers fall back to the VERY_HIGH entry
		{types.RiskLevel("EXTREME"), "0.5", "0.6"},
	}

	for _, tt := range tests {
		assert.True(t, StrategyTierPolicy.Factor(tt.level).Equal(dec(tt.strategy)),
			"strategy factor for %s", tt.level)
		assert.True(t, AdjustmentTierPolicy.Factor(tt.level).Equal(dec(tt.adjustment)),
			"adjustment factor for %s", tt.level)
	}
}

func signalWith(confidence string, level types.RiskLevel) types.TradingSignal {
	return types.TradingSignal{
		Token:      types.TokenInfo{Symbol: "MEME", Address: "token-a"},
		Type:       types.SignalBuy,
		Confidence: dec(confidence),
		RiskLevel:  level,
	}
}

func TestSizeAppliesAllFactors(t *testing.T) {
	t.Parallel()

	s := NewSizer(dec("0.15"), dec("10"), dec("10000"), 10)
	p := types.Portfolio{TotalValueUSD: dec("200"), AvailableCapital: dec("200")}

	// 0.15 x 1.2 (LOW) x 1.0 (confidence) x 1.0 (full horizon) x 1.2 (early progress)
	amount := s.Size(signalWith("1", types.RiskLow), p)
	assert.True(t, amount.Equal(dec("43.2")), "amount = %s", amount)
}

func TestSizeDeadlinePressure(t *testing.T) {
	t.Parallel()

	// Two days left doubles nothing, but adds 0.8 pressure
	s := NewSizer(dec("0.15"), dec("10"), dec("10000"), 2)
	p := types.Portfolio{TotalValueUSD: dec("5000"), AvailableCapital: dec("1000")}

	// 0.15 x 1.0 (MEDIUM) x 1.0 x 1.8 x 1.0 (mid progress) = 0.27
	amount := s.Size(signalWith("1", types.RiskMedium), p)
	assert.True(t, amount.Equal(dec("270")), "amount = %s", amount)
}

func TestSizeCappedAtHalfAvailable(t *testing.T) {
	t.Parallel()

	s := NewSizer(dec("0.3"), dec("10"), dec("10000"), 0)
	p := types.Portfolio{TotalValueUSD: dec("200"), AvailableCapital: dec("200")}

	// 0.3 x 1.2 x 1.0 x 2.0 x 1.2 = 0.864, capped at 0.5
	amount := s.Size(signalWith("1", types.RiskLow), p)
	assert.True(t, amount.Equal(dec("100")), "amount = %s", amount)
}

func TestSizeBelowMinimumIsZero(t *testing.T) {
	t.Parallel()

	s := NewSizer(dec("0.15"), dec("10"), dec("10000"), 10)
	p := types.Portfolio{TotalValueUSD: dec("50"), AvailableCapital: dec("50")}

	// 50 x 0.15 x 0.8 x 0.4 x 1.2 = $2.88, below the $10 floor
	amount := s.Size(signalWith("0.4", types.RiskHigh), p)
	assert.True(t, amount.IsZero())
}

func TestSizeNoCapital(t *testing.T) {
	t.Parallel()

	s := NewSizer(dec("0.15"), dec("10"), dec("10000"), 10)

	amount := s.Size(signalWith("1", types.RiskLow), types.Portfolio{})
	assert.True(t, amount.IsZero())
}
