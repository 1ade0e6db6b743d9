package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStrategyConfig_Valid(t *testing.T) {
	cfg := DefaultStrategyConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Thresholds{PlusDI: 25, MinusDI: 20, ADXMinimum: 20}, cfg.Thresholds())
}

func TestStrategyConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StrategyConfig)
		msg    string
	}{
		{"tp zero", func(c *StrategyConfig) { c.TakeProfitPercentage = 0 }, "Take Profit and Stop Loss must be positive values"},
		{"sl negative", func(c *StrategyConfig) { c.StopLossPercentage = -0.5 }, "Take Profit and Stop Loss must be positive values"},
		{"leverage zero", func(c *StrategyConfig) { c.Leverage = 0 }, "Leverage must be between 1 and 125"},
		{"leverage 126", func(c *StrategyConfig) { c.Leverage = 126 }, "Leverage must be between 1 and 125"},
		{"negative threshold", func(c *StrategyConfig) { c.ADXMinimum = -1 }, "Indicator thresholds must not be negative"},
		{"no symbol", func(c *StrategyConfig) { c.Symbol = "" }, "Symbol and timeframe are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultStrategyConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidStrategy)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	edge := DefaultStrategyConfig()
	edge.Leverage = 125
	edge.PlusDIThreshold = 0
	assert.NoError(t, edge.Validate())
}

func TestStrategyUpdate_Apply(t *testing.T) {
	sym, lev := "ETHUSDT", 5
	got := StrategyUpdate{Symbol: &sym, Leverage: &lev}.Apply(DefaultStrategyConfig())
	assert.Equal(t, "ETHUSDT", got.Symbol)
	assert.Equal(t, 5, got.Leverage)
	assert.Equal(t, "5m", got.Timeframe)
	assert.Equal(t, 2.0, got.TakeProfitPercentage)
}

func TestTradingSignal_HasIndicators(t *testing.T) {
	var nilSig *TradingSignal
	assert.False(t, nilSig.HasIndicators())
	assert.False(t, (&TradingSignal{PlusDI: Float(1), ADX: Float(1)}).HasIndicators())
	assert.True(t, (&TradingSignal{PlusDI: Float(0), MinusDI: Float(0), ADX: Float(0)}).HasIndicators())
}
