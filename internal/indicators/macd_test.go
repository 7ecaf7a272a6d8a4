package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMACD_MinCandlesBoundary(t *testing.T) {
	m := NewMACD(3, 5, 3)
	require.Equal(t, 7, m.MinCandles())

	candles := candlesFromCloses(1, 2, 3, 4, 5, 6, 7, 8)

	_, _, ok := m.Calculate(candles, 5, nil)
	assert.False(t, ok, "signal line not yet seeded")

	value, state, ok := m.Calculate(candles, 6, nil)
	require.True(t, ok)
	require.NotNil(t, value)
	require.NotNil(t, state)
	assert.Equal(t, 6, state.Index)
	assert.False(t, value.BullishCross, "no previous value to cross against")
	assert.False(t, value.BearishCross)
}

func TestMACD_FirstValueSeedsSignalWithSpreadAverage(t *testing.T) {
	// fast=2 (alpha 2/3), slow=3 (alpha 1/2), signal=2: first valid index 3.
	m := NewMACD(2, 3, 2)
	candles := candlesFromCloses(1, 2, 3, 4)

	value, _, ok := m.Calculate(candles, 3, nil)
	require.True(t, ok)

	// Spreads at indices 2 and 3 are both 0.5, so the seeded signal is 0.5.
	assert.InDelta(t, 0.5, value.MACD, 1e-12)
	assert.InDelta(t, 0.5, value.Signal, 1e-12)
	assert.InDelta(t, 0.0, value.Histogram, 1e-12)
}

func TestMACD_StreamingMatchesBootstrap(t *testing.T) {
	closes := []float64{
		100, 101, 99, 102, 104, 103, 106, 105, 108, 110,
		109, 107, 104, 102, 103, 105, 108, 111, 110, 112,
		109, 106, 104, 101, 99, 98, 100, 103, 107, 112,
	}
	candles := candlesFromCloses(closes...)

	streaming := NewMACD(3, 6, 3)
	var state *MACDState
	for i := streaming.MinCandles() - 1; i < len(candles); i++ {
		sv, next, ok := streaming.Calculate(candles, i, state)
		require.True(t, ok)
		state = next

		fresh := NewMACD(3, 6, 3)
		fv, _, ok := fresh.Calculate(candles, i, nil)
		require.True(t, ok)

		assert.InDelta(t, fv.MACD, sv.MACD, 1e-9, "macd diverges at index %d", i)
		assert.InDelta(t, fv.Signal, sv.Signal, 1e-9, "signal diverges at index %d", i)
		assert.InDelta(t, fv.Histogram, sv.Histogram, 1e-9, "histogram diverges at index %d", i)
		assert.Equal(t, fv.BullishCross, sv.BullishCross, "bullish flag diverges at index %d", i)
		assert.Equal(t, fv.BearishCross, sv.BearishCross, "bearish flag diverges at index %d", i)
	}
}

func TestMACD_CrossFlagsTrackLineCrossings(t *testing.T) {
	// A decline into a sharp recovery and a later rollover produces both
	// cross directions in one series.
	closes := []float64{
		110, 108, 106, 104, 102, 100, 98, 96, 94, 92,
		95, 99, 104, 110, 117, 123, 128, 132, 134, 135,
		133, 129, 124, 118, 112, 107, 103, 100, 98, 97,
	}
	candles := candlesFromCloses(closes...)

	m := NewMACD(3, 6, 3)
	var state *MACDState
	var prev *MACDValue
	sawBullish, sawBearish := false, false

	for i := m.MinCandles() - 1; i < len(candles); i++ {
		value, next, ok := m.Calculate(candles, i, state)
		require.True(t, ok)
		state = next

		if prev != nil {
			wantBull := prev.MACD <= prev.Signal && value.MACD > value.Signal
			wantBear := prev.MACD >= prev.Signal && value.MACD < value.Signal
			assert.Equal(t, wantBull, value.BullishCross, "bullish flag at index %d", i)
			assert.Equal(t, wantBear, value.BearishCross, "bearish flag at index %d", i)
		}
		sawBullish = sawBullish || value.BullishCross
		sawBearish = sawBearish || value.BearishCross
		prev = value
	}

	assert.True(t, sawBullish, "recovery leg should produce a bullish cross")
	assert.True(t, sawBearish, "rollover leg should produce a bearish cross")
}

func TestMACD_ResetForcesBootstrap(t *testing.T) {
	closes := []float64{10, 11, 12, 11, 13, 14, 13, 15, 16, 15, 17, 18}
	candles := candlesFromCloses(closes...)

	m := NewMACD(3, 5, 3)
	first, _, ok := m.Calculate(candles, 10, nil)
	require.True(t, ok)

	m.Reset()
	second, _, ok := m.Calculate(candles, 10, nil)
	require.True(t, ok)

	assert.InDelta(t, first.MACD, second.MACD, 1e-12)
	assert.InDelta(t, first.Signal, second.Signal, 1e-12)
}

func TestMACD_CalculatorContract(t *testing.T) {
	var c Calculator = NewMACD(12, 26, 9)
	assert.Equal(t, "macd_12_26_9", c.Name())
	assert.Equal(t, 34, c.MinCandles())
}
