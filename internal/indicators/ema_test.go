package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// candlesFromCloses builds a minute-spaced series where only Close matters.
func candlesFromCloses(closes ...float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		out[i] = types.Candle{
			Timestamp: time.Unix(1700000000+int64(i)*60, 0).UTC(),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1,
		}
	}
	return out
}

func TestEMA_SeedsWithSimpleAverage(t *testing.T) {
	ema := NewEMA(3)
	candles := candlesFromCloses(1, 2, 3, 4, 5)

	value, state, ok := ema.Calculate(candles, 2, nil)
	require.True(t, ok)
	assert.InDelta(t, 2.0, value, 1e-12)
	require.NotNil(t, state)
	assert.Equal(t, 2, state.Index)
}

func TestEMA_IncrementalFormula(t *testing.T) {
	ema := NewEMA(3) // alpha = 0.5
	candles := candlesFromCloses(1, 2, 3, 4, 5)

	_, state, ok := ema.Calculate(candles, 2, nil)
	require.True(t, ok)

	value, state, ok := ema.Calculate(candles, 3, state)
	require.True(t, ok)
	assert.InDelta(t, 3.0, value, 1e-12) // (4-2)*0.5 + 2

	value, _, ok = ema.Calculate(candles, 4, state)
	require.True(t, ok)
	assert.InDelta(t, 4.0, value, 1e-12) // (5-3)*0.5 + 3
}

func TestEMA_BelowMinimumAndOutOfRange(t *testing.T) {
	ema := NewEMA(5)
	candles := candlesFromCloses(1, 2, 3, 4, 5, 6)

	_, _, ok := ema.Calculate(candles, 3, nil)
	assert.False(t, ok, "index before the seed window completes")

	_, _, ok = ema.Calculate(candles, 6, nil)
	assert.False(t, ok, "index past the series")

	_, _, ok = ema.Calculate(candles, 4, nil)
	assert.True(t, ok, "first index with a full seed window")
}

func TestEMA_StreamingMatchesRecompute(t *testing.T) {
	closes := []float64{10, 11, 9.5, 12, 13, 12.5, 14, 13.2, 15, 14.8, 16, 15.5}
	candles := candlesFromCloses(closes...)

	streaming := NewEMA(4)
	var state *EMAState
	for i := 3; i < len(candles); i++ {
		sv, next, ok := streaming.Calculate(candles, i, state)
		require.True(t, ok)
		state = next

		fresh := NewEMA(4)
		fv, _, ok := fresh.Calculate(candles, i, nil)
		require.True(t, ok)

		assert.InDelta(t, fv, sv, 1e-12, "divergence at index %d", i)
	}
}

func TestEMA_HeldStateUsedWhenPriorNil(t *testing.T) {
	candles := candlesFromCloses(1, 2, 3, 4, 5, 6, 7)

	threaded := NewEMA(3)
	var state *EMAState
	var want []float64
	for i := 2; i < len(candles); i++ {
		v, next, ok := threaded.Calculate(candles, i, state)
		require.True(t, ok)
		state = next
		want = append(want, v)
	}

	// Calling with nil prior each time must ride the internally held state.
	held := NewEMA(3)
	for i := 2; i < len(candles); i++ {
		v, _, ok := held.Calculate(candles, i, nil)
		require.True(t, ok)
		assert.InDelta(t, want[i-2], v, 1e-12)
	}
}

func TestEMA_ResetForcesBootstrap(t *testing.T) {
	candles := candlesFromCloses(1, 2, 3, 4, 5)
	ema := NewEMA(3)

	first, _, ok := ema.Calculate(candles, 4, nil)
	require.True(t, ok)

	ema.Reset()
	second, _, ok := ema.Calculate(candles, 4, nil)
	require.True(t, ok)
	assert.InDelta(t, first, second, 1e-12)
}

func TestEMA_CalculatorContract(t *testing.T) {
	var c Calculator = NewEMA(9)
	assert.Equal(t, "ema_9", c.Name())
	assert.Equal(t, 9, c.MinCandles())
}
