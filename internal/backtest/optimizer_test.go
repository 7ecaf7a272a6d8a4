package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/config"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/optimization"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// fakeSource serves preset candle series per token.
type fakeSource struct {
	series map[string][]types.Candle
}

func (f *fakeSource) Candles(_ context.Context, token string, _ time.Time) ([]types.Candle, error) {
	candles, ok := f.series[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return candles, nil
}

// singleStrategyGrid collapses every dimension to one value.
func singleStrategyGrid() optimization.ParameterGrid {
	return optimization.ParameterGrid{
		InitialStops:        []float64{-0.5},
		TrailingActivations: []float64{0},
		TrailingPercents:    []float64{0.1},
		ProfitTargetSets:    [][]config.ProfitTargetLeg{{{Target: 2.0, Percent: 1.0}}},
		MaxReEntries:        []int{0},
		ReEntrySizes:        []float64{0.5},
	}
}

func flatCandles(n int) []types.Candle {
	bars := make([][4]float64, n)
	for i := range bars {
		bars[i] = [4]float64{1.0, 1.0, 1.0, 1.0}
	}
	return minuteCandles(bars...)
}

func alertTime() time.Time {
	return time.Unix(baseTS, 0).UTC()
}

func TestOptimize_SkipsInvalidRecordsWithoutAborting(t *testing.T) {
	opt := NewOptimizer(OptimizerConfig{Grid: singleStrategyGrid()}, nil, nil, zerolog.Nop())

	records := []DataRecord{
		{Token: "", AlertAt: alertTime(), Candles: flatCandles(20)},     // unresolvable token
		{Token: "SHORT", AlertAt: alertTime(), Candles: flatCandles(3)}, // below min candles
		{Token: "NOTIME", Candles: flatCandles(20)},                     // invalid timestamp
		{Token: "GOOD", AlertAt: alertTime(), Candles: flatCandles(20)},
	}

	run, err := opt.Optimize(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 3, run.Skipped)
	assert.Equal(t, 0, run.Failed)
	assert.Equal(t, 1, run.Simulations)
	require.Len(t, run.Strategies, 1)
	assert.Len(t, run.Strategies[0].Trades, 1)
}

func TestOptimize_FetchFailureIsCountedNotFatal(t *testing.T) {
	source := &fakeSource{series: map[string][]types.Candle{
		"GOOD": flatCandles(20),
	}}
	opt := NewOptimizer(OptimizerConfig{Grid: singleStrategyGrid()}, nil, source, zerolog.Nop())

	records := []DataRecord{
		{Token: "BAD", AlertAt: alertTime()},
		{Token: "GOOD", AlertAt: alertTime()},
	}

	run, err := opt.Optimize(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 1, run.Simulations)
}

func TestOptimize_ConsultsCacheBeforeSimulating(t *testing.T) {
	cache := NewResultCache(100, time.Hour)
	opt := NewOptimizer(OptimizerConfig{Grid: singleStrategyGrid()}, cache, nil, zerolog.Nop())

	// Identical token and window: the second record is a guaranteed hit.
	candles := flatCandles(20)
	records := []DataRecord{
		{Token: "SAME", AlertAt: alertTime(), Candles: candles},
		{Token: "SAME", AlertAt: alertTime(), Candles: candles},
	}

	run, err := opt.Optimize(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 2, run.Simulations)
	assert.Equal(t, 1, run.CacheHits)
	assert.Equal(t, 1, cache.Len())
}

func TestOptimize_MaxStrategiesTruncatesFromFront(t *testing.T) {
	grid := singleStrategyGrid()
	grid.InitialStops = []float64{-0.5, -0.6}
	grid.ProfitTargetSets = [][]config.ProfitTargetLeg{
		{{Target: 2.0, Percent: 1.0}},
		{{Target: 3.0, Percent: 1.0}},
	}

	all := optimization.Combinations(grid, nil)
	require.Len(t, all, 4)

	opt := NewOptimizer(OptimizerConfig{Grid: grid, MaxStrategies: 2}, nil, nil, zerolog.Nop())
	records := []DataRecord{{Token: "GOOD", AlertAt: alertTime(), Candles: flatCandles(20)}}

	run, err := opt.Optimize(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, run.Strategies, 2)
	kept := map[string]bool{
		run.Strategies[0].Strategy.Name: true,
		run.Strategies[1].Strategy.Name: true,
	}
	assert.True(t, kept[all[0].Name], "first candidate must survive truncation")
	assert.True(t, kept[all[1].Name], "second candidate must survive truncation")
}

func TestOptimize_BestIsFirstSeenOnTies(t *testing.T) {
	grid := singleStrategyGrid()
	grid.ProfitTargetSets = [][]config.ProfitTargetLeg{
		{{Target: 2.0, Percent: 1.0}},
		{{Target: 3.0, Percent: 1.0}},
	}

	// Flat candles: every strategy marks to market at breakeven, a dead tie.
	records := []DataRecord{{Token: "FLAT", AlertAt: alertTime(), Candles: flatCandles(20)}}
	opt := NewOptimizer(OptimizerConfig{Grid: grid}, nil, nil, zerolog.Nop())

	run, err := opt.Optimize(context.Background(), records)
	require.NoError(t, err)

	first := optimization.Combinations(grid, nil)[0]
	require.NotNil(t, run.Best)
	assert.Equal(t, first.Name, run.Best.Strategy.Name)
	assert.InDelta(t, 0.0, run.Best.Metrics.TotalPnlPercent, 1e-9)
}

func TestOptimize_BoundedBatchesProcessEveryRecord(t *testing.T) {
	records := make([]DataRecord, 10)
	for i := range records {
		records[i] = DataRecord{
			Token:   fmt.Sprintf("TOKEN%d", i),
			AlertAt: alertTime(),
			Candles: flatCandles(20),
		}
	}

	opt := NewOptimizer(OptimizerConfig{Grid: singleStrategyGrid(), MaxConcurrent: 4}, nil, nil, zerolog.Nop())
	run, err := opt.Optimize(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 10, run.Simulations)
	assert.Equal(t, 0, run.Skipped)
	assert.Equal(t, 0, run.Failed)
	require.Len(t, run.Strategies, 1)
	assert.Len(t, run.Strategies[0].Trades, 10)
}
