package data

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVProvider_ParsesRowsAndSkipsBadOnes(t *testing.T) {
	path := writeFile(t, "candles.csv", `timestamp,open,high,low,close,volume
1700000000,1.0,1.1,0.9,1.05,1000
1700000060,1.05,1.2,1.0,1.15,1100
garbage,row,here
1700000120,1.15
1700000120,1.15,1.3,1.1,1.25,900
`)

	p := NewCSVProvider(zerolog.Nop())
	candles, err := p.LoadCandles(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, candles, 3, "malformed rows are skipped, not fatal")
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), candles[0].Timestamp)
	assert.InDelta(t, 1.05, candles[0].Close, 1e-12)
	assert.InDelta(t, 1.3, candles[2].High, 1e-12)
}

func TestCSVProvider_MissingFile(t *testing.T) {
	p := NewCSVProvider(zerolog.Nop())
	_, err := p.LoadCandles(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestCSVProvider_RejectsOutOfOrderSeries(t *testing.T) {
	path := writeFile(t, "candles.csv", `timestamp,open,high,low,close,volume
1700000060,1.0,1.1,0.9,1.05,1000
1700000000,1.05,1.2,1.0,1.15,1100
`)

	p := NewCSVProvider(zerolog.Nop())
	_, err := p.LoadCandles(context.Background(), path)
	assert.Error(t, err, "non-increasing timestamps must not reach the engine")
}

func TestJSONProvider_ParsesRootArray(t *testing.T) {
	path := writeFile(t, "candles.json", `[
		{"timestamp":1700000000,"open":1.0,"high":1.1,"low":0.9,"close":1.05,"volume":1000},
		{"timestamp":1700000060,"open":1.05,"high":1.2,"low":1.0,"close":1.15,"volume":1100}
	]`)

	p := NewJSONProvider()
	candles, err := p.LoadCandles(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, candles, 2)
	assert.InDelta(t, 1.15, candles[1].Close, 1e-12)
	assert.Equal(t, time.Unix(1700000060, 0).UTC(), candles[1].Timestamp)
}

func TestJSONProvider_ParsesCandlesKey(t *testing.T) {
	path := writeFile(t, "candles.json", `{"token":"PEPE","candles":[
		{"timestamp":1700000000,"open":1.0,"high":1.1,"low":0.9,"close":1.05,"volume":1000}
	]}`)

	p := NewJSONProvider()
	candles, err := p.LoadCandles(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.InDelta(t, 1.05, candles[0].Close, 1e-12)
}

func TestJSONProvider_RejectsNonArrayDocuments(t *testing.T) {
	p := NewJSONProvider()

	path := writeFile(t, "bad.json", `{"no": "candles here"}`)
	_, err := p.LoadCandles(context.Background(), path)
	assert.Error(t, err)

	path = writeFile(t, "invalid.json", `{not json`)
	_, err = p.LoadCandles(context.Background(), path)
	assert.Error(t, err)
}

// countingProvider records how often the wrapped load actually runs.
type countingProvider struct {
	calls   int
	candles []types.Candle
	err     error
}

func (p *countingProvider) LoadCandles(context.Context, string) ([]types.Candle, error) {
	p.calls++
	return p.candles, p.err
}

func (p *countingProvider) Name() string { return "counting" }

func TestCachedProvider_MemoizesBySource(t *testing.T) {
	inner := &countingProvider{candles: []types.Candle{{
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Open:      1, High: 1, Low: 1, Close: 1, Volume: 1,
	}}}
	p := NewCachedProvider(inner, zerolog.Nop())

	first, err := p.LoadCandles(context.Background(), "a")
	require.NoError(t, err)
	second, err := p.LoadCandles(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "second load must come from the cache")
	assert.Equal(t, first, second)

	_, err = p.LoadCandles(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "distinct sources load separately")

	// Mutating a returned slice must not poison the cache.
	second[0].Close = 999
	fresh, err := p.LoadCandles(context.Background(), "a")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, fresh[0].Close, 1e-12)
}

func TestCachedProvider_DoesNotCacheFailures(t *testing.T) {
	inner := &countingProvider{err: errors.New("boom")}
	p := NewCachedProvider(inner, zerolog.Nop())

	_, err := p.LoadCandles(context.Background(), "a")
	require.Error(t, err)
	_, err = p.LoadCandles(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestFileSource_TrimsCandlesBeforeAlert(t *testing.T) {
	dir := t.TempDir()
	csv := `timestamp,open,high,low,close,volume
1700000000,1.0,1.1,0.9,1.05,1000
1700000060,1.05,1.2,1.0,1.15,1100
1700000120,1.15,1.3,1.1,1.25,900
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "PEPE.csv"), []byte(csv), 0o644))

	source := NewFileSource(dir, "csv", NewCSVProvider(zerolog.Nop()))
	candles, err := source.Candles(context.Background(), "PEPE", time.Unix(1700000060, 0).UTC())
	require.NoError(t, err)

	require.Len(t, candles, 2)
	assert.Equal(t, time.Unix(1700000060, 0).UTC(), candles[0].Timestamp)
}

func TestValidateCandles(t *testing.T) {
	good := []types.Candle{
		{Timestamp: time.Unix(1700000000, 0), Open: 1, High: 1.2, Low: 0.9, Close: 1.1, Volume: 10},
		{Timestamp: time.Unix(1700000060, 0), Open: 1.1, High: 1.3, Low: 1.0, Close: 1.2, Volume: 12},
	}
	assert.NoError(t, ValidateCandles(good))
	assert.NoError(t, ValidateCandles(nil))

	dup := []types.Candle{good[0], good[0]}
	assert.Error(t, ValidateCandles(dup), "duplicate timestamps")

	nan := []types.Candle{good[0]}
	nan[0].Close = math.NaN()
	assert.Error(t, ValidateCandles(nan), "non-finite price")

	zero := []types.Candle{{Timestamp: time.Unix(1700000000, 0), Open: 0, High: 1, Low: 1, Close: 1}}
	assert.Error(t, ValidateCandles(zero), "non-positive price")

	inverted := []types.Candle{{Timestamp: time.Unix(1700000000, 0), Open: 1, High: 0.9, Low: 1.1, Close: 1}}
	assert.Error(t, ValidateCandles(inverted), "high below low")
}
