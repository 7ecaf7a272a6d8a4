// Package data loads candle series for the backtest core from files and
// exchange APIs. Everything here is the external fetch collaborator: it may
// block on I/O, while the engine itself never does.
package data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// Provider loads a candle series from a source path or identifier.
type Provider interface {
	// LoadCandles loads and validates the series for one source.
	LoadCandles(ctx context.Context, source string) ([]types.Candle, error)

	// Name identifies the provider in logs.
	Name() string
}

// Cache memoizes loaded candle series by source key.
type Cache interface {
	Get(key string) ([]types.Candle, bool)
	Set(key string, candles []types.Candle)
	Clear()
	Len() int
}

// ValidateCandles enforces what the simulation engine assumes: strictly
// increasing unique timestamps and finite prices. Malformed data must be
// rejected here, upstream of the engine.
func ValidateCandles(candles []types.Candle) error {
	var prev time.Time
	for i, c := range candles {
		if i > 0 && !c.Timestamp.After(prev) {
			return fmt.Errorf("candle %d: timestamp %s not after previous %s", i, c.Timestamp, prev)
		}
		prev = c.Timestamp
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("candle %d: non-finite value", i)
			}
		}
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return fmt.Errorf("candle %d: non-positive price", i)
		}
		if c.High < c.Low {
			return fmt.Errorf("candle %d: high %.8f below low %.8f", i, c.High, c.Low)
		}
	}
	return nil
}
