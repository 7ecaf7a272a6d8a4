package types

import "time"

// Candle is one OHLCV price bar. Within a single simulation the series must
// be strictly increasing and unique in timestamp; the engine does not re-sort.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// DataWindow identifies the candle slice a simulation ran against. It is part
// of the result-cache key, so it carries only identity fields, never prices.
type DataWindow struct {
	Token       string
	Start       time.Time
	End         time.Time
	CandleCount int
}

// WindowFor derives the identity of a candle series for a token.
func WindowFor(token string, candles []Candle) DataWindow {
	w := DataWindow{Token: token, CandleCount: len(candles)}
	if len(candles) > 0 {
		w.Start = candles[0].Timestamp
		w.End = candles[len(candles)-1].Timestamp
	}
	return w
}
