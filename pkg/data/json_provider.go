package data

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// JSONProvider reads candle files shaped as an array of objects with
// unix-second timestamps, either at the document root or under a "candles"
// key:
//
//	[{"timestamp":1700000000,"open":1.0,"high":1.1,"low":0.9,"close":1.05,"volume":1000}, ...]
type JSONProvider struct{}

// NewJSONProvider creates a JSON candle provider.
func NewJSONProvider() *JSONProvider {
	return &JSONProvider{}
}

// Name implements Provider.
func (p *JSONProvider) Name() string {
	return "json"
}

// LoadCandles implements Provider.
func (p *JSONProvider) LoadCandles(ctx context.Context, source string) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("opening candle file: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%s is not valid JSON", source)
	}

	doc := gjson.ParseBytes(raw)
	list := doc
	if !doc.IsArray() {
		list = doc.Get("candles")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%s: no candle array found", source)
	}

	var candles []types.Candle
	list.ForEach(func(_, item gjson.Result) bool {
		candles = append(candles, types.Candle{
			Timestamp: time.Unix(item.Get("timestamp").Int(), 0).UTC(),
			Open:      item.Get("open").Float(),
			High:      item.Get("high").Float(),
			Low:       item.Get("low").Float(),
			Close:     item.Get("close").Float(),
			Volume:    item.Get("volume").Float(),
		})
		return true
	})

	if err := ValidateCandles(candles); err != nil {
		return nil, fmt.Errorf("validating %s: %w", source, err)
	}
	return candles, nil
}
