package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/rs/zerolog"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// BybitSource fetches kline history from Bybit and satisfies the optimizer's
// CandleSource contract: given a token symbol and an alert timestamp it
// returns the minute candles from the alert forward.
type BybitSource struct {
	client   *bybit_api.Client
	category string
	interval string
	window   time.Duration
	log      zerolog.Logger
}

// BybitConfig configures a BybitSource. Zero values fall back to spot
// 1-minute candles over a 24h window.
type BybitConfig struct {
	Category string
	Interval string
	Window   time.Duration
}

// NewBybitSource creates a source against the Bybit public market API. Kline
// endpoints need no credentials.
func NewBybitSource(cfg BybitConfig, log zerolog.Logger) *BybitSource {
	if cfg.Category == "" {
		cfg.Category = "spot"
	}
	if cfg.Interval == "" {
		cfg.Interval = "1"
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	return &BybitSource{
		client:   bybit_api.NewBybitHttpClient("", "", bybit_api.WithBaseURL(bybit_api.MAINNET)),
		category: cfg.Category,
		interval: cfg.Interval,
		window:   cfg.Window,
		log:      log,
	}
}

// Candles fetches the series for one token from its alert time forward.
func (s *BybitSource) Candles(ctx context.Context, token string, alertAt time.Time) ([]types.Candle, error) {
	params := map[string]interface{}{
		"category": s.category,
		"symbol":   token,
		"interval": s.interval,
		"start":    alertAt.UnixMilli(),
		"end":      alertAt.Add(s.window).UnixMilli(),
		"limit":    1000,
	}

	result, err := s.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", token, err)
	}
	candles, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("parsing klines for %s: %w", token, err)
	}
	if err := ValidateCandles(candles); err != nil {
		return nil, fmt.Errorf("validating klines for %s: %w", token, err)
	}
	s.log.Debug().Str("token", token).Int("candles", len(candles)).Msg("fetched klines")
	return candles, nil
}

// parseKlineResponse unpacks Bybit's [startMs, open, high, low, close,
// volume, turnover] string rows. The API returns newest first; the engine
// needs oldest first.
func parseKlineResponse(response interface{}) ([]types.Candle, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", response)
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("bybit error %d: %s", serverResp.RetCode, serverResp.RetMsg)
	}

	raw, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("re-encoding result: %w", err)
	}
	var payload struct {
		List [][]string `json:"list"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding kline list: %w", err)
	}

	candles := make([]types.Candle, 0, len(payload.List))
	for _, row := range payload.List {
		if len(row) < 6 {
			continue
		}
		ms, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		candles = append(candles, types.Candle{
			Timestamp: time.UnixMilli(ms).UTC(),
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
		})
	}

	// Reverse into ascending time order.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
