package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// CSVProvider reads candle files with a header row and columns
// timestamp,open,high,low,close,volume where timestamp is Unix seconds.
type CSVProvider struct {
	log zerolog.Logger
}

// NewCSVProvider creates a CSV candle provider.
func NewCSVProvider(log zerolog.Logger) *CSVProvider {
	return &CSVProvider{log: log}
}

// Name implements Provider.
func (p *CSVProvider) Name() string {
	return "csv"
}

// LoadCandles implements Provider. Rows with short or unparsable fields are
// logged and skipped rather than failing the file.
func (p *CSVProvider) LoadCandles(ctx context.Context, source string) ([]types.Candle, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("opening candle file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", source, err)
	}

	var candles []types.Candle
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %w", source, line+1, err)
		}
		line++

		if len(record) < 6 {
			p.log.Warn().Str("file", source).Int("line", line).Msg("short row skipped")
			continue
		}
		candle, err := parseCSVRow(record)
		if err != nil {
			p.log.Warn().Str("file", source).Int("line", line).Err(err).Msg("bad row skipped")
			continue
		}
		candles = append(candles, candle)
	}

	if err := ValidateCandles(candles); err != nil {
		return nil, fmt.Errorf("validating %s: %w", source, err)
	}
	return candles, nil
}

func parseCSVRow(record []string) (types.Candle, error) {
	ts, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return types.Candle{}, fmt.Errorf("timestamp %q: %w", record[0], err)
	}
	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return types.Candle{}, fmt.Errorf("field %d %q: %w", i+1, record[i+1], err)
		}
		values[i] = v
	}
	return types.Candle{
		Timestamp: time.Unix(ts, 0).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
