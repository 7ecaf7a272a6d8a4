package data

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// FileSource adapts a file Provider to the optimizer's CandleSource
// contract: token X resolves to <dir>/<X>.<ext>. The alert timestamp trims
// leading candles so the walk starts at the alert.
type FileSource struct {
	dir      string
	ext      string
	provider Provider
}

// NewFileSource creates a per-token file source. ext is "csv" or "json" and
// must match the provider.
func NewFileSource(dir, ext string, provider Provider) *FileSource {
	return &FileSource{dir: dir, ext: ext, provider: provider}
}

// Candles implements the optimizer's CandleSource.
func (s *FileSource) Candles(ctx context.Context, token string, alertAt time.Time) ([]types.Candle, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s.%s", token, s.ext))
	candles, err := s.provider.LoadCandles(ctx, path)
	if err != nil {
		return nil, err
	}
	for i, c := range candles {
		if !c.Timestamp.Before(alertAt) {
			return candles[i:], nil
		}
	}
	return nil, nil
}
