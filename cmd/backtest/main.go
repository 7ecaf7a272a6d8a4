// Command backtest runs a parameter-grid optimization over historical candle
// records and reports the ranked strategies. It is the composition root: the
// result cache, candle source and optimizer are constructed here and wired
// together explicitly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/curlyjoeyaknow/quantBot-sub000/internal/backtest"
	"github.com/curlyjoeyaknow/quantBot-sub000/internal/logger"
	"github.com/curlyjoeyaknow/quantBot-sub000/internal/monitoring"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/config"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/data"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/optimization"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/reporting"
)

type options struct {
	recordsPath   string
	dataDir       string
	format        string
	useBybit      bool
	bybitCategory string
	bybitInterval string
	gridPath      string
	basePath      string
	maxStrategies int
	maxConcurrent int
	minCandles    int
	cacheSize     int
	cacheTTL      time.Duration
	slippageBps   float64
	feeBps        float64
	topN          int
	excelPath     string
	metricsAddr   string
	logLevel      string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.recordsPath, "records", "records.json", "JSON file listing token records to simulate")
	flag.StringVar(&o.dataDir, "data-dir", "data", "directory of per-token candle files")
	flag.StringVar(&o.format, "format", "csv", "candle file format: csv or json")
	flag.BoolVar(&o.useBybit, "bybit", false, "fetch candles from Bybit instead of local files")
	flag.StringVar(&o.bybitCategory, "bybit-category", envOr("BYBIT_CATEGORY", "spot"), "bybit market category")
	flag.StringVar(&o.bybitInterval, "bybit-interval", envOr("BYBIT_INTERVAL", "1"), "bybit kline interval")
	flag.StringVar(&o.gridPath, "grid", "", "optional JSON parameter grid (built-in defaults when empty)")
	flag.StringVar(&o.basePath, "base", "", "optional base strategy JSON merged into every combination")
	flag.IntVar(&o.maxStrategies, "max-strategies", 0, "cap on generated strategies, 0 = unlimited")
	flag.IntVar(&o.maxConcurrent, "max-concurrent", 1, "in-flight simulations per batch")
	flag.IntVar(&o.minCandles, "min-candles", 10, "minimum candles per record")
	flag.IntVar(&o.cacheSize, "cache-size", 1000, "result cache capacity")
	flag.DurationVar(&o.cacheTTL, "cache-ttl", time.Hour, "result cache entry TTL")
	flag.Float64Var(&o.slippageBps, "slippage-bps", 50, "slippage in basis points per fill")
	flag.Float64Var(&o.feeBps, "fee-bps", 25, "taker fee in basis points per fill")
	flag.IntVar(&o.topN, "top", 20, "strategies to show in the console table, 0 = all")
	flag.StringVar(&o.excelPath, "excel", "", "optional xlsx output path")
	flag.StringVar(&o.metricsAddr, "metrics-addr", "", "optional prometheus listen address, e.g. :9090")
	flag.StringVar(&o.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")
	flag.Parse()
	return o
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// recordSpec is one line of the records file.
type recordSpec struct {
	Token   string `json:"token"`
	AlertAt int64  `json:"alert_at"`
}

func loadRecords(path string) ([]backtest.DataRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records file: %w", err)
	}
	var specs []recordSpec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("parsing records file %s: %w", path, err)
	}
	records := make([]backtest.DataRecord, 0, len(specs))
	for _, s := range specs {
		records = append(records, backtest.DataRecord{
			Token:   s.Token,
			AlertAt: time.Unix(s.AlertAt, 0).UTC(),
		})
	}
	return records, nil
}

func loadGrid(path string) (optimization.ParameterGrid, error) {
	var grid optimization.ParameterGrid
	if path == "" {
		return grid, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return grid, fmt.Errorf("reading grid file: %w", err)
	}
	if err := json.Unmarshal(raw, &grid); err != nil {
		return grid, fmt.Errorf("parsing grid file %s: %w", path, err)
	}
	return grid, nil
}

func run() error {
	// Missing .env is fine; flags and real env still apply.
	_ = godotenv.Load()
	o := parseFlags()

	log := logger.New("backtest", o.logLevel)

	records, err := loadRecords(o.recordsPath)
	if err != nil {
		return err
	}
	grid, err := loadGrid(o.gridPath)
	if err != nil {
		return err
	}
	var base *config.StrategyConfig
	if o.basePath != "" {
		base, err = config.LoadStrategyConfig(o.basePath)
		if err != nil {
			return err
		}
	}

	var source backtest.CandleSource
	if o.useBybit {
		source = data.NewBybitSource(data.BybitConfig{
			Category: o.bybitCategory,
			Interval: o.bybitInterval,
		}, logger.New("bybit", o.logLevel))
	} else {
		var provider data.Provider
		switch o.format {
		case "json":
			provider = data.NewJSONProvider()
		default:
			provider = data.NewCSVProvider(logger.New("csv", o.logLevel))
		}
		cached := data.NewCachedProvider(provider, logger.New("data", o.logLevel))
		source = data.NewFileSource(o.dataDir, o.format, cached)
	}

	if o.metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", monitoring.Handler())
			if err := http.ListenAndServe(o.metricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	cache := backtest.NewResultCache(o.cacheSize, o.cacheTTL)
	optimizer := backtest.NewOptimizer(backtest.OptimizerConfig{
		Grid:          grid,
		BaseStrategy:  base,
		MaxStrategies: o.maxStrategies,
		MaxConcurrent: o.maxConcurrent,
		MinCandles:    o.minCandles,
		Costs: backtest.CostModel{
			SlippageBps: o.slippageBps,
			TakerFeeBps: o.feeBps,
		},
	}, cache, source, logger.New("optimizer", o.logLevel))

	runResult, err := optimizer.Optimize(context.Background(), records)
	if err != nil {
		return err
	}

	reporting.NewConsoleReporter(os.Stdout, o.topN).Report(runResult)
	if o.excelPath != "" {
		if err := reporting.NewExcelReporter(o.excelPath).Report(runResult); err != nil {
			return err
		}
		log.Info().Str("path", o.excelPath).Msg("wrote workbook")
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
