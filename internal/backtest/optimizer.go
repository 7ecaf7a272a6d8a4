package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/curlyjoeyaknow/quantBot-sub000/internal/monitoring"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/config"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/optimization"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

const (
	defaultMinCandles    = 10
	defaultMaxConcurrent = 1
)

// DataRecord is one historical observation to simulate: a token, the alert
// timestamp the candles are anchored to, and optionally the preloaded series.
// When Candles is nil the optimizer fetches them through its CandleSource.
type DataRecord struct {
	Token   string
	AlertAt time.Time
	Candles []types.Candle
}

// CandleSource is the external fetch collaborator. Implementations may block
// on I/O; the engine itself never does.
type CandleSource interface {
	Candles(ctx context.Context, token string, alertAt time.Time) ([]types.Candle, error)
}

// OptimizerConfig drives one grid run.
type OptimizerConfig struct {
	Grid          optimization.ParameterGrid
	BaseStrategy  *config.StrategyConfig
	MaxStrategies int // 0 = no cap; otherwise truncates candidates from the front
	MaxConcurrent int // in-flight simulations per batch, default 1
	MinCandles    int // records with fewer candles are skipped, default 10
	Costs         CostModel
}

// StrategyPerformance is one strategy's aggregate outcome over all records.
type StrategyPerformance struct {
	Strategy *config.StrategyConfig
	Metrics  StrategyMetrics
	Trades   []*SimulationResult
}

// OptimizationRunResult is the immutable outcome of one Optimize call.
// Strategies are ordered by total P&L descending; ties keep enumeration
// order, so Best is always the first entry.
type OptimizationRunResult struct {
	RunID       string
	Strategies  []StrategyPerformance
	Best        *StrategyPerformance
	Simulations int
	CacheHits   int
	Skipped     int
	Failed      int
	Elapsed     time.Duration
}

// Optimizer runs the simulation engine over every (strategy, record) pair.
// The cache and candle source are injected by the composition root; the
// optimizer never reaches for ambient state.
type Optimizer struct {
	cfg    OptimizerConfig
	cache  *ResultCache
	source CandleSource
	log    zerolog.Logger
}

// NewOptimizer wires an optimizer. cache may be nil to disable memoization
// and source may be nil when every record carries preloaded candles.
func NewOptimizer(cfg OptimizerConfig, cache *ResultCache, source CandleSource, log zerolog.Logger) *Optimizer {
	if cfg.MinCandles <= 0 {
		cfg.MinCandles = defaultMinCandles
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	return &Optimizer{cfg: cfg, cache: cache, source: source, log: log}
}

// recordOutcome is the per-slot result of one (strategy, record) task.
// Slots are pre-allocated per batch so concurrent tasks never share state.
type recordOutcome struct {
	trade    *SimulationResult
	cacheHit bool
	skipped  bool
	failed   bool
}

// Optimize enumerates the grid, simulates every retained strategy against
// every record in bounded batches, and ranks strategies by total P&L.
// Individual record failures never abort the batch.
func (o *Optimizer) Optimize(ctx context.Context, records []DataRecord) (*OptimizationRunResult, error) {
	start := time.Now()
	run := &OptimizationRunResult{RunID: uuid.NewString()}

	candidates := optimization.Combinations(o.cfg.Grid, o.cfg.BaseStrategy)
	if o.cfg.MaxStrategies > 0 && len(candidates) > o.cfg.MaxStrategies {
		candidates = candidates[:o.cfg.MaxStrategies]
	}

	strategies := candidates[:0]
	for _, s := range candidates {
		if err := s.Validate(); err != nil {
			o.log.Warn().Str("strategy", s.Name).Err(err).Msg("skipping invalid strategy")
			continue
		}
		strategies = append(strategies, s)
	}

	o.log.Info().
		Str("run_id", run.RunID).
		Int("strategies", len(strategies)).
		Int("records", len(records)).
		Int("max_concurrent", o.cfg.MaxConcurrent).
		Msg("starting optimization run")

	for _, strat := range strategies {
		perf := StrategyPerformance{Strategy: strat}

		for batchStart := 0; batchStart < len(records); batchStart += o.cfg.MaxConcurrent {
			batchEnd := batchStart + o.cfg.MaxConcurrent
			if batchEnd > len(records) {
				batchEnd = len(records)
			}
			batch := records[batchStart:batchEnd]
			outcomes := make([]recordOutcome, len(batch))

			// Each batch settles fully before the next is admitted, which
			// bounds both memory and fetch-rate pressure.
			var g errgroup.Group
			for i := range batch {
				i := i
				g.Go(func() error {
					outcomes[i] = o.runRecord(ctx, strat, batch[i])
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}

			for _, out := range outcomes {
				switch {
				case out.skipped:
					run.Skipped++
				case out.failed:
					run.Failed++
				default:
					perf.Trades = append(perf.Trades, out.trade)
					run.Simulations++
					if out.cacheHit {
						run.CacheHits++
					}
				}
			}
		}

		perf.Metrics = CalculateMetrics(perf.Trades)
		run.Strategies = append(run.Strategies, perf)
	}

	sort.SliceStable(run.Strategies, func(i, j int) bool {
		return run.Strategies[i].Metrics.TotalPnlPercent > run.Strategies[j].Metrics.TotalPnlPercent
	})
	if len(run.Strategies) > 0 {
		run.Best = &run.Strategies[0]
	}
	run.Elapsed = time.Since(start)

	o.log.Info().
		Str("run_id", run.RunID).
		Int("simulations", run.Simulations).
		Int("cache_hits", run.CacheHits).
		Int("skipped", run.Skipped).
		Int("failed", run.Failed).
		Dur("elapsed", run.Elapsed).
		Msg("optimization run complete")
	return run, nil
}

// runRecord simulates one strategy over one record, consulting the cache
// first. Panics from the engine are recovered into the failure counter so a
// single bad record cannot sink its siblings.
func (o *Optimizer) runRecord(ctx context.Context, strat *config.StrategyConfig, rec DataRecord) (out recordOutcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Str("token", rec.Token).Interface("panic", r).Msg("simulation panicked")
			monitoring.RecordRecordOutcome("failed")
			out = recordOutcome{failed: true}
		}
	}()

	if rec.Token == "" || rec.AlertAt.IsZero() {
		monitoring.RecordRecordOutcome("skipped")
		return recordOutcome{skipped: true}
	}

	candles := rec.Candles
	if candles == nil {
		if o.source == nil {
			monitoring.RecordRecordOutcome("skipped")
			return recordOutcome{skipped: true}
		}
		fetched, err := o.source.Candles(ctx, rec.Token, rec.AlertAt)
		if err != nil {
			o.log.Warn().Str("token", rec.Token).Err(err).Msg("candle fetch failed")
			monitoring.RecordRecordOutcome("failed")
			return recordOutcome{failed: true}
		}
		candles = fetched
	}
	if len(candles) < o.cfg.MinCandles {
		monitoring.RecordRecordOutcome("skipped")
		return recordOutcome{skipped: true}
	}

	window := types.WindowFor(rec.Token, candles)
	var key string
	if o.cache != nil {
		key = GenerateCacheKey(strat, window)
		if cached := o.cache.Get(key); cached != nil {
			monitoring.RecordCacheLookup(true)
			monitoring.RecordRecordOutcome("simulated")
			return recordOutcome{trade: cached, cacheHit: true}
		}
		monitoring.RecordCacheLookup(false)
	}

	simStart := time.Now()
	result := Simulate(candles, strat, o.cfg.Costs)
	monitoring.RecordSimulation(time.Since(simStart).Seconds())
	monitoring.RecordRecordOutcome("simulated")

	if o.cache != nil {
		o.cache.Set(key, result)
	}
	return recordOutcome{trade: result}
}

// String summarises a run for logs.
func (r *OptimizationRunResult) String() string {
	best := "none"
	if r.Best != nil {
		best = fmt.Sprintf("%s (%.2f%%)", r.Best.Strategy.Name, r.Best.Metrics.TotalPnlPercent)
	}
	return fmt.Sprintf("run %s: %d strategies, %d simulations, best %s",
		r.RunID, len(r.Strategies), r.Simulations, best)
}
