package backtest

import (
	"math"
	"time"
)

// StrategyMetrics aggregates one strategy's performance across all simulated
// records. Percentages are whole numbers (12.5 means +12.5%); trade
// multiples use 1.0 as breakeven.
type StrategyMetrics struct {
	TotalPnlPercent float64
	WinRate         float64
	AvgWin          float64
	AvgLoss         float64
	ProfitFactor    float64
	SharpeRatio     float64
	MaxDrawdown     float64
	AvgHoldDuration time.Duration
	AvgTimeToAth    time.Duration
	TradeCount      int
}

// CalculateMetrics aggregates per-trade simulation results in their original
// order. Total P&L compounds the per-trade multiples; drawdown is
// peak-to-trough over that same cumulative product.
func CalculateMetrics(trades []*SimulationResult) StrategyMetrics {
	m := StrategyMetrics{TradeCount: len(trades)}
	if len(trades) == 0 {
		return m
	}

	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	returns := make([]float64, 0, len(trades))

	cumulative := 1.0
	peak := 1.0
	var holdSum, athSum time.Duration

	for _, t := range trades {
		mult := t.FinalPnl
		returns = append(returns, mult-1)

		if mult > 1 {
			wins++
			winSum += mult - 1
		} else {
			losses++
			lossSum += 1 - mult
		}

		cumulative *= mult
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 {
			dd := (peak - cumulative) / peak
			if dd > m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}

		holdSum += t.HoldDuration
		athSum += t.TimeToATH
	}

	m.TotalPnlPercent = (cumulative - 1) * 100
	m.WinRate = float64(wins) / float64(len(trades))
	if wins > 0 {
		m.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = lossSum / float64(losses)
	}
	if losses > 0 && m.AvgLoss > 0 {
		m.ProfitFactor = (m.AvgWin * float64(wins)) / (m.AvgLoss * float64(losses))
	}
	m.SharpeRatio = sharpe(returns)
	m.AvgHoldDuration = holdSum / time.Duration(len(trades))
	m.AvgTimeToAth = athSum / time.Duration(len(trades))
	return m
}

// sharpe is the simplified ratio of mean per-trade return to its standard
// deviation, 0 when the deviation vanishes.
func sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std < 1e-10 {
		return 0
	}
	return mean / std
}
