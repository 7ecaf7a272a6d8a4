// Package reporting renders optimization-run results for humans. Reporters
// consume run results read-only; nothing here feeds back into the core.
package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/curlyjoeyaknow/quantBot-sub000/internal/backtest"
)

// ConsoleReporter prints a ranked strategy table.
type ConsoleReporter struct {
	out  io.Writer
	topN int
}

// NewConsoleReporter creates a console reporter showing at most topN
// strategies (0 = all).
func NewConsoleReporter(out io.Writer, topN int) *ConsoleReporter {
	return &ConsoleReporter{out: out, topN: topN}
}

// Report renders the ranked strategies plus run counters.
func (r *ConsoleReporter) Report(run *backtest.OptimizationRunResult) {
	fmt.Fprintf(r.out, "\n📊 Optimization run %s\n", run.RunID)
	fmt.Fprintf(r.out, "   %d strategies · %d simulations · %d cache hits · %d skipped · %d failed · %s\n\n",
		len(run.Strategies), run.Simulations, run.CacheHits, run.Skipped, run.Failed,
		run.Elapsed.Round(time.Millisecond))

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Strategy", "PnL %", "Win Rate", "Profit Factor", "Sharpe", "Max DD", "Avg Hold", "Trades"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for i, perf := range run.Strategies {
		if r.topN > 0 && i >= r.topN {
			break
		}
		m := perf.Metrics
		t.AppendRow(table.Row{
			i + 1,
			perf.Strategy.Name,
			fmt.Sprintf("%.2f", m.TotalPnlPercent),
			fmt.Sprintf("%.1f%%", m.WinRate*100),
			fmt.Sprintf("%.2f", m.ProfitFactor),
			fmt.Sprintf("%.2f", m.SharpeRatio),
			fmt.Sprintf("%.1f%%", m.MaxDrawdown*100),
			m.AvgHoldDuration.Round(time.Second),
			m.TradeCount,
		})
	}
	t.Render()

	if run.Best != nil {
		fmt.Fprintf(r.out, "\n🏆 Best: %s (%.2f%% total PnL)\n",
			run.Best.Strategy.Name, run.Best.Metrics.TotalPnlPercent)
	}
}
