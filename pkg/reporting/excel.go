package reporting

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/curlyjoeyaknow/quantBot-sub000/internal/backtest"
)

const (
	summarySheet = "Summary"
	tradesSheet  = "Trades"
)

// ExcelReporter writes an optimization run to an xlsx workbook: one summary
// sheet ranking strategies, one sheet listing the best strategy's trades.
type ExcelReporter struct {
	path string
}

// NewExcelReporter creates an Excel reporter targeting the given file path.
func NewExcelReporter(path string) *ExcelReporter {
	return &ExcelReporter{path: path}
}

// Report writes the workbook.
func (r *ExcelReporter) Report(run *backtest.OptimizationRunResult) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)
	if err := r.writeSummary(f, run); err != nil {
		return err
	}
	if run.Best != nil {
		if _, err := f.NewSheet(tradesSheet); err != nil {
			return fmt.Errorf("creating trades sheet: %w", err)
		}
		if err := r.writeTrades(f, run.Best); err != nil {
			return err
		}
	}

	if err := f.SaveAs(r.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", r.path, err)
	}
	return nil
}

func (r *ExcelReporter) writeSummary(f *excelize.File, run *backtest.OptimizationRunResult) error {
	header := []interface{}{"Rank", "Strategy", "Total PnL %", "Win Rate", "Avg Win", "Avg Loss",
		"Profit Factor", "Sharpe", "Max Drawdown", "Avg Hold (min)", "Avg Time To ATH (min)", "Trades"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("writing summary header: %w", err)
	}

	for i, perf := range run.Strategies {
		m := perf.Metrics
		row := []interface{}{
			i + 1,
			perf.Strategy.Name,
			m.TotalPnlPercent,
			m.WinRate,
			m.AvgWin,
			m.AvgLoss,
			m.ProfitFactor,
			m.SharpeRatio,
			m.MaxDrawdown,
			m.AvgHoldDuration.Minutes(),
			m.AvgTimeToAth.Minutes(),
			m.TradeCount,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *ExcelReporter) writeTrades(f *excelize.File, best *backtest.StrategyPerformance) error {
	header := []interface{}{"Trade", "Entry Time", "Entry Price", "Final Price", "PnL Multiple",
		"Candles", "Events", "Hold (min)", "Time To ATH (min)"}
	if err := f.SetSheetRow(tradesSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing trades header: %w", err)
	}

	for i, trade := range best.Trades {
		row := []interface{}{
			i + 1,
			trade.EntryTime.Format(time.RFC3339),
			trade.EntryPrice,
			trade.FinalPrice,
			trade.FinalPnl,
			trade.TotalCandles,
			len(trade.Events),
			trade.HoldDuration.Minutes(),
			trade.TimeToATH.Minutes(),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(tradesSheet, cell, &row); err != nil {
			return fmt.Errorf("writing trade row %d: %w", i+1, err)
		}
	}
	return nil
}
