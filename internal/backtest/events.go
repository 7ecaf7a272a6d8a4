package backtest

import "time"

// Event types emitted by the simulation engine, in the order they can occur
// within one candle: stop handling precedes profit-taking, which precedes
// ladder fills and re-entries.
const (
	EventEntry        = "entry"
	EventLadderEntry  = "ladder_entry"
	EventStopMoved    = "stop_moved"
	EventStopLoss     = "stop_loss"
	EventTargetHit    = "target_hit"
	EventLadderExit   = "ladder_exit"
	EventSignalExit   = "signal_exit"
	EventReEntry      = "re_entry"
	EventMarkToMarket = "mark_to_market"
)

// SimulationEvent is one entry in the append-only trade trace.
// RemainingPosition is the open size fraction after the event; PnlSoFar is
// the cumulative realized notional (original position = 1.0 scale).
type SimulationEvent struct {
	Type              string
	Timestamp         time.Time
	Price             float64
	Description       string
	RemainingPosition float64
	PnlSoFar          float64
}

// EntryOptimization records what the entry resolution saw: the lowest price
// observed during the wait window and the price actually filled.
type EntryOptimization struct {
	LowestPriceSeen  float64
	ActualEntryPrice float64
}

// SimulationResult is the immutable outcome of one engine run. FinalPnl is a
// multiple of entered notional (1.0 = breakeven); an empty candle series
// yields 0 with no events.
type SimulationResult struct {
	EntryPrice        float64
	EntryTime         time.Time
	FinalPrice        float64
	FinalPnl          float64
	TotalCandles      int
	Events            []SimulationEvent
	EntryOptimization EntryOptimization
	HoldDuration      time.Duration
	TimeToATH         time.Duration
	ATHPrice          float64
}

// CostModel applies slippage and taker fees to every fill. Slippage always
// works against the trader; the fee is deducted from notional on both sides
// of a round trip.
type CostModel struct {
	SlippageBps float64
	TakerFeeBps float64
}

// BuyPrice is the effective price paid when entering at a raw price.
func (c CostModel) BuyPrice(price float64) float64 {
	return price * (1 + c.SlippageBps/10000)
}

// SellPrice is the effective price received when exiting at a raw price.
func (c CostModel) SellPrice(price float64) float64 {
	return price * (1 - c.SlippageBps/10000)
}

// RoundTripFees is the notional factor left after the entry and exit fees.
func (c CostModel) RoundTripFees() float64 {
	f := 1 - c.TakerFeeBps/10000
	return f * f
}
