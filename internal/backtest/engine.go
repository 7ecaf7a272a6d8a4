package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/curlyjoeyaknow/quantBot-sub000/internal/indicators"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/config"
	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// sizeEpsilon is the open-size threshold below which a position counts as
// fully closed.
const sizeEpsilon = 1e-9

// position is the mutable state of one open tranche. It is owned exclusively
// by a single Simulate call and never shared.
type position struct {
	entryPrice float64 // raw price of the tranche's first fill
	entryEff   float64 // slippage-adjusted average entry across open fills
	size       float64 // open fraction of original notional
	entered    float64 // cumulative entered within this tranche
	scale      float64 // tranche size relative to original notional
	stop       float64 // current stop price, 0 = none
	targetHit  []bool
	entryTime  time.Time
}

// simulation is the walk state for one engine run.
type simulation struct {
	candles  []types.Candle
	strategy *config.StrategyConfig
	costs    CostModel

	events       []SimulationEvent
	realized     float64 // sum of size*multiple over closed portions
	totalEntered float64
	pos          *position
	reEntries    int

	// ladder leg counters survive re-entries unless the strategy resets them
	entryLegUsed []bool
	exitLegUsed  []bool

	lastExitPrice float64
	lastExitIdx   int

	macd      *indicators.MACD
	macdState *indicators.MACDState

	entryTime time.Time
	endTime   time.Time
	athPrice  float64
	athTime   time.Time
}

// Simulate runs one strategy over one candle series and returns the
// deterministic trade trace. Identical inputs always produce identical
// results; the engine holds no state between calls.
//
// The candle series must be strictly increasing in timestamp and contain
// only finite prices; sanitizing is the data layer's job. An empty series
// returns a zero result rather than an error.
func Simulate(candles []types.Candle, strategy *config.StrategyConfig, costs CostModel) *SimulationResult {
	result := &SimulationResult{TotalCandles: len(candles)}
	if len(candles) == 0 {
		return result
	}

	s := &simulation{
		candles:      candles,
		strategy:     strategy,
		costs:        costs,
		entryLegUsed: make([]bool, len(strategy.EntryLadder)),
		exitLegUsed:  make([]bool, len(strategy.ExitLadder)),
		lastExitIdx:  -1,
	}

	entryIdx, entryPrice, lowestSeen := resolveEntry(candles, strategy.Entry)

	if sig := strategy.Signal; sig != nil {
		s.macd = indicators.NewMACD(sig.FastPeriod, sig.SlowPeriod, sig.SignalPeriod)
		idx, price, low, ok := s.waitForBullishCross(entryIdx)
		if !ok {
			// Signal never fired: nothing was risked, nothing was earned.
			result.FinalPnl = 1.0
			result.FinalPrice = candles[len(candles)-1].Close
			result.EntryOptimization = EntryOptimization{LowestPriceSeen: low}
			return result
		}
		entryIdx, entryPrice = idx, price
		if low < lowestSeen {
			lowestSeen = low
		}
	}

	s.entryTime = candles[entryIdx].Timestamp
	s.athPrice = entryPrice
	s.athTime = s.entryTime
	s.openPosition(entryIdx, entryPrice, 1.0, EventEntry)

	s.walk(entryIdx)

	last := candles[len(candles)-1]
	if s.pos != nil {
		// Mark the leftover size to market at the final close.
		amount := s.pos.size
		s.realize(amount, last.Close)
		s.pos.size = 0
		s.emit(EventMarkToMarket, last.Timestamp, last.Close,
			fmt.Sprintf("marked %.4f to market at %.6f", amount, last.Close))
		s.endTime = last.Timestamp
		s.pos = nil
	}

	result.EntryPrice = entryPrice
	result.EntryTime = s.entryTime
	result.FinalPrice = last.Close
	result.Events = s.events
	result.EntryOptimization = EntryOptimization{
		LowestPriceSeen:  lowestSeen,
		ActualEntryPrice: entryPrice,
	}
	result.ATHPrice = s.athPrice
	result.TimeToATH = s.athTime.Sub(s.entryTime)
	result.HoldDuration = s.endTime.Sub(s.entryTime)
	if s.totalEntered > sizeEpsilon {
		result.FinalPnl = s.realized / s.totalEntered
	}
	return result
}

// resolveEntry picks the entry candle and fill price. With no entry config
// the position opens at the first candle's open; a trailing entry waits up
// to the configured window for the lowest low and fills at an offset from it.
func resolveEntry(candles []types.Candle, entry *config.EntryConfig) (idx int, price, lowest float64) {
	first := candles[0]
	switch {
	case entry == nil || (entry.InitialOffset == nil && entry.TrailingOffset == nil):
		return 0, first.Open, first.Open
	case entry.InitialOffset != nil:
		p := first.Open * (1 + *entry.InitialOffset)
		return 0, p, p
	default:
		deadline := first.Timestamp.Add(time.Duration(entry.MaxWaitMinutes) * time.Minute)
		minLow := math.Inf(1)
		minIdx := 0
		for i, c := range candles {
			if c.Timestamp.After(deadline) {
				break
			}
			if c.Low < minLow {
				minLow = c.Low
				minIdx = i
			}
		}
		return minIdx, minLow * (1 + *entry.TrailingOffset), minLow
	}
}

// waitForBullishCross defers entry until the MACD crosses bullish, entering
// at that candle's close. It reports the lowest low seen while waiting.
func (s *simulation) waitForBullishCross(from int) (idx int, price, lowest float64, ok bool) {
	lowest = math.Inf(1)
	for i := from; i < len(s.candles); i++ {
		c := s.candles[i]
		if c.Low < lowest {
			lowest = c.Low
		}
		value, state, valid := s.macd.Calculate(s.candles, i, s.macdState)
		if !valid {
			continue
		}
		s.macdState = state
		if value.BullishCross {
			return i, c.Close, lowest, true
		}
	}
	return 0, 0, lowest, false
}

// walk iterates candles from the entry index applying, per candle: stop
// check, trailing ratchet, profit targets, ladder exits, ladder entries,
// signal exit, then re-entry when flat. Stops take precedence over targets
// within the same candle.
func (s *simulation) walk(entryIdx int) {
	for i := entryIdx; i < len(s.candles); i++ {
		c := s.candles[i]
		bearish := s.updateSignal(i)

		if s.pos != nil {
			if c.High > s.athPrice {
				s.athPrice = c.High
				s.athTime = c.Timestamp
			}

			if s.stopCheck(c, i) {
				if !s.canReEnter() {
					return
				}
				continue
			}
			s.trailingRatchet(c)
			s.profitTargets(c, i)
			if s.pos != nil {
				s.ladderExits(c, i)
			}
			if s.pos != nil {
				s.ladderEntries(c)
			}
			if s.pos != nil && bearish && s.strategy.Signal.ExitOnBearish {
				s.closeAll(c.Close, c.Timestamp, i, EventSignalExit,
					fmt.Sprintf("bearish cross closed %.4f at %.6f", s.pos.size, c.Close))
			}
			if s.pos == nil && !s.canReEnter() {
				return
			}
			continue
		}

		if s.canReEnter() && i > s.lastExitIdx {
			s.tryReEntry(c, i)
		}
	}
}

// updateSignal advances the MACD state by one candle and reports a bearish
// cross at this index.
func (s *simulation) updateSignal(i int) bool {
	if s.macd == nil {
		return false
	}
	value, state, ok := s.macd.Calculate(s.candles, i, s.macdState)
	if !ok {
		return false
	}
	s.macdState = state
	return value.BearishCross
}

// stopCheck closes the remaining position at the stop price when the candle
// low breaches it. Returns true when a stop-out happened.
func (s *simulation) stopCheck(c types.Candle, i int) bool {
	if s.pos.stop <= 0 || c.Low > s.pos.stop {
		return false
	}
	s.closeAll(s.pos.stop, c.Timestamp, i, EventStopLoss,
		fmt.Sprintf("stop loss closed %.4f at %.6f", s.pos.size, s.pos.stop))
	return true
}

// trailingRatchet arms past the activation multiple and only ever tightens
// the stop.
func (s *simulation) trailingRatchet(c types.Candle) {
	sl := s.strategy.StopLoss
	if sl == nil || sl.TrailingActivation <= 0 {
		return
	}
	if c.High < s.pos.entryPrice*sl.TrailingActivation {
		return
	}
	candidate := c.High * (1 - sl.TrailingPercent)
	if candidate > s.pos.stop {
		s.pos.stop = candidate
		s.emit(EventStopMoved, c.Timestamp, candidate,
			fmt.Sprintf("stop raised to %.6f", candidate))
	}
}

// profitTargets fills unhit legs, in configured order, whose target multiple
// the candle high reaches. Zero-percent legs still emit their event.
func (s *simulation) profitTargets(c types.Candle, i int) {
	for li := range s.strategy.ProfitTargets {
		leg := s.strategy.ProfitTargets[li]
		if s.pos.targetHit[li] || c.High < s.pos.entryPrice*leg.Target {
			continue
		}
		s.pos.targetHit[li] = true
		price := s.pos.entryPrice * leg.Target
		amount := math.Min(leg.Percent*s.pos.scale, s.pos.size)
		s.realize(amount, price)
		s.pos.size -= amount
		s.emit(EventTargetHit, c.Timestamp, price,
			fmt.Sprintf("target %.2fx filled %.4f at %.6f", leg.Target, amount, price))
		if s.pos.size <= sizeEpsilon {
			s.markClosed(price, c.Timestamp, i)
			return
		}
	}
}

// ladderExits fills unspent exit-ladder legs whose trigger the candle high
// reaches.
func (s *simulation) ladderExits(c types.Candle, i int) {
	for li := range s.strategy.ExitLadder {
		leg := s.strategy.ExitLadder[li]
		trigger := s.pos.entryPrice * (1 + leg.Offset)
		if s.exitLegUsed[li] || c.High < trigger {
			continue
		}
		s.exitLegUsed[li] = true
		amount := math.Min(leg.Percent*s.pos.scale, s.pos.size)
		s.realize(amount, trigger)
		s.pos.size -= amount
		s.emit(EventLadderExit, c.Timestamp, trigger,
			fmt.Sprintf("ladder exit filled %.4f at %.6f", amount, trigger))
		if s.pos.size <= sizeEpsilon {
			s.markClosed(trigger, c.Timestamp, i)
			return
		}
	}
}

// ladderEntries fills unspent entry-ladder legs whose trigger the candle low
// reaches, never letting the tranche exceed its notional cap.
func (s *simulation) ladderEntries(c types.Candle) {
	for li := range s.strategy.EntryLadder {
		leg := s.strategy.EntryLadder[li]
		trigger := s.pos.entryPrice * (1 + leg.Offset)
		if s.entryLegUsed[li] || c.Low > trigger {
			continue
		}
		capacity := s.pos.scale - s.pos.entered
		if capacity <= sizeEpsilon {
			return
		}
		s.entryLegUsed[li] = true
		amount := math.Min(leg.Percent*s.pos.scale, capacity)
		s.fill(amount, trigger)
		s.emit(EventLadderEntry, c.Timestamp, trigger,
			fmt.Sprintf("ladder entry filled %.4f at %.6f", amount, trigger))
	}
}

// tryReEntry re-opens after a full exit once price retraces far enough from
// the exit. The new tranche gets a fresh stop and fresh target state derived
// from the original configuration.
func (s *simulation) tryReEntry(c types.Candle, i int) {
	r := s.strategy.ReEntry
	trigger := s.lastExitPrice * (1 - r.TrailingReEntry)
	if c.Low > trigger {
		return
	}
	s.reEntries++
	if r.ResetLadderLegs {
		for li := range s.entryLegUsed {
			s.entryLegUsed[li] = false
		}
		for li := range s.exitLegUsed {
			s.exitLegUsed[li] = false
		}
	}
	s.openPosition(i, trigger, r.SizePercent, EventReEntry)
}

// openPosition opens a tranche at the given raw price. When unspent
// entry-ladder legs exist, their share of the tranche is held back for
// ladder fills.
func (s *simulation) openPosition(i int, price, scale float64, kind string) {
	base := scale
	for li, leg := range s.strategy.EntryLadder {
		if !s.entryLegUsed[li] {
			base -= leg.Percent * scale
		}
	}
	if base < 0 {
		base = 0
	}

	pos := &position{
		entryPrice: price,
		entryEff:   s.costs.BuyPrice(price),
		scale:      scale,
		targetHit:  make([]bool, len(s.strategy.ProfitTargets)),
		entryTime:  s.candles[i].Timestamp,
	}
	if sl := s.strategy.StopLoss; sl != nil && sl.Initial < 0 {
		pos.stop = price * (1 + sl.Initial)
	}
	s.pos = pos
	s.fill(base, price)
	s.emit(kind, s.candles[i].Timestamp, price,
		fmt.Sprintf("entered %.4f at %.6f", base, price))
}

// fill adds size at a raw price, updating the cost-adjusted average entry.
func (s *simulation) fill(amount, price float64) {
	if amount <= 0 {
		return
	}
	eff := s.costs.BuyPrice(price)
	p := s.pos
	p.entryEff = (p.entryEff*p.size + eff*amount) / (p.size + amount)
	p.size += amount
	p.entered += amount
	s.totalEntered += amount
}

// realize books the cost-adjusted proceeds of exiting amount at a raw price.
func (s *simulation) realize(amount, price float64) {
	if amount <= 0 {
		return
	}
	s.realized += amount * (s.costs.SellPrice(price) / s.pos.entryEff) * s.costs.RoundTripFees()
}

// closeAll exits the remaining size at a raw price and flattens.
func (s *simulation) closeAll(price float64, ts time.Time, i int, kind, desc string) {
	amount := s.pos.size
	s.realize(amount, price)
	s.pos.size = 0
	s.emit(kind, ts, price, desc)
	s.markClosed(price, ts, i)
}

// markClosed records the full exit so re-entry tracking starts from it.
func (s *simulation) markClosed(price float64, ts time.Time, i int) {
	s.pos = nil
	s.lastExitPrice = price
	s.lastExitIdx = i
	s.endTime = ts
}

func (s *simulation) emit(kind string, ts time.Time, price float64, desc string) {
	remaining := 0.0
	if s.pos != nil {
		remaining = s.pos.size
	}
	s.events = append(s.events, SimulationEvent{
		Type:              kind,
		Timestamp:         ts,
		Price:             price,
		Description:       desc,
		RemainingPosition: remaining,
		PnlSoFar:          s.realized,
	})
}

func (s *simulation) canReEnter() bool {
	r := s.strategy.ReEntry
	return r != nil && s.reEntries < r.MaxReEntries
}
