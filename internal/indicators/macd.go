package indicators

import (
	"fmt"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// MACDValue is the indicator output at one candle. The cross flags compare
// the spread line against the signal line at consecutive indices, so they
// are only ever true from the second valid index onward.
type MACDValue struct {
	MACD         float64
	Signal       float64
	Histogram    float64
	BullishCross bool
	BearishCross bool
}

// MACDState threads the three underlying exponential averages plus the
// previous line values needed for cross detection.
type MACDState struct {
	Index      int
	FastEMA    float64
	SlowEMA    float64
	Signal     float64
	PrevMACD   float64
	PrevSignal float64
	HasPrev    bool
}

// MACD is a streaming moving-average convergence/divergence calculator:
// spread of a fast and slow EMA over closes, smoothed by a signal EMA of the
// spread itself.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
	fastAlpha    float64
	slowAlpha    float64
	signalAlpha  float64
	last         *MACDState
}

// NewMACD creates a MACD calculator with the given fast, slow and signal
// periods.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
		fastAlpha:    2.0 / float64(fast+1),
		slowAlpha:    2.0 / float64(slow+1),
		signalAlpha:  2.0 / float64(signal+1),
	}
}

// Name implements Calculator.
func (m *MACD) Name() string {
	return fmt.Sprintf("macd_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

// MinCandles implements Calculator. The spread line first exists once the
// slow EMA is seeded; the signal line needs signalPeriod spread values on
// top of that.
func (m *MACD) MinCandles() int {
	return m.slowPeriod + m.signalPeriod - 1
}

// Reset drops held state; the next Calculate bootstraps from scratch.
func (m *MACD) Reset() {
	m.last = nil
}

// Calculate returns the MACD value at index, or ok=false below MinCandles.
// Passing the state returned for index-1 makes the update incremental.
func (m *MACD) Calculate(candles []types.Candle, index int, prior *MACDState) (*MACDValue, *MACDState, bool) {
	if index < m.MinCandles()-1 || index >= len(candles) {
		return nil, nil, false
	}

	if prior == nil {
		prior = m.last
	}
	if prior != nil && prior.Index == index-1 {
		value, state := m.step(candles[index].Close, prior, index)
		m.last = state
		return value, state, true
	}
	value, state := m.bootstrap(candles, index)
	m.last = state
	return value, state, true
}

// step advances all three averages by one close.
func (m *MACD) step(close float64, prior *MACDState, index int) (*MACDValue, *MACDState) {
	fast := (close-prior.FastEMA)*m.fastAlpha + prior.FastEMA
	slow := (close-prior.SlowEMA)*m.slowAlpha + prior.SlowEMA
	macd := fast - slow
	signal := (macd-prior.Signal)*m.signalAlpha + prior.Signal

	value := &MACDValue{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
	if prior.HasPrev {
		value.BullishCross = prior.PrevMACD <= prior.PrevSignal && macd > signal
		value.BearishCross = prior.PrevMACD >= prior.PrevSignal && macd < signal
	}
	state := &MACDState{
		Index:      index,
		FastEMA:    fast,
		SlowEMA:    slow,
		Signal:     signal,
		PrevMACD:   macd,
		PrevSignal: signal,
		HasPrev:    true,
	}
	return value, state
}

// bootstrap rebuilds the full state from the start of the window. The fast
// and slow EMAs seed with simple averages over their opening windows; the
// signal EMA seeds with a simple average of the first signalPeriod spread
// values.
func (m *MACD) bootstrap(candles []types.Candle, index int) (*MACDValue, *MACDState) {
	fast := seedAverage(candles, m.fastPeriod)
	for i := m.fastPeriod; i < m.slowPeriod; i++ {
		fast = (candles[i].Close-fast)*m.fastAlpha + fast
	}
	slow := seedAverage(candles, m.slowPeriod)

	// Spread values exist from slowPeriod-1 on; the signal line seeds with
	// a simple average of the first signalPeriod of them.
	macd := fast - slow
	macdSum := 0.0
	spreadCount := 0
	signal := 0.0
	signalReady := false

	var value *MACDValue
	var prevMACD, prevSignal float64
	hasPrev := false

	for i := m.slowPeriod - 1; i <= index; i++ {
		if i > m.slowPeriod-1 {
			close := candles[i].Close
			fast = (close-fast)*m.fastAlpha + fast
			slow = (close-slow)*m.slowAlpha + slow
			macd = fast - slow
		}

		spreadCount++
		if !signalReady {
			macdSum += macd
			if spreadCount == m.signalPeriod {
				signal = macdSum / float64(m.signalPeriod)
				signalReady = true
			}
		} else {
			signal = (macd-signal)*m.signalAlpha + signal
		}

		if signalReady {
			value = &MACDValue{
				MACD:      macd,
				Signal:    signal,
				Histogram: macd - signal,
			}
			if hasPrev {
				value.BullishCross = prevMACD <= prevSignal && macd > signal
				value.BearishCross = prevMACD >= prevSignal && macd < signal
			}
			prevMACD, prevSignal = macd, signal
			hasPrev = true
		}
	}

	state := &MACDState{
		Index:      index,
		FastEMA:    fast,
		SlowEMA:    slow,
		Signal:     signal,
		PrevMACD:   prevMACD,
		PrevSignal: prevSignal,
		HasPrev:    true,
	}
	return value, state
}

func seedAverage(candles []types.Candle, period int) float64 {
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}
