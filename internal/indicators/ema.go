package indicators

import (
	"fmt"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/types"
)

// EMAState carries the minimal state needed for an O(1) incremental update:
// the last computed value and the candle index it belongs to.
type EMAState struct {
	Index int
	Value float64
}

// EMA is a streaming exponential moving average over candle closes. The
// first value is seeded with the simple average of the first period candles,
// after which the standard recursive smoothing formula applies.
type EMA struct {
	period int
	alpha  float64
	last   *EMAState
}

// NewEMA creates an EMA calculator for the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

// Name implements Calculator.
func (e *EMA) Name() string {
	return fmt.Sprintf("ema_%d", e.period)
}

// MinCandles implements Calculator.
func (e *EMA) MinCandles() int {
	return e.period
}

// Reset drops held state; the next Calculate bootstraps from scratch.
func (e *EMA) Reset() {
	e.last = nil
}

// Calculate returns the EMA at index, or ok=false when fewer than period
// candles are available up to and including index.
//
// When prior is the state returned for index-1 the update is incremental;
// a nil prior falls back to the internally held state, and failing that the
// series is re-walked from the seed. The returned state is also held
// internally until Reset.
func (e *EMA) Calculate(candles []types.Candle, index int, prior *EMAState) (float64, *EMAState, bool) {
	if index < e.period-1 || index >= len(candles) {
		return 0, nil, false
	}

	if prior == nil {
		prior = e.last
	}
	if prior != nil && prior.Index == index-1 {
		state := &EMAState{
			Index: index,
			Value: (candles[index].Close-prior.Value)*e.alpha + prior.Value,
		}
		e.last = state
		return state.Value, state, true
	}

	// Bootstrap: seed with the simple average of the first period closes,
	// then roll the recursion forward to index.
	sum := 0.0
	for i := 0; i < e.period; i++ {
		sum += candles[i].Close
	}
	value := sum / float64(e.period)
	for i := e.period; i <= index; i++ {
		value = (candles[i].Close-value)*e.alpha + value
	}
	state := &EMAState{Index: index, Value: value}
	e.last = state
	return value, state, true
}
