// Package indicators provides stateful streaming indicator calculators.
//
// Every calculator follows the same contract: below MinCandles() it reports
// no value (never an error, never a panic); at or past the threshold it
// returns a value plus an opaque-to-the-caller state. Passing the state from
// index i back in at index i+1 upgrades the call to an O(1) incremental
// update; passing nil state re-bootstraps from the window.
package indicators

// Calculator is the behaviour common to all streaming indicators. The typed
// Calculate methods live on the concrete types because every indicator owns
// its own state and value shapes.
type Calculator interface {
	// Name identifies the indicator, e.g. "ema_20" or "macd_12_26_9".
	Name() string

	// MinCandles is the lookback needed before the first non-nil value.
	MinCandles() int

	// Reset drops any held state; the next Calculate re-bootstraps.
	Reset()
}
