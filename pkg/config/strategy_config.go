package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ProfitTargetLeg is one take-profit rule: close Percent of the original
// position once price reaches Target times the entry price. Legs are
// evaluated in configured order.
type ProfitTargetLeg struct {
	Target  float64 `json:"target"`
	Percent float64 `json:"percent"`
}

// StopLossConfig controls the protective stop for a position.
//
// Initial is a fractional drawdown from entry (e.g. -0.3 puts the stop 30%
// below entry). TrailingActivation is the price multiple at which the
// trailing stop arms; zero disables trailing. TrailingPercent is the
// retracement from the running high that the armed stop follows.
type StopLossConfig struct {
	Initial            float64 `json:"initial"`
	TrailingActivation float64 `json:"trailing_activation,omitempty"`
	TrailingPercent    float64 `json:"trailing_percent,omitempty"`
}

// EntryConfig controls how the position is opened.
//
// When both offsets are nil the position opens at the first candle's open.
// InitialOffset is a fractional offset from the first open (a limit-style
// fill at open*(1+offset)). TrailingOffset waits up to MaxWaitMinutes for a
// lower low and then fills at lowestLow*(1+offset).
type EntryConfig struct {
	InitialOffset  *float64 `json:"initial_offset,omitempty"`
	TrailingOffset *float64 `json:"trailing_offset,omitempty"`
	MaxWaitMinutes int      `json:"max_wait_minutes,omitempty"`
}

// ReEntryConfig allows re-opening after a full exit.
//
// TrailingReEntry is the retracement from the exit price that triggers the
// re-entry, SizePercent the fraction of original notional per re-entry, and
// MaxReEntries the cap. ResetLadderLegs decides whether a re-entry restores
// already-spent ladder legs for the new tranche.
type ReEntryConfig struct {
	TrailingReEntry float64 `json:"trailing_re_entry"`
	MaxReEntries    int     `json:"max_re_entries"`
	SizePercent     float64 `json:"size_percent"`
	ResetLadderLegs bool    `json:"reset_ladder_legs,omitempty"`
}

// LadderLeg staggers part of the position at a price offset from entry.
// Offset is fractional (negative legs sit below entry, positive above) and
// Percent is the size fraction the leg moves.
type LadderLeg struct {
	Offset  float64 `json:"offset"`
	Percent float64 `json:"percent"`
}

// SignalConfig gates entries and exits on a MACD-family indicator. Entry is
// deferred until a bullish cross; when ExitOnBearish is set a bearish cross
// closes whatever remains open.
type SignalConfig struct {
	FastPeriod    int  `json:"fast_period"`
	SlowPeriod    int  `json:"slow_period"`
	SignalPeriod  int  `json:"signal_period"`
	ExitOnBearish bool `json:"exit_on_bearish,omitempty"`
}

// StrategyConfig is one complete strategy: every sub-config is optional and
// independent, so a strategy can be as simple as a single profit target.
type StrategyConfig struct {
	Name          string            `json:"name"`
	ProfitTargets []ProfitTargetLeg `json:"profit_targets,omitempty"`
	StopLoss      *StopLossConfig   `json:"stop_loss,omitempty"`
	Entry         *EntryConfig      `json:"entry,omitempty"`
	ReEntry       *ReEntryConfig    `json:"re_entry,omitempty"`
	EntryLadder   []LadderLeg       `json:"entry_ladder,omitempty"`
	ExitLadder    []LadderLeg       `json:"exit_ladder,omitempty"`
	Signal        *SignalConfig     `json:"signal,omitempty"`
}

// LoadStrategyConfig reads and validates a strategy JSON file.
func LoadStrategyConfig(path string) (*StrategyConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading strategy config: %w", err)
	}
	var cfg StrategyConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing strategy config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("strategy config %s: %w", path, err)
	}
	return &cfg, nil
}

// Clone returns a deep copy, so generated grid combinations never alias the
// base strategy's slices.
func (s *StrategyConfig) Clone() *StrategyConfig {
	out := *s
	out.ProfitTargets = append([]ProfitTargetLeg(nil), s.ProfitTargets...)
	out.EntryLadder = append([]LadderLeg(nil), s.EntryLadder...)
	out.ExitLadder = append([]LadderLeg(nil), s.ExitLadder...)
	if s.StopLoss != nil {
		sl := *s.StopLoss
		out.StopLoss = &sl
	}
	if s.Entry != nil {
		e := *s.Entry
		if s.Entry.InitialOffset != nil {
			v := *s.Entry.InitialOffset
			e.InitialOffset = &v
		}
		if s.Entry.TrailingOffset != nil {
			v := *s.Entry.TrailingOffset
			e.TrailingOffset = &v
		}
		out.Entry = &e
	}
	if s.ReEntry != nil {
		r := *s.ReEntry
		out.ReEntry = &r
	}
	if s.Signal != nil {
		sig := *s.Signal
		out.Signal = &sig
	}
	return &out
}
