package config

import (
	"errors"
	"fmt"
)

// Validate checks a strategy for structural problems before any simulation
// starts. Invalid strategies are skipped by the optimizer, never simulated.
func (s *StrategyConfig) Validate() error {
	if s.Name == "" {
		return errors.New("strategy name is required")
	}

	sum := 0.0
	for i, leg := range s.ProfitTargets {
		if leg.Target < 1 {
			return fmt.Errorf("profit target leg %d: target %.4f must be >= 1", i, leg.Target)
		}
		if leg.Percent < 0 || leg.Percent > 1 {
			return fmt.Errorf("profit target leg %d: percent %.4f must be in [0,1]", i, leg.Percent)
		}
		sum += leg.Percent
	}
	if sum > 1.0+1e-9 {
		return fmt.Errorf("profit target percentages sum to %.4f, must not exceed 1.0", sum)
	}

	if sl := s.StopLoss; sl != nil {
		if sl.Initial > 0 || sl.Initial <= -1 {
			return fmt.Errorf("stop loss initial %.4f must be in (-1, 0]", sl.Initial)
		}
		if sl.TrailingActivation < 0 {
			return fmt.Errorf("trailing activation %.4f must not be negative", sl.TrailingActivation)
		}
		if sl.TrailingActivation > 0 && (sl.TrailingPercent <= 0 || sl.TrailingPercent >= 1) {
			return fmt.Errorf("trailing percent %.4f must be in (0, 1) when trailing is enabled", sl.TrailingPercent)
		}
	}

	if e := s.Entry; e != nil {
		if e.InitialOffset != nil && e.TrailingOffset != nil {
			return errors.New("entry config: initial and trailing entry are mutually exclusive")
		}
		if e.TrailingOffset != nil && e.MaxWaitMinutes <= 0 {
			return errors.New("entry config: trailing entry requires a positive max wait time")
		}
	}

	if r := s.ReEntry; r != nil {
		if r.TrailingReEntry <= 0 || r.TrailingReEntry >= 1 {
			return fmt.Errorf("re-entry retracement %.4f must be in (0, 1)", r.TrailingReEntry)
		}
		if r.MaxReEntries < 0 {
			return fmt.Errorf("max re-entries %d must not be negative", r.MaxReEntries)
		}
		if r.SizePercent <= 0 || r.SizePercent > 1 {
			return fmt.Errorf("re-entry size %.4f must be in (0, 1]", r.SizePercent)
		}
	}

	if err := validateLadder("entry ladder", s.EntryLadder); err != nil {
		return err
	}
	if err := validateLadder("exit ladder", s.ExitLadder); err != nil {
		return err
	}

	if sig := s.Signal; sig != nil {
		if sig.FastPeriod <= 0 || sig.SlowPeriod <= 0 || sig.SignalPeriod <= 0 {
			return errors.New("signal config: all periods must be positive")
		}
		if sig.FastPeriod >= sig.SlowPeriod {
			return fmt.Errorf("signal config: fast period %d must be below slow period %d", sig.FastPeriod, sig.SlowPeriod)
		}
	}

	return nil
}

func validateLadder(name string, legs []LadderLeg) error {
	sum := 0.0
	for i, leg := range legs {
		if leg.Percent <= 0 || leg.Percent > 1 {
			return fmt.Errorf("%s leg %d: percent %.4f must be in (0, 1]", name, i, leg.Percent)
		}
		if leg.Offset <= -1 {
			return fmt.Errorf("%s leg %d: offset %.4f must be above -1", name, i, leg.Offset)
		}
		sum += leg.Percent
	}
	if sum > 1.0+1e-9 {
		return fmt.Errorf("%s percentages sum to %.4f, must not exceed 1.0", name, sum)
	}
	return nil
}
