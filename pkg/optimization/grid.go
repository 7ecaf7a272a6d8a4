// Package optimization enumerates strategy-parameter grids into concrete
// strategy configurations for the backtest optimizer.
package optimization

import (
	"fmt"
	"strings"

	"github.com/curlyjoeyaknow/quantBot-sub000/pkg/config"
)

// minTrailingActivation is the validity floor: combinations arming the
// trailing stop below 2x entry are discarded outright.
const minTrailingActivation = 2.0

// maxStopFloor rejects stops so tight that the implied minimum exit price
// exceeds this fraction of entry.
const maxStopFloor = 0.6

// ParameterGrid lists candidate values per strategy dimension. Empty fields
// fall back to small built-in sets, so a zero grid still enumerates.
// A zero trailing activation means "no trailing stop" for that combination.
type ParameterGrid struct {
	InitialStops        []float64                  `json:"initial_stops,omitempty"`
	TrailingActivations []float64                  `json:"trailing_activations,omitempty"`
	TrailingPercents    []float64                  `json:"trailing_percents,omitempty"`
	ProfitTargetSets    [][]config.ProfitTargetLeg `json:"profit_target_sets,omitempty"`
	MaxReEntries        []int                      `json:"max_re_entries,omitempty"`
	ReEntrySizes        []float64                  `json:"re_entry_sizes,omitempty"`
}

func defaultGrid() ParameterGrid {
	return ParameterGrid{
		InitialStops:        []float64{-0.65, -0.5, -0.4},
		TrailingActivations: []float64{0, 2.0, 3.0},
		TrailingPercents:    []float64{0.2, 0.3},
		ProfitTargetSets: [][]config.ProfitTargetLeg{
			{{Target: 2.0, Percent: 0.5}, {Target: 5.0, Percent: 0.5}},
			{{Target: 3.0, Percent: 1.0}},
		},
		MaxReEntries: []int{0},
		ReEntrySizes: []float64{0.5},
	}
}

// withDefaults fills empty grid dimensions from the built-in sets.
func (g ParameterGrid) withDefaults() ParameterGrid {
	d := defaultGrid()
	if len(g.InitialStops) == 0 {
		g.InitialStops = d.InitialStops
	}
	if len(g.TrailingActivations) == 0 {
		g.TrailingActivations = d.TrailingActivations
	}
	if len(g.TrailingPercents) == 0 {
		g.TrailingPercents = d.TrailingPercents
	}
	if len(g.ProfitTargetSets) == 0 {
		g.ProfitTargetSets = d.ProfitTargetSets
	}
	if len(g.MaxReEntries) == 0 {
		g.MaxReEntries = d.MaxReEntries
	}
	if len(g.ReEntrySizes) == 0 {
		g.ReEntrySizes = d.ReEntrySizes
	}
	return g
}

// Combinations expands the grid's cartesian product into strategies,
// merging each combination over a clone of the optional base. Invalid
// combinations (trailing activation below 2x, stop floor above 0.6x entry)
// are filtered here, before any simulation. Enumeration order is
// deterministic: dimensions iterate in struct order.
func Combinations(grid ParameterGrid, base *config.StrategyConfig) []*config.StrategyConfig {
	g := grid.withDefaults()
	var out []*config.StrategyConfig

	for _, targets := range g.ProfitTargetSets {
		for _, stop := range g.InitialStops {
			if 1+stop > maxStopFloor {
				continue
			}
			for _, activation := range g.TrailingActivations {
				if activation > 0 && activation < minTrailingActivation {
					continue
				}
				trailPcts := g.TrailingPercents
				if activation == 0 {
					// No trailing stop: the trail percent dimension is moot.
					trailPcts = []float64{0}
				}
				for _, trailPct := range trailPcts {
					for _, maxRe := range g.MaxReEntries {
						reSizes := g.ReEntrySizes
						if maxRe == 0 {
							reSizes = []float64{0}
						}
						for _, reSize := range reSizes {
							out = append(out, buildStrategy(base, targets, stop, activation, trailPct, maxRe, reSize))
						}
					}
				}
			}
		}
	}
	return out
}

func buildStrategy(base *config.StrategyConfig, targets []config.ProfitTargetLeg,
	stop, activation, trailPct float64, maxRe int, reSize float64) *config.StrategyConfig {

	var s *config.StrategyConfig
	if base != nil {
		s = base.Clone()
	} else {
		s = &config.StrategyConfig{}
	}

	s.ProfitTargets = append([]config.ProfitTargetLeg(nil), targets...)
	s.StopLoss = &config.StopLossConfig{
		Initial:            stop,
		TrailingActivation: activation,
		TrailingPercent:    trailPct,
	}
	if maxRe > 0 {
		s.ReEntry = &config.ReEntryConfig{
			TrailingReEntry: 0.3,
			MaxReEntries:    maxRe,
			SizePercent:     reSize,
		}
	} else {
		s.ReEntry = nil
	}
	s.Name = strategyName(s)
	return s
}

// strategyName derives a stable, readable identifier from the combination.
func strategyName(s *config.StrategyConfig) string {
	var parts []string
	for _, leg := range s.ProfitTargets {
		parts = append(parts, fmt.Sprintf("tp%.1fx%.0f", leg.Target, leg.Percent*100))
	}
	parts = append(parts, fmt.Sprintf("sl%.0f", s.StopLoss.Initial*100))
	if s.StopLoss.TrailingActivation > 0 {
		parts = append(parts, fmt.Sprintf("act%.1f", s.StopLoss.TrailingActivation))
		parts = append(parts, fmt.Sprintf("trail%.0f", s.StopLoss.TrailingPercent*100))
	}
	if s.ReEntry != nil {
		parts = append(parts, fmt.Sprintf("re%dx%.0f", s.ReEntry.MaxReEntries, s.ReEntry.SizePercent*100))
	}
	return strings.Join(parts, "_")
}
