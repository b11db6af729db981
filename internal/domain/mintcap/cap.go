// Package mintcap bounds how much contribution weight an address family
// may mint per interval. A schedule assigns each address prefix a
// chronological sequence of per-interval ceilings; any interval whose
// matching weights sum above the active ceiling has those weights scaled
// down proportionally. The cap never raises a weight and never touches
// intervals under their ceiling.
//
// Everything here is pure computation over caller-owned inputs. The input
// weight map is never mutated.
package mintcap

import (
	"fmt"
	"math"
)

// ApplyCap scales the weight map against the schedule, one line at a time,
// each line independently over the original weights. Addresses missing
// from the map weigh 1. The returned map starts as a copy of the input and
// only gains entries for addresses a cap actually scaled.
func ApplyCap(weights map[Address]float64, s Schedule, partition []Window) (map[Address]float64, error) {
	if err := validateCapInput(weights, s, partition); err != nil {
		return nil, err
	}

	adjusted := make(map[Address]float64, len(weights))
	for a, w := range weights {
		adjusted[a] = w
	}

	for _, line := range s.Lines {
		capLine(adjusted, weights, line, partition)
	}
	return adjusted, nil
}

// capLine walks the partition chronologically, advancing the period
// pointer whenever the next checkpoint has come into effect by the
// window's start. Before the first checkpoint the line imposes no ceiling.
func capLine(adjusted, weights map[Address]float64, line Line, partition []Window) {
	next := 0
	ceiling := 0.0
	active := false

	for _, win := range partition {
		for next < len(line.Periods) && line.Periods[next].StartMs <= win.StartMs {
			ceiling = line.Periods[next].Ceiling
			active = true
			next++
		}
		if !active {
			continue
		}

		sum := 0.0
		var matches []Address
		for _, addr := range win.Addresses {
			if addr.HasPrefix(line.Prefix) {
				matches = append(matches, addr)
				sum += weightOr1(weights, addr)
			}
		}
		if sum <= ceiling {
			continue
		}

		normalizer := ceiling / sum
		for _, addr := range matches {
			adjusted[addr] = weightOr1(weights, addr) * normalizer
		}
	}
}

// weightOr1 reads an address's weight, defaulting to 1 when the evaluator
// never assigned one.
func weightOr1(weights map[Address]float64, a Address) float64 {
	if w, ok := weights[a]; ok {
		return w
	}
	return 1
}

func validateCapInput(weights map[Address]float64, s Schedule, partition []Window) error {
	if s.Granularity != Weekly {
		return fmt.Errorf("%w: %q", ErrUnsupportedGranularity, s.Granularity)
	}
	for i, win := range partition {
		if win.EndMs-win.StartMs != weekMs {
			return fmt.Errorf("%w: window %d spans %dms, want one week",
				ErrUnsupportedGranularity, i, win.EndMs-win.StartMs)
		}
	}

	for _, line := range s.Lines {
		for i := 1; i < len(line.Periods); i++ {
			if line.Periods[i].StartMs < line.Periods[i-1].StartMs {
				return fmt.Errorf("%w: prefix %q", ErrUnorderedPeriods, line.Prefix)
			}
		}
		for _, p := range line.Periods {
			if math.IsNaN(p.Ceiling) || math.IsInf(p.Ceiling, 0) || p.Ceiling < 0 {
				return fmt.Errorf("%w: prefix %q declares %v", ErrInvalidCeiling, line.Prefix, p.Ceiling)
			}
		}
	}

	// Pairwise disjoint prefixes keep line ownership unambiguous, which is
	// what lets every line run independently against the original weights.
	for i := range s.Lines {
		for j := i + 1; j < len(s.Lines); j++ {
			a, b := s.Lines[i].Prefix, s.Lines[j].Prefix
			if a.HasPrefix(b) || b.HasPrefix(a) {
				return fmt.Errorf("%w: %q and %q", ErrPrefixConflict, a, b)
			}
		}
	}

	seen := make(map[Address]int)
	for i, win := range partition {
		if i > 0 && win.StartMs != partition[i-1].EndMs {
			return fmt.Errorf("%w: window %d does not continue window %d", ErrInvalidPartition, i, i-1)
		}
		for _, addr := range win.Addresses {
			if prev, dup := seen[addr]; dup {
				return fmt.Errorf("%w: %q active in windows %d and %d", ErrInvalidPartition, addr, prev, i)
			}
			seen[addr] = i
		}
	}

	for addr, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: %q weighs %v", ErrInvalidWeight, addr, w)
		}
	}
	return nil
}
