// Package apportion divides an exact grain total across real-valued weights.
//
// The engine implements the largest-remainder method over atomic units: every
// party receives the floor of its ideal proportional share, and the handful of
// atoms left over (always fewer than the number of parties) go one each to the
// largest fractional remainders. Intermediate ratios use exact rational
// arithmetic, so the shares always sum to the total with zero leakage and each
// share sits within one atom of its ideal value.
//
// This is the single rounding point for the whole payout pipeline; callers
// never re-derive rounding on their own.
//
// All functions are pure and safe for concurrent use.
package apportion

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/meskan/granary/internal/domain/grain"
)

// Split divides total proportionally to weights and returns one share per
// weight. Weights must be finite and non-negative, and at least one must be
// positive. Ties between equal fractional remainders break toward the lower
// index; that ordering is part of the contract, so identical inputs always
// produce identical outputs.
func Split(total grain.Amount, weights []float64) ([]grain.Amount, error) {
	weightSum := new(big.Rat)
	rats := make([]*big.Rat, len(weights))
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: index %d holds %v", ErrInvalidWeight, i, w)
		}
		// Every finite float64 is rational, so this conversion is exact.
		r := new(big.Rat).SetFloat64(w)
		rats[i] = r
		weightSum.Add(weightSum, r)
	}
	if weightSum.Sign() == 0 {
		return nil, ErrDegenerateWeights
	}

	// Work in atoms so conservation reduces to integer arithmetic.
	u := total.Units()
	uRat := new(big.Rat).SetInt(u)

	floors := make([]*big.Int, len(weights))
	rems := make([]*big.Rat, len(weights))
	distributed := new(big.Int)
	for i, r := range rats {
		ideal := new(big.Rat).Mul(uRat, r)
		ideal.Quo(ideal, weightSum)
		// Quo truncates toward zero, which is floor for non-negative operands.
		fl := new(big.Int).Quo(ideal.Num(), ideal.Denom())
		floors[i] = fl
		rems[i] = ideal.Sub(ideal, new(big.Rat).SetInt(fl))
		distributed.Add(distributed, fl)
	}

	// The remainders sum to exactly the leftover and each is < 1, so the
	// leftover is a non-negative integer smaller than len(weights).
	leftover := new(big.Int).Sub(u, distributed)

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rems[order[a]].Cmp(rems[order[b]]) > 0
	})

	one := big.NewInt(1)
	for i := int64(0); i < leftover.Int64(); i++ {
		floors[order[i]].Add(floors[order[i]], one)
	}

	out := make([]grain.Amount, len(weights))
	for i, fl := range floors {
		share, err := grain.FromUnits(fl)
		if err != nil {
			return nil, err
		}
		out[i] = share
	}
	return out, nil
}
