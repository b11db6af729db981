package allocation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/meskan/granary/internal/domain/apportion"
	"github.com/meskan/granary/internal/domain/grain"
)

// Receipt is one identity's resolved payout within an allocation.
type Receipt struct {
	ID     IdentityID   `json:"id"`
	Amount grain.Amount `json:"amount"`
}

// Allocation is the immutable outcome of running one policy over an
// identity roster. Receipts sum exactly to the policy budget and never
// repeat an identity.
type Allocation struct {
	ID       uuid.UUID `json:"id"`
	Policy   Policy    `json:"policy"`
	Receipts []Receipt `json:"receipts"`
}

// ComputeAllocation runs one policy over the identity roster. Either a
// fully budget-conserving allocation is returned or nothing is; there are
// no partial results.
func ComputeAllocation(p Policy, ids []Identity) (Allocation, error) {
	stats, err := validateIdentities(ids)
	if err != nil {
		return Allocation{}, err
	}

	var receipts []Receipt
	switch p.Kind {
	case Special:
		receipts, err = specialReceipts(p, ids)
	case Balanced, Immediate, Recent:
		var weights []float64
		weights, err = deriveWeights(p, ids, stats)
		if err == nil {
			receipts, err = apportionReceipts(p, ids, weights)
		}
	default:
		err = fmt.Errorf("%w: unknown kind %d", ErrBadPolicy, int(p.Kind))
	}
	if err != nil {
		return Allocation{}, err
	}

	// Split conserves by construction, so this check firing means an
	// implementation bug, not bad input.
	total := grain.Zero
	for _, r := range receipts {
		total = total.Add(r.Amount)
	}
	if !total.Equal(p.Budget) {
		return Allocation{}, fmt.Errorf("%w: receipts sum to %s, budget is %s",
			ErrConservation, total, p.Budget)
	}

	return Allocation{ID: uuid.New(), Policy: p, Receipts: receipts}, nil
}

// deriveWeights builds the weight vector for the proportional policies and
// applies the caller's transform, if any, right before apportionment.
func deriveWeights(p Policy, ids []Identity, stats []identityStats) ([]float64, error) {
	var (
		weights = make([]float64, len(ids))
		err     error
	)

	switch p.Kind {
	case Immediate:
		for i, st := range stats {
			weights[i] = st.latest
		}
	case Recent:
		// Fold oldest to newest; a discount of 1 reduces exactly to Immediate.
		keep := 1 - float64(p.Discount)
		for i, id := range ids {
			acc := 0.0
			for _, s := range id.Cred {
				acc = acc*keep + s
			}
			weights[i] = acc
		}
	case Balanced:
		weights, err = balancedWeights(p.Budget, ids, stats)
		if err != nil {
			return nil, err
		}
	}

	if p.Transform != nil {
		transformed := p.Transform(weights)
		if len(transformed) != len(weights) {
			return nil, fmt.Errorf("%w: got %d weights, want %d",
				ErrBadTransform, len(transformed), len(weights))
		}
		weights = transformed
	}
	return weights, nil
}

// balancedWeights measures each identity's shortfall against the
// counterfactual where the whole historical pool, past payouts plus this
// budget, had been paid strictly proportional to lifetime cred. Repeated
// application therefore converges payouts toward lifetime proportionality
// no matter what policies ran before.
func balancedWeights(budget grain.Amount, ids []Identity, stats []identityStats) ([]float64, error) {
	var totalLifetime float64
	paid := make([]grain.Amount, len(ids))
	for i, id := range ids {
		totalLifetime += stats[i].lifetime
		paid[i] = id.Paid
	}
	// totalLifetime > 0 is guaranteed by validateIdentities.
	pool := grain.Sum(paid).Add(budget)

	weights := make([]float64, len(ids))
	for i := range ids {
		target, err := pool.MulFloat(stats[i].lifetime / totalLifetime)
		if err != nil {
			return nil, err
		}
		under, err := target.Sub(paid[i])
		if err != nil {
			// Paid beyond the proportional target; the shortfall clamps to zero.
			continue
		}
		weights[i] = under.Float64()
	}
	return weights, nil
}

// specialReceipts bypasses apportionment and hands the full budget to the
// named recipient.
func specialReceipts(p Policy, ids []Identity) ([]Receipt, error) {
	for _, id := range ids {
		if id.ID == p.Recipient {
			return []Receipt{{ID: id.ID, Amount: p.Budget}}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRecipient, p.Recipient)
}

// apportionReceipts routes the weight vector through the single rounding
// point and pairs each share back with its identity.
func apportionReceipts(p Policy, ids []Identity, weights []float64) ([]Receipt, error) {
	shares, err := apportion.Split(p.Budget, weights)
	if err != nil {
		return nil, err
	}
	receipts := make([]Receipt, len(ids))
	for i, share := range shares {
		receipts[i] = Receipt{ID: ids[i].ID, Amount: share}
	}
	return receipts, nil
}
