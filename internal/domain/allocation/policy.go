// Package allocation turns cred histories into exact grain payouts.
//
// Four interchangeable policies derive a weight vector from the identity
// roster and route it through the apportionment engine; a fifth path
// (SPECIAL) hands the whole budget to one named identity. Every computed
// allocation conserves its budget to the atom, re-checked before a result
// leaves the package.
//
// All computations are pure functions over immutable inputs and are safe to
// run concurrently.
package allocation

import (
	"fmt"
	"math"

	"github.com/meskan/granary/internal/domain/grain"
)

// PolicyKind discriminates the allocation strategies.
type PolicyKind int

// The allocation strategies.
const (
	Balanced PolicyKind = iota
	Immediate
	Recent
	Special
)

// Wire discriminants, also used for display.
const (
	wireBalanced  = "BALANCED"
	wireImmediate = "IMMEDIATE"
	wireRecent    = "RECENT"
	wireSpecial   = "SPECIAL"
)

// String returns the wire discriminant for the kind.
func (k PolicyKind) String() string {
	switch k {
	case Balanced:
		return wireBalanced
	case Immediate:
		return wireImmediate
	case Recent:
		return wireRecent
	case Special:
		return wireSpecial
	default:
		return fmt.Sprintf("PolicyKind(%d)", int(k))
	}
}

// Discount is the per-interval decay factor used by the Recent policy.
// Bounded to [0, 1] at construction, never at point of use; a discount of 1
// forgets everything but the latest interval.
type Discount float64

// NewDiscount validates and returns a discount.
func NewDiscount(x float64) (Discount, error) {
	if math.IsNaN(x) || x < 0 || x > 1 {
		return 0, fmt.Errorf("%w: %v", ErrDiscountRange, x)
	}
	return Discount(x), nil
}

// ScoreTransform reshapes a derived weight vector immediately before
// apportionment, letting a caller clip outliers or re-curve scores. It must
// return a vector of the same length. Transforms are code, so they never
// serialize with the policy.
type ScoreTransform func([]float64) []float64

// Policy selects an allocation strategy and its parameters. Budget can
// never be negative because Amount forbids it; Discount applies to RECENT,
// Memo and Recipient to SPECIAL.
type Policy struct {
	Kind      PolicyKind
	Budget    grain.Amount
	Discount  Discount
	Memo      string
	Recipient IdentityID
	Transform ScoreTransform
}

// NewBalanced builds a policy that pays down each identity's shortfall
// against lifetime-proportional earnings.
func NewBalanced(budget grain.Amount) Policy {
	return Policy{Kind: Balanced, Budget: budget}
}

// NewImmediate builds a policy that pays proportional to the latest
// interval's cred only.
func NewImmediate(budget grain.Amount) Policy {
	return Policy{Kind: Immediate, Budget: budget}
}

// NewRecent builds a policy that pays proportional to exponentially
// time-decayed cred.
func NewRecent(budget grain.Amount, discount Discount) Policy {
	return Policy{Kind: Recent, Budget: budget, Discount: discount}
}

// NewSpecial builds a policy that hands the full budget to one recipient.
func NewSpecial(budget grain.Amount, memo string, recipient IdentityID) Policy {
	return Policy{Kind: Special, Budget: budget, Memo: memo, Recipient: recipient}
}

// WithTransform returns a copy of the policy carrying the transform.
func (p Policy) WithTransform(t ScoreTransform) Policy {
	p.Transform = t
	return p
}
