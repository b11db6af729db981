package allocation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meskan/granary/internal/domain/grain"
)

// MarshalJSON writes the tagged wire form for the policy. Budgets travel as
// quoted decimal strings, never binary floats.
func (p Policy) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case Balanced, Immediate:
		return json.Marshal(struct {
			PolicyType string       `json:"policyType"`
			Budget     grain.Amount `json:"budget"`
		}{p.Kind.String(), p.Budget})
	case Recent:
		return json.Marshal(struct {
			PolicyType string       `json:"policyType"`
			Budget     grain.Amount `json:"budget"`
			Discount   float64      `json:"discount"`
		}{p.Kind.String(), p.Budget, float64(p.Discount)})
	case Special:
		return json.Marshal(struct {
			PolicyType string       `json:"policyType"`
			Budget     grain.Amount `json:"budget"`
			Memo       string       `json:"memo"`
			Recipient  IdentityID   `json:"recipient"`
		}{p.Kind.String(), p.Budget, p.Memo, p.Recipient})
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrBadPolicy, int(p.Kind))
	}
}

// UnmarshalJSON reads the tagged wire form strictly. A missing or unknown
// discriminant, a field that does not belong to the declared variant, and
// any unknown field all fail decoding instead of being silently dropped.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPolicy, err)
	}

	kindStr, err := popString(raw, "policyType")
	if err != nil {
		return err
	}
	budget, err := popBudget(raw)
	if err != nil {
		return err
	}

	out := Policy{Budget: budget}
	switch kindStr {
	case wireBalanced:
		out.Kind = Balanced
	case wireImmediate:
		out.Kind = Immediate
	case wireRecent:
		out.Kind = Recent
		x, err := popFloat(raw, "discount")
		if err != nil {
			return err
		}
		d, err := NewDiscount(x)
		if err != nil {
			return err
		}
		out.Discount = d
	case wireSpecial:
		out.Kind = Special
		memo, err := popString(raw, "memo")
		if err != nil {
			return err
		}
		recipient, err := popString(raw, "recipient")
		if err != nil {
			return err
		}
		out.Memo = memo
		out.Recipient = IdentityID(recipient)
	default:
		return fmt.Errorf("%w: unknown policyType %q", ErrBadPolicy, kindStr)
	}

	for key := range raw {
		return fmt.Errorf("%w: field %q does not belong to a %s policy", ErrBadPolicy, key, kindStr)
	}

	*p = out
	return nil
}

// popString removes a required string field from the raw map.
func popString(raw map[string]json.RawMessage, key string) (string, error) {
	msg, ok := raw[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrBadPolicy, key)
	}
	delete(raw, key)
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", ErrBadPolicy, key)
	}
	return s, nil
}

// popFloat removes a required numeric field from the raw map.
func popFloat(raw map[string]json.RawMessage, key string) (float64, error) {
	msg, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrBadPolicy, key)
	}
	delete(raw, key)
	var x float64
	if err := json.Unmarshal(msg, &x); err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", ErrBadPolicy, key)
	}
	return x, nil
}

// popBudget removes and parses the required budget field. Negative budgets
// get their own kind so callers can distinguish bad sign from bad shape.
func popBudget(raw map[string]json.RawMessage) (grain.Amount, error) {
	msg, ok := raw["budget"]
	if !ok {
		return grain.Zero, fmt.Errorf("%w: missing budget", ErrBadPolicy)
	}
	delete(raw, "budget")
	var b grain.Amount
	if err := json.Unmarshal(msg, &b); err != nil {
		if errors.Is(err, grain.ErrNegativeAmount) {
			return grain.Zero, fmt.Errorf("%w: %v", ErrNegativeBudget, err)
		}
		return grain.Zero, fmt.Errorf("%w: budget: %v", ErrBadPolicy, err)
	}
	return b, nil
}
