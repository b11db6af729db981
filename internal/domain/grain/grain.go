// Package grain implements the fixed-point amount type used for payouts.
//
// An Amount carries exactly eighteen fractional decimal digits and can never
// hold a negative value: every constructor validates its input, and the only
// subtraction is partial. Arithmetic that could create fractional atoms
// (multiplication by a real factor) floors toward zero, so rounding bias
// always works against over-payment.
//
// All operations are pure value operations and are safe for concurrent use.
package grain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits an Amount carries. The
// smallest representable quantum (one atom) is therefore 1e-18 grain.
const Decimals = 18

// Amount is a non-negative quantity of grain. The zero value is zero grain
// and ready to use. Amounts are immutable; every operation returns a new
// value and leaves its operands untouched.
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// Parse converts a decimal string such as "133.7" into an Amount.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return fromDecimal(d)
}

// MustParse is Parse for trusted literals; it panics on invalid input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromInt converts a whole number of grain.
func FromInt(n int64) (Amount, error) {
	if n < 0 {
		return Amount{}, fmt.Errorf("%w: %d", ErrNegativeAmount, n)
	}
	return Amount{d: decimal.NewFromInt(n)}, nil
}

// FromUnits converts a count of atoms (1e-18 grain each) into an Amount.
func FromUnits(units *big.Int) (Amount, error) {
	if units == nil {
		return Amount{}, fmt.Errorf("%w: nil unit count", ErrInvalidAmount)
	}
	if units.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: %s atoms", ErrNegativeAmount, units)
	}
	return Amount{d: decimal.NewFromBigInt(units, -Decimals)}, nil
}

// FromFloat converts an approximate floating-point value, flooring anything
// beyond the resolution. Intended for display-grade inputs; exact amounts
// should come from Parse or FromUnits.
func FromFloat(x float64) (Amount, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, x)
	}
	if x < 0 {
		return Amount{}, fmt.Errorf("%w: %v", ErrNegativeAmount, x)
	}
	return Amount{d: decimal.NewFromFloat(x).Truncate(Decimals)}, nil
}

func fromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("%w: %s", ErrNegativeAmount, d)
	}
	if !d.Equal(d.Truncate(Decimals)) {
		return Amount{}, fmt.Errorf("%w: %s", ErrPrecision, d)
	}
	return Amount{d: d}, nil
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a-b. Subtraction is partial: when b exceeds a the result
// would be negative, so ErrUnderflow is returned instead.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.d.Cmp(b.d) < 0 {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, a.d, b.d)
	}
	return Amount{d: a.d.Sub(b.d)}, nil
}

// MulFloat scales the amount by a non-negative finite factor, flooring the
// product to the resolution.
func (a Amount) MulFloat(x float64) (Amount, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
		return Amount{}, fmt.Errorf("%w: %v", ErrBadFactor, x)
	}
	return Amount{d: a.d.Mul(decimal.NewFromFloat(x)).Truncate(Decimals)}, nil
}

// Cmp compares two amounts, returning -1, 0, or +1.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// Equal reports whether two amounts represent the same quantity.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool {
	return a.d.Cmp(b.d) < 0
}

// IsZero reports whether the amount is zero grain.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// Units returns the amount as a count of atoms. The caller owns the
// returned big.Int.
func (a Amount) Units() *big.Int {
	return a.d.Shift(Decimals).BigInt()
}

// Float64 returns the approximate floating-point value. Precision-critical
// paths must stay in Amount space; this exists for weight derivation and
// display.
func (a Amount) Float64() float64 {
	return a.d.InexactFloat64()
}

// Sum adds up a slice of amounts.
func Sum(as []Amount) Amount {
	total := Amount{}
	for _, a := range as {
		total = total.Add(a)
	}
	return total
}

// String renders the canonical decimal form, without trailing zeros.
func (a Amount) String() string {
	return a.d.String()
}

// MarshalJSON renders the amount as a quoted decimal string. Amounts never
// cross a serialization boundary as binary floats.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.d.String() + `"`), nil
}

// UnmarshalJSON parses a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: amount must be a quoted decimal string", ErrInvalidAmount)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
