package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Token amounts are carried as 256-bit unsigned integers in base units with 18
// decimals, matching the payment-token convention. Human-facing amounts scale
// up on the way in and never divide before multiplying: dividing an unscaled
// total by a long duration truncates small amounts to zero.

// Decimals is the fixed scale applied to nominal amounts.
const Decimals = 18

var scale = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))

// Scale converts a nominal (human-unit) amount into base units.
func Scale(nominal uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(nominal), scale)
}

// MulDiv computes floor(total * num / den). den must be nonzero.
func MulDiv(total *uint256.Int, num, den uint64) *uint256.Int {
	out := new(uint256.Int).Mul(total, uint256.NewInt(num))
	return out.Div(out, uint256.NewInt(den))
}

// DivUint computes floor(a / d). d must be nonzero.
func DivUint(a *uint256.Int, d uint64) *uint256.Int {
	return new(uint256.Int).Div(a, uint256.NewInt(d))
}

// Sub returns a - b clamped at zero; vesting arithmetic never goes negative.
func Sub(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) <= 0 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(a, b)
}

// Parse reads a base-unit decimal string.
func Parse(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// String renders a base-unit amount as a decimal string.
func String(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// Zero returns a fresh zero amount.
func Zero() *uint256.Int { return uint256.NewInt(0) }
