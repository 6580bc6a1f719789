package domain

import (
	"math"
	"strconv"

	dErrors "partnerd/pkg/domain-errors"
)

// Amount is a value in the smallest unit. Arithmetic is checked: running
// totals fail closed with an overflow error instead of wrapping.
type Amount uint64

// MaxAmount is the largest representable amount.
const MaxAmount Amount = math.MaxUint64

// ParseAmount parses a decimal smallest-unit amount from a trust boundary.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidAmount, "amount cannot be empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidAmount, "amount must be a non-negative integer")
	}
	return Amount(n), nil
}

// Add returns a+b, failing closed when the sum does not fit.
func (a Amount) Add(b Amount) (Amount, error) {
	if b > MaxAmount-a {
		return 0, dErrors.New(dErrors.CodeOverflow, "amount addition overflows")
	}
	return a + b, nil
}

// Sub returns a-b, failing closed when b exceeds a. An underflow here means
// the escrow invariant is already broken, so it is reported as overflow-class
// rather than silently truncated.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, dErrors.New(dErrors.CodeOverflow, "amount subtraction underflows")
	}
	return a - b, nil
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

func (a Amount) String() string { return strconv.FormatUint(uint64(a), 10) }
