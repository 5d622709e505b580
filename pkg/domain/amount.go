package domain

import (
	"github.com/shopspring/decimal"

	dErrors "aurum/pkg/domain-errors"
)

// BasisPoints is the denominator for ratios and rates: 10000 bps = 100%.
const BasisPoints = 10000

var bpsDenominator = decimal.NewFromInt(BasisPoints)

// FloorDiv returns floor(a / b) for non-negative integer amounts.
// b must be positive.
func FloorDiv(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}

// ApplyBps returns floor(amount * bps / 10000).
func ApplyBps(amount decimal.Decimal, bps int64) decimal.Decimal {
	return FloorDiv(amount.Mul(decimal.NewFromInt(bps)), bpsDenominator)
}

// ParseAmount parses a non-negative integer amount in base units. Scientific
// notation ("20000e18") is accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, dErrors.New(dErrors.CodeInvalidInput, "amount is not a number")
	}
	if d.IsNegative() {
		return decimal.Zero, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be negative")
	}
	if !d.Equal(d.Truncate(0)) {
		return decimal.Zero, dErrors.New(dErrors.CodeInvalidInput, "amount must be an integer number of base units")
	}
	return d, nil
}
