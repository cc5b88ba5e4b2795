package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits renders an integer amount of smallest units as a fixed-point
// decimal string with exactly decimals fractional digits.
// Example: amount=1234500000000000000, decimals=18 => "1.234500000000000000"
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return decimal.Zero.StringFixed(decimals)
	}
	return decimal.NewFromBigInt(amount, -decimals).StringFixed(decimals)
}

// FormatUint64Units is FormatUnits for uint64 amounts.
func FormatUint64Units(amount uint64, decimals int32) string {
	return FormatUnits(new(big.Int).SetUint64(amount), decimals)
}

// ParseUnits converts a decimal string into smallest units. It rejects values
// with more fractional digits than decimals allows.
func ParseUnits(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	return scaled.BigInt(), nil
}

// ParseDecimal parses s, treating an empty string as zero.
func ParseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
