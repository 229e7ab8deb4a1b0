package domain

import (
	"fmt"
	"math/big"
)

// Amounts are arbitrary-precision non-negative integers (*big.Int). Transport
// and storage encode them as base-10 strings so no precision is ever lost.

// ParseAmount decodes a base-10 amount string. Negative values are rejected.
func ParseAmount(s string) (*big.Int, error) {
	a, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if a.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative", s)
	}
	return a, nil
}

// FormatAmount encodes an amount as a base-10 string. A nil amount encodes as
// zero.
func FormatAmount(a *big.Int) string {
	if a == nil {
		return "0"
	}
	return a.String()
}

// CopyAmount returns an independent copy of a, or zero for nil.
func CopyAmount(a *big.Int) *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a)
}
