package x402

import (
	"fmt"
	"math/big"
	"strings"
)

// MinorUnits converts a decimal price string into the asset's integer
// minor-unit representation by scaling with 10^decimals. The conversion is
// exact string arithmetic; it never round-trips through a float, so
// "0.05" at 6 decimals is always 50000.
func MinorUnits(price string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("negative decimals: %d", decimals)
	}

	price = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(price), "$"))
	if price == "" {
		return nil, fmt.Errorf("empty price")
	}
	if strings.HasPrefix(price, "-") {
		return nil, fmt.Errorf("negative price: %s", price)
	}

	whole, frac := price, ""
	if i := strings.IndexByte(price, '.'); i >= 0 {
		whole, frac = price[:i], price[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		// Anything beyond the asset's precision cannot be represented;
		// reject rather than silently truncate value.
		trimmed := strings.TrimRight(frac, "0")
		if len(trimmed) > decimals {
			return nil, fmt.Errorf("price %s exceeds %d decimal places", price, decimals)
		}
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	digits := whole + frac
	if !isDigits(digits) {
		return nil, fmt.Errorf("invalid price: %s", price)
	}

	units, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid price: %s", price)
	}
	return units, nil
}

// FormatMinorUnits renders an integer minor-unit amount back as a decimal
// string, the inverse of MinorUnits.
func FormatMinorUnits(units *big.Int, decimals int) string {
	s := units.String()
	if decimals == 0 {
		return s
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	for len(s) <= decimals {
		s = "0" + s
	}
	out := s[:len(s)-decimals] + "." + s[len(s)-decimals:]
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	if neg {
		out = "-" + out
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
