package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// EtherDecimals is the number of decimal places between wei and ether.
const EtherDecimals = 18

// ErrInvalidAmount is returned when a display amount cannot be converted to wei.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseEther converts a decimal ether string ("0.5", "12", "-1.25") to wei.
//
// The conversion is exact: a fractional part longer than 18 digits is rejected
// rather than rounded. Only digits, one '.', and a leading '-' are accepted.
func ParseEther(s string) (*big.Int, error) {
	return parseUnits(s, EtherDecimals)
}

// FormatEther converts wei to a decimal ether string. Trailing zeros of the
// fraction are trimmed but at least one fraction digit is kept: 1e18 wei
// formats as "1.0", 1 wei as "0.000000000000000001".
func FormatEther(wei *big.Int) string {
	return formatUnits(wei, EtherDecimals)
}

func parseUnits(s string, decimals int) (*big.Int, error) {
	if s == "" || s == "." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")
	for _, r := range body {
		if (r < '0' || r > '9') && r != '.' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}

	parts := strings.Split(body, ".")
	if len(parts) > 2 || body == "" || body == "." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole := parts[0]
	if whole == "" {
		whole = "0"
	}
	frac := ""
	if len(parts) == 2 {
		frac = strings.TrimRight(parts[1], "0")
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	n, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

func formatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0.0"
	}
	abs := new(big.Int).Abs(v)
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, rem := new(big.Int).QuoRem(abs, div, new(big.Int))

	frac := rem.String()
	frac = strings.Repeat("0", decimals-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}

	out := whole.String() + "." + frac
	if v.Sign() < 0 {
		out = "-" + out
	}
	return out
}
