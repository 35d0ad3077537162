package chain

import (
	"math/big"
	"strconv"
	"strings"

	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// Decimals is the fixed-point scale used for budgets and bid amounts on the wire.
const Decimals = 18

// ParseAmount converts a human decimal string to an 18-decimal fixed-point integer.
func ParseAmount(amount string) (*big.Int, error) {
	return ParseDecimalAmount(amount, Decimals)
}

// ParseDecimalAmount reads a non-negative decimal such as "1.5" or "10_000"
// into an integer scaled by 10^decimals. Underscores may group digits of the
// whole part. Fraction digits past decimals must be zeros; anything else is a
// precision error, never a silent truncation.
func ParseDecimalAmount(amount string, decimals int) (*big.Int, error) {
	invalid := etendaerr.WithDetails(etendaerr.ErrInvalidAmount, map[string]string{"amount": amount})

	whole, frac, _ := strings.Cut(amount, ".")
	whole, ok := ungroup(whole)
	if !ok || !digits(frac) || whole+frac == "" {
		return nil, invalid
	}

	if len(frac) > decimals {
		if strings.TrimRight(frac[decimals:], "0") != "" {
			return nil, etendaerr.WithDetails(etendaerr.ErrPrecision, map[string]string{
				"amount":   amount,
				"decimals": strconv.Itoa(decimals),
			})
		}
		frac = frac[:decimals]
	}

	v, ok := new(big.Int).SetString("0"+whole+frac+strings.Repeat("0", decimals-len(frac)), 10)
	if !ok {
		return nil, invalid
	}
	return v, nil
}

// ungroup strips single underscores between digits.
func ungroup(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, digits(s)
	}
	groups := strings.Split(s, "_")
	for _, g := range groups {
		if g == "" || !digits(g) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func digits(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}

// FormatAmount renders an 18-decimal fixed-point integer as a human decimal string.
func FormatAmount(amount *big.Int) string {
	return FormatDecimalAmount(amount, Decimals)
}

// FormatDecimalAmount is the inverse of ParseDecimalAmount without grouping:
// 1500000000000000000 at 18 decimals is "1.5". Trailing fraction zeros are
// dropped.
func FormatDecimalAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	sign := ""
	if amount.Sign() < 0 {
		sign = "-"
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(new(big.Int).Abs(amount), scale, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}
	fs := frac.String()
	fs = strings.Repeat("0", decimals-len(fs)) + fs
	return sign + whole.String() + "." + strings.TrimRight(fs, "0")
}
