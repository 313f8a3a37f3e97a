package crm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents. Prices and order totals are stored this way
// so sums never drift.
type Money int64

// MaxMoney bounds every accepted amount (one hundred billion). Sums of
// amounts go through Add.
const MaxMoney Money = 10_000_000_000_000

var ErrInvalidAmount = errors.New("invalid amount")

// Add returns m+n, failing with ErrInvalidAmount when the result would not
// fit in an int64.
func (m Money) Add(n Money) (Money, error) {
	if (n > 0 && m > math.MaxInt64-n) || (n < 0 && m < math.MinInt64-n) {
		return 0, fmt.Errorf("%w: %s + %s overflows", ErrInvalidAmount, m, n)
	}
	return m + n, nil
}

func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseMoney accepts "12", "12.5" and "12.50". More than two decimal places
// is rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, ErrInvalidAmount
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q has more than 2 decimal places", ErrInvalidAmount, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > int64(MaxMoney/100) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	cents := w*100 + f
	if cents > int64(MaxMoney) {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidAmount, s, MaxMoney)
	}
	if neg {
		cents = -cents
	}
	return Money(cents), nil
}

// MoneyFromFloat rounds to the nearest cent.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	cents := math.Round(f * 100)
	if math.Abs(cents) > float64(MaxMoney) {
		return 0, fmt.Errorf("%w: %v exceeds %s", ErrInvalidAmount, f, MaxMoney)
	}
	return Money(cents), nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
