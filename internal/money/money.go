package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidAmount is returned when an amount string cannot be parsed.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrInvalidRate is returned when a rate string cannot be parsed.
	ErrInvalidRate = errors.New("money: invalid rate")
)

// Amount is a currency amount in integer minor units (cents).
type Amount int64

// Rate is a two-decimal percentage stored in basis points (5.00% = 500).
type Rate int64

// ParseAmount parses a two-decimal currency string like "350.00".
func ParseAmount(value string) (Amount, error) {
	minor, err := parseTwoDecimal(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return Amount(minor), nil
}

// ParseRate parses a two-decimal percentage string like "5.00".
func ParseRate(value string) (Rate, error) {
	minor, err := parseTwoDecimal(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, value)
	}
	return Rate(minor), nil
}

// String formats the amount with two decimals.
func (a Amount) String() string { return formatTwoDecimal(int64(a)) }

// String formats the rate as a two-decimal percentage.
func (r Rate) String() string { return formatTwoDecimal(int64(r)) }

// Commission computes round-half-up(gross * rate / 10000) in minor units.
func Commission(gross Amount, rate Rate) Amount {
	product := int64(gross) * int64(rate)
	if product >= 0 {
		return Amount((product + 5000) / 10000)
	}
	return Amount(-((-product + 5000) / 10000))
}

func parseTwoDecimal(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty")
	}
	negative := false
	if strings.HasPrefix(value, "-") {
		negative = true
		value = value[1:]
	}
	whole := value
	frac := "00"
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		whole = value[:idx]
		frac = value[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	switch len(frac) {
	case 0:
		frac = "00"
	case 1:
		frac += "0"
	case 2:
	default:
		return 0, errors.New("too many decimals")
	}
	wholePart, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	fracPart, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	minor := wholePart*100 + fracPart
	if negative {
		minor = -minor
	}
	return minor, nil
}

func formatTwoDecimal(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
