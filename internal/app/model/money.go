package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents). It is stored as a BIGINT and
// travels in JSON as a decimal string with two places ("600.00").
type Money int64

const moneyScale = 2

var ErrInvalidMoney = errors.New("invalid money amount")

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// MoneyFromDecimal converts a major-unit decimal. More than two fractional
// digits is rejected rather than rounded.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Round(moneyScale)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidMoney, d.String(), moneyScale)
	}
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidMoney, d.String())
	}
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidMoney, d.String())
	}
	return Money(cents.IntPart()), nil
}

// ParseMoney parses "1234", "1234.5" or "1234.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	return MoneyFromDecimal(d)
}

// MustParseMoney is for constants and test fixtures.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -moneyScale)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(moneyScale)
}

func (m Money) IsPositive() bool {
	return m > 0
}

// Percent returns m * pct / 100 rounded half away from zero to the cent.
func (m Money) Percent(pct decimal.Decimal) Money {
	share := m.Decimal().Mul(pct).Div(hundred).Round(moneyScale)
	out, _ := MoneyFromDecimal(share)
	return out
}

// Progress returns raised/goal as a percentage with two decimals.
func Progress(raised, goal Money) decimal.Decimal {
	if goal <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(raised)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(goal))).
		Round(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "600.00" and 600.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
