// Package canon turns located literal strings into typed values. Failures
// never produce zero: they produce an explicit invalid value.
package canon

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/a3tai/invoice-extractor/internal/normalize"
)

// ParseAmount converts a monetary literal such as "1,153.74 SAR" into a
// decimal. Everything except ASCII digits and decimal points followed by a
// digit is dropped after normalization, so ".75" keeps its point while the
// point of a currency mark such as "ر.س" does not. An empty or malformed
// literal yields an invalid NullDecimal.
func ParseAmount(s string) decimal.NullDecimal {
	cleaned := amountDigits(normalize.Normalize(s))
	if cleaned == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func amountDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case isASCIIDigit(c):
			b.WriteByte(c)
		case c == '.' && i+1 < len(s) && isASCIIDigit(s[i+1]):
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// FormatAmount renders a parsed amount with two decimals, or "" when absent.
func FormatAmount(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
