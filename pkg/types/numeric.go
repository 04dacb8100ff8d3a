package types

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var groupedThousands = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// LooseNumber captures a JSON value that should be numeric but may arrive
// as a number, a formatted string ("$ 1.500,50") or null.
type LooseNumber string

// UnmarshalJSON accepts strings, numbers and null.
func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*n = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = LooseNumber(s)
		return nil
	}
	*n = LooseNumber(trimmed)
	return nil
}

// Decimal coerces the value to a decimal, treating anything unparsable as
// zero so a malformed model figure forces a mismatch instead of an error.
func (n LooseNumber) Decimal() decimal.Decimal {
	return ParseLooseDecimal(string(n))
}

// ParseLooseDecimal converts loosely formatted numeric text to a decimal.
// Currency symbols and whitespace are stripped; Argentine-style thousands
// separators ("1.500,50") are normalized. Empty or non-numeric input
// coerces to zero.
func ParseLooseDecimal(raw string) decimal.Decimal {
	cleaned := strings.TrimSpace(raw)
	for _, sym := range []string{"$", "ARS", "ars", "pesos", " "} {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	if cleaned == "" {
		return decimal.Zero
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")
	switch {
	case hasDot && hasComma:
		// "1.500,50": dots are thousands separators, comma is decimal.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case hasDot && groupedThousands.MatchString(cleaned):
		// "1.500" without a comma is pesos shorthand for 1500.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return value
}
