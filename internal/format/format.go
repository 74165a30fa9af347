// Package format renders detail fields for display.
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is shown for missing values.
const Placeholder = "—"

// DefaultCurrency applies when a record carries no currency code.
const DefaultCurrency = "EUR"

// Text returns s, or Placeholder when s is blank.
func Text(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// List joins items with sep, or returns Placeholder for an empty list.
func List(items []string, sep string) string {
	if len(items) == 0 {
		return Placeholder
	}
	return strings.Join(items, sep)
}

// Price formats n as an amount of the ISO 4217 code for the given locale.
// Codes x/text does not know are rendered as "<n> <CODE>".
func Price(n float64, code string, locale language.Tag) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Placeholder
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	p := message.NewPrinter(locale)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return p.Sprintf("%.2f", n) + " " + code
	}
	return p.Sprint(currency.Symbol(unit.Amount(n)))
}

// Stock renders an availability count such as "3 copies".
func Stock(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Placeholder
	}
	s := strconv.FormatFloat(n, 'f', -1, 64)
	if n == 1 {
		return s + " copy"
	}
	return s + " copies"
}
