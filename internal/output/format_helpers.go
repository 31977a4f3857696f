package output

import "github.com/shopspring/decimal"

// FormatCurrency formats a decimal as USD currency with 2 decimals.
// Kept here so it can be reused by multiple formatters and unit tested in isolation.
func FormatCurrency(amount decimal.Decimal) string { return "$" + amount.StringFixed(2) }

// FormatPercentage formats a fraction as a percentage with 1 decimal.
func FormatPercentage(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

// FormatBTC formats a BTC quantity with 8 decimals.
func FormatBTC(amount decimal.Decimal) string { return amount.StringFixed(8) + " BTC" }
