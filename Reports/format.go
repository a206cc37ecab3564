package Reports

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount with two decimals and thousands separators.
func FormatMoney(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatQuantity renders a hectare quantity.
func FormatQuantity(v float64) string {
	return printer.Sprintf("%.2f ha", v)
}
