package iso20022

import "fmt"

var zeroDecimalCurrencies = map[string]bool{"JPY": true, "KRW": true, "XOF": true, "XAF": true}

// MinorUnits returns the number of decimal places for currency.
func MinorUnits(currency string) int {
	if zeroDecimalCurrencies[currency] {
		return 0
	}
	return 2
}

// FormatAmount renders a minor-unit amount as an ISO 20022 decimal string.
func FormatAmount(minor int64, currency string) string {
	if MinorUnits(currency) == 0 {
		return fmt.Sprintf("%d", minor)
	}
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
