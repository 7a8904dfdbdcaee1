package rates

// SupportedCurrencies is the picker list offered to clients, base first.
var SupportedCurrencies = []string{"AUD", "USD", "EUR", "CNY", "AED", "HKD", "JPY"}

var currencyNames = map[string]string{
	"AUD": "Australian Dollar",
	"USD": "US Dollar",
	"EUR": "Euro",
	"HKD": "Hong Kong Dollar",
	"JPY": "Japanese Yen",
	"AED": "Dirham",
	"CNY": "Chinese Renminbi",
}

// DisplayName returns the human-readable currency name, falling back to the
// code itself for currencies outside the table.
func DisplayName(code string) string {
	if name, ok := currencyNames[code]; ok {
		return name
	}
	return code
}
