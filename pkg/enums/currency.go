package enums

// Currency is an ISO 4217 code. Amounts are stored as integers in the
// currency's minor unit.
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

var currencies = []Currency{CurrencyINR, CurrencyUSD}

func (c Currency) String() string { return string(c) }
func (c Currency) IsValid() bool  { return known(c, currencies) }

// MinorUnitExponent is the number of decimal places between the major and
// minor unit. Every supported currency uses 2.
func (c Currency) MinorUnitExponent() int32 { return 2 }

func ParseCurrency(raw string) (Currency, error) { return parse("currency", raw, currencies) }
