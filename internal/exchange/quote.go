package exchange

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateQuote says how many units of Target one unit of Source buys.
type RateQuote struct {
	Source     Currency
	Target     Currency
	Rate       decimal.Decimal
	BridgedVia Currency
	FetchedAt  time.Time
}

// IdentityQuote is the quote for converting a currency into itself.
func IdentityQuote(c Currency, at time.Time) RateQuote {
	return RateQuote{Source: c, Target: c, Rate: decimal.NewFromInt(1), FetchedAt: at}
}

// Bridged reports whether the rate was composed through an intermediate currency.
func (q RateQuote) Bridged() bool { return q.BridgedVia != "" }

// Path renders the conversion route, e.g. USDT→EUR→PLN.
func (q RateQuote) Path() string {
	parts := []string{q.Source.String()}
	if q.Bridged() {
		parts = append(parts, q.BridgedVia.String())
	}
	parts = append(parts, q.Target.String())
	return strings.Join(parts, "→")
}

// Convert applies the quote to amount without any fee.
func (q RateQuote) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(q.Rate)
}
