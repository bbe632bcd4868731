package exchange

import (
	"fmt"
	"slices"
	"time"
)

// Settings are the resolved exchange options injected into the core.
type Settings struct {
	Crypto       []Currency
	Fiat         []Currency
	Bridge       Currency
	FeeCodes     FeeCodes
	QuoteTimeout time.Duration
	ETA          ETA
}

// ETA maps a route (e.g. "USDT_PLN") to a human readable settlement estimate.
type ETA struct {
	Default string
	Routes  map[string]string
}

// For returns the estimate for source→target, falling back to the default.
func (e ETA) For(source, target Currency) string {
	if v, ok := e.Routes[RouteKey(source, target)]; ok && v != "" {
		return v
	}
	return e.Default
}

// RouteKey is the configuration key of a conversion route.
func RouteKey(source, target Currency) string {
	return source.String() + "_" + target.String()
}

// Supported reports whether c is offered to users.
func (s Settings) Supported(c Currency) bool {
	return slices.Contains(s.Crypto, c) || slices.Contains(s.Fiat, c)
}

// Offered returns the user-selectable currencies of kind k in configured order.
func (s Settings) Offered(k Kind) []Currency {
	if k == KindFiat {
		return s.Fiat
	}
	return s.Crypto
}

// CheckRoute validates a user-selected route against the configured set and the direction.
func (s Settings) CheckRoute(d Direction, source, target Currency) error {
	for _, c := range []Currency{source, target} {
		if !s.Supported(c) {
			return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, c)
		}
	}
	return d.CheckPair(source, target)
}
