package exchange

import (
	"fmt"
	"strings"
)

// Currency is a market asset code known to the exchange.
type Currency string

// Known market codes. EUR is never offered to users; it only serves as a bridge.
const (
	USDT Currency = "USDT"
	USDC Currency = "USDC"
	SOL  Currency = "SOL"
	ETH  Currency = "ETH"
	PLN  Currency = "PLN"
	TRY  Currency = "TRY"
	EUR  Currency = "EUR"
)

// Kind groups currencies by settlement rail.
type Kind string

const (
	KindCrypto Kind = "crypto"
	KindFiat   Kind = "fiat"
)

type currencyInfo struct {
	kind     Kind
	decimals int32
}

var known = map[Currency]currencyInfo{
	USDT: {kind: KindCrypto, decimals: 2},
	USDC: {kind: KindCrypto, decimals: 2},
	SOL:  {kind: KindCrypto, decimals: 4},
	ETH:  {kind: KindCrypto, decimals: 6},
	PLN:  {kind: KindFiat, decimals: 2},
	TRY:  {kind: KindFiat, decimals: 2},
	EUR:  {kind: KindFiat, decimals: 2},
}

// ParseCurrency normalizes raw input and rejects codes outside the known set.
func ParseCurrency(raw string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := known[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, raw)
	}
	return c, nil
}

// Valid reports whether c is a known market code.
func (c Currency) Valid() bool {
	_, ok := known[c]
	return ok
}

// Kind returns the rail of the currency. Unknown codes report an empty kind.
func (c Currency) Kind() Kind {
	return known[c].kind
}

// IsCrypto reports whether the currency settles on-chain.
func (c Currency) IsCrypto() bool { return c.Kind() == KindCrypto }

// Decimals is the precision used when rounding amounts in this currency.
func (c Currency) Decimals() int32 {
	if info, ok := known[c]; ok {
		return info.decimals
	}
	return 2
}

func (c Currency) String() string { return string(c) }

// Direction is the side of the exchange chosen by the user.
type Direction string

const (
	CryptoToFiat Direction = "crypto_to_fiat"
	FiatToCrypto Direction = "fiat_to_crypto"
)

// ParseDirection accepts the persisted/callback representation of a direction.
func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(raw))); d {
	case CryptoToFiat, FiatToCrypto:
		return d, nil
	}
	return "", fmt.Errorf("%w: direction %q", ErrUnsupportedCurrency, raw)
}

// SourceKind is the rail the user pays from.
func (d Direction) SourceKind() Kind {
	if d == FiatToCrypto {
		return KindFiat
	}
	return KindCrypto
}

// TargetKind is the rail the user receives on.
func (d Direction) TargetKind() Kind {
	if d == FiatToCrypto {
		return KindCrypto
	}
	return KindFiat
}

// CheckPair verifies that source and target match the direction's rails.
func (d Direction) CheckPair(source, target Currency) error {
	if source.Kind() != d.SourceKind() {
		return fmt.Errorf("%w: %s is not a %s source for %s", ErrUnsupportedCurrency, source, d.SourceKind(), d)
	}
	if target.Kind() != d.TargetKind() {
		return fmt.Errorf("%w: %s is not a %s target for %s", ErrUnsupportedCurrency, target, d.TargetKind(), d)
	}
	return nil
}
