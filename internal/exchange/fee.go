package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeTier is the commission class frozen into an order.
type FeeTier string

const (
	TierStandard   FeeTier = "standard"
	TierDiscount1  FeeTier = "discount_1"
	TierDiscount15 FeeTier = "discount_15"
)

var (
	hundred = decimal.NewFromInt(100)

	tierPercent = map[FeeTier]decimal.Decimal{
		TierStandard:   decimal.RequireFromString("2.5"),
		TierDiscount1:  decimal.RequireFromString("1"),
		TierDiscount15: decimal.RequireFromString("1.5"),
	}
)

// ParseFeeTier validates a persisted tier value.
func ParseFeeTier(raw string) (FeeTier, error) {
	t := FeeTier(raw)
	if _, ok := tierPercent[t]; !ok {
		return "", fmt.Errorf("unknown fee tier %q", raw)
	}
	return t, nil
}

// Percent returns the commission in percent, e.g. 2.5.
func (t FeeTier) Percent() decimal.Decimal {
	if p, ok := tierPercent[t]; ok {
		return p
	}
	return tierPercent[TierStandard]
}

// FeeCodes holds the two secret discount codes. Empty codes never match.
type FeeCodes struct {
	Discount1  string
	Discount15 string
}

// ResolveTier maps a user-entered code to a tier by exact, case-sensitive match.
func ResolveTier(code string, codes FeeCodes) FeeTier {
	switch {
	case code == "":
		return TierStandard
	case codes.Discount1 != "" && code == codes.Discount1:
		return TierDiscount1
	case codes.Discount15 != "" && code == codes.Discount15:
		return TierDiscount15
	}
	return TierStandard
}

// ApplyFee returns amount reduced by the tier's commission.
func ApplyFee(amount decimal.Decimal, tier FeeTier) decimal.Decimal {
	keep := decimal.NewFromInt(1).Sub(tier.Percent().Div(hundred))
	return amount.Mul(keep)
}
