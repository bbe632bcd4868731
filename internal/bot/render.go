package bot

import (
	"strconv"

	"github.com/m3rciful/exchangebot/internal/config"
	"github.com/m3rciful/exchangebot/internal/exchange"
)

const rateDisplayPlaces = 6

var errorKeys = map[string]string{
	"RATE_UNAVAILABLE":     "rate_unavailable",
	"UNSUPPORTED_CURRENCY": "unsupported",
	"INVALID_AMOUNT":       "bad_amount",
	"ORDER_NOT_FOUND":      "order_not_found",
	"INVALID_TRANSITION":   "invalid_transition",
	"INVALID_PROOF":        "invalid_proof",
}

// errorText renders a domain failure for the user. Unknown errors get the
// generic text.
func errorText(lang string, err error, orderID int64) string {
	key, ok := errorKeys[exchange.CodeOf(err)]
	if !ok {
		key = "unknown"
	}
	return tr(lang, key, "order_id", formatID(orderID), "hint", "")
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func displayUser(o *exchange.Order) string {
	if o.Username != "" {
		return "@" + o.Username
	}
	return formatID(o.UserID)
}

func orderPairs(o *exchange.Order) []string {
	return []string{
		"order_id", formatID(o.ID),
		"from_asset", o.Source.String(),
		"to_asset", o.Target.String(),
		"amount_from", o.SourceAmount.String(),
		"amount_to", o.TargetAmount.StringFixed(o.Target.Decimals()),
		"fee_pct", o.FeeTier.Percent().String(),
		"rate", o.Rate.Round(rateDisplayPlaces).String(),
		"status", string(o.Status),
		"user", displayUser(o),
		"direction", string(o.Direction),
		"pair", o.Pair(),
	}
}

func quoteText(lang string, o *exchange.Order) string {
	via := ""
	if o.BridgedVia != "" {
		via = tr(lang, "via", "bridge", o.BridgedVia.String())
	}
	return tr(lang, "quote", append(orderPairs(o), "via", via)...)
}

// depositText tells the user where to pay the source side of the order.
func depositText(lang string, o *exchange.Order, dep config.DepositConfig) string {
	id := formatID(o.ID)
	if !o.Source.IsCrypto() {
		b := dep.Bank
		return tr(lang, "bank_details",
			"bank", b.Name, "holder", b.Holder, "iban", b.IBAN, "swift", b.SWIFT, "hint", b.Hint, "order_id", id)
	}
	w, ok := dep.Crypto[o.Source.String()]
	if !ok || w.Address == "" {
		return tr(lang, "no_wallet", "asset", o.Source.String(), "order_id", id)
	}
	return tr(lang, "crypto_details",
		"asset", o.Source.String(), "address", w.Address, "network", w.Network, "order_id", id)
}

func proofPrompt(lang string, o *exchange.Order) string {
	if o.Source.IsCrypto() {
		return tr(lang, "ask_txid")
	}
	return tr(lang, "ask_receipt")
}
