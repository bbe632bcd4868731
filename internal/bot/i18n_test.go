package bot

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/exchangebot/internal/config"
	"github.com/m3rciful/exchangebot/internal/exchange"
)

func TestMatchLang(t *testing.T) {
	cases := map[string]string{
		"":      langEN,
		"en":    langEN,
		"en-GB": langEN,
		"tr":    langTR,
		"tr-TR": langTR,
		"ru":    langEN,
		"xx-!!": langEN,
	}
	for in, want := range cases {
		assert.Equal(t, want, matchLang(in), "input %q", in)
	}
}

func TestTranslate(t *testing.T) {
	assert.Equal(t, "Enter amount in USDT (numbers only).", tr(langEN, "enter_amount", "currency", "USDT"))
	assert.Equal(t, "USDT tutarini girin (sadece sayi).", tr(langTR, "enter_amount", "currency", "USDT"))
	assert.Equal(t, tr(langEN, "help"), tr("de", "help"), "unknown language falls back to English")
	assert.Equal(t, "no_such_key", tr(langEN, "no_such_key"))
	assert.Equal(t, "Enter amount in {currency} (numbers only).", tr(langEN, "enter_amount", "dangling"))
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range catalogs[langEN] {
		_, ok := catalogs[langTR][key]
		assert.True(t, ok, "tr misses %q", key)
	}
	assert.Len(t, catalogs[langTR], len(catalogs[langEN]))
}

func TestErrorText(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", exchange.ErrRateUnavailable)
	assert.Equal(t, tr(langEN, "rate_unavailable"), errorText(langEN, wrapped, 0))
	assert.Equal(t, "Order #5 cannot change from its current status.",
		errorText(langEN, fmt.Errorf("x: %w", exchange.ErrInvalidTransition), 5))
	assert.Equal(t, tr(langTR, "unknown"), errorText(langTR, fmt.Errorf("db down"), 0))
}

func TestDepositText(t *testing.T) {
	dep := config.DepositConfig{
		Bank:   config.BankDetails{Name: "Ziraat", IBAN: "TR00 0001"},
		Crypto: map[string]config.CryptoWallet{"USDT": {Address: "TXabc", Network: "TRC20"}},
	}
	fiat := &exchange.Order{ID: 3, Source: exchange.TRY, Target: exchange.USDT}
	assert.Contains(t, depositText(langEN, fiat, dep), "Transfer title/reference: 3")
	assert.Contains(t, depositText(langEN, fiat, dep), "Bank: Ziraat")

	eth := &exchange.Order{ID: 4, Source: exchange.ETH, Target: exchange.PLN}
	assert.Equal(t, tr(langEN, "no_wallet", "asset", "ETH", "order_id", "4"), depositText(langEN, eth, dep))
}

func TestQuoteText(t *testing.T) {
	o := &exchange.Order{
		ID:            9,
		Source:        exchange.USDT,
		Target:        exchange.TRY,
		SourceAmount:  decimal.NewFromInt(100),
		TargetAmount:  decimal.RequireFromString("3120"),
		FeeTier:       exchange.TierStandard,
		Rate:          decimal.RequireFromString("32.1234567891"),
		RateFetchedAt: time.Now(),
	}
	got := quoteText(langEN, o)
	assert.Contains(t, got, "1 USDT = 32.123457 TRY\n")
	assert.Contains(t, got, "You receive (est.): 3120.00 TRY")
	assert.NotContains(t, got, "via")
}
