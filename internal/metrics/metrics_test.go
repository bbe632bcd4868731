package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/exchangebot/internal/exchange"
)

func TestOrderCounters(t *testing.T) {
	m := New()
	o := &exchange.Order{
		Direction:    exchange.CryptoToFiat,
		Source:       exchange.USDT,
		Target:       exchange.PLN,
		SourceAmount: decimal.NewFromInt(1000),
		FeeTier:      exchange.TierStandard,
	}
	m.OrderCreated(o)
	m.OrderCreated(o)
	m.OrderTransitioned(exchange.StatusPendingProof, exchange.StatusAwaitingReview)
	m.OrderRejected("create", "RATE_UNAVAILABLE")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersCreatedTotal.WithLabelValues("crypto_to_fiat", "USDT_PLN", "standard")))
	assert.Equal(t, 2000.0, testutil.ToFloat64(m.OrdersSourceAmount.WithLabelValues("USDT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderTransitionsTotal.WithLabelValues("pending_proof", "awaiting_review")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderRejectionsTotal.WithLabelValues("create", "RATE_UNAVAILABLE")))
}

func TestRateAndHandlerObservations(t *testing.T) {
	m := New()
	m.ObserveRate("USDT_PLN", "ok", true, 120*time.Millisecond)
	m.ObserveRate("USDT_PLN", "fail", false, time.Second)
	m.ObserveHandler("start", "ok", 15*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLookupsTotal.WithLabelValues("USDT_PLN", "ok", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLookupsTotal.WithLabelValues("USDT_PLN", "fail", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerUpdatesTotal.WithLabelValues("start", "ok")))
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.ObserveRate("USDT_TRY", "ok", false, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `exchangebot_rate_lookups_total{bridged="false",outcome="ok",pair="USDT_TRY"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
