package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/exchangebot/internal/exchange"
	"github.com/m3rciful/exchangebot/internal/rates"
)

type tickerStub map[string]string

func (t tickerStub) Price(_ context.Context, symbol string) (decimal.Decimal, error) {
	p, ok := t[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, rates.ErrPairNotListed)
	}
	return decimal.RequireFromString(p), nil
}

type failingQuoter struct{ calls atomic.Int32 }

func (f *failingQuoter) Resolve(context.Context, exchange.Currency, exchange.Currency) (exchange.RateQuote, error) {
	f.calls.Add(1)
	return exchange.RateQuote{}, fmt.Errorf("%w: upstream 503", exchange.ErrRateUnavailable)
}

type countingRecorder struct {
	mu          sync.Mutex
	created     int
	transitions []string
	rejected    []string
}

func (r *countingRecorder) OrderCreated(*exchange.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
}

func (r *countingRecorder) OrderTransitioned(from, to exchange.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, string(from)+">"+string(to))
}

func (r *countingRecorder) OrderRejected(op, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, op+":"+code)
}

var clock = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func testSettings() exchange.Settings {
	return exchange.Settings{
		Crypto:   []exchange.Currency{exchange.USDT, exchange.USDC, exchange.SOL, exchange.ETH},
		Fiat:     []exchange.Currency{exchange.PLN, exchange.TRY},
		Bridge:   exchange.EUR,
		FeeCodes: exchange.FeeCodes{Discount1: "VIP1", Discount15: "FRIEND15"},
		ETA:      exchange.ETA{Default: "15-30 min"},
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	resolver := rates.NewResolver(tickerStub{
		"EURUSDT": "1.08",
		"EURPLN":  "4.3",
		"USDTTRY": "32",
	}, rates.Options{Bridge: exchange.EUR, Timeout: time.Second, Now: func() time.Time { return clock }})
	opts = append([]Option{WithClock(func() time.Time { return clock })}, opts...)
	return NewService(store, resolver, testSettings(), opts...), store
}

func usdtToPLN(amount string, code string) NewOrder {
	return NewOrder{
		UserID:    42,
		Username:  "alice",
		Lang:      "en",
		Direction: exchange.CryptoToFiat,
		Source:    exchange.USDT,
		Target:    exchange.PLN,
		Amount:    decimal.RequireFromString(amount),
		FeeCode:   code,
	}
}

func TestOrderLifecycleEndToEnd(t *testing.T) {
	rec := &countingRecorder{}
	svc, _ := newTestService(t, WithRecorder(rec))
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, usdtToPLN("1000", ""))
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusPendingProof, o.Status)
	assert.Equal(t, exchange.EUR, o.BridgedVia)
	assert.Equal(t, exchange.TierStandard, o.FeeTier)
	assert.Equal(t, clock, o.RateFetchedAt)
	assert.Nil(t, o.Proof)

	rate, _ := o.Rate.Float64()
	assert.InDelta(t, 4.3/1.08, rate, 1e-9)
	assert.Equal(t, "3881.94", o.TargetAmount.StringFixed(2))

	o, err = svc.AttachProof(ctx, o.ID, exchange.Proof{Kind: exchange.ProofTxid, Payload: " 0xabc123 "})
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusAwaitingReview, o.Status)
	assert.Equal(t, "0xabc123", o.Proof.Payload)

	o, err = svc.MarkDone(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusDone, o.Status)

	recent, err := svc.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, o.ID, recent[0].ID)
	assert.Equal(t, exchange.StatusDone, recent[0].Status)
	assert.True(t, recent[0].Rate.Equal(o.Rate))

	assert.Equal(t, 1, rec.created)
	assert.Equal(t, []string{"pending_proof>awaiting_review", "awaiting_review>done"}, rec.transitions)
}

func TestCreateOrderAppliesFeeTier(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		code string
		tier exchange.FeeTier
		want string
	}{
		{"", exchange.TierStandard, "3120.00"},
		{"VIP1", exchange.TierDiscount1, "3168.00"},
		{"FRIEND15", exchange.TierDiscount15, "3152.00"},
		{"vip1", exchange.TierStandard, "3120.00"},
		{" VIP1", exchange.TierStandard, "3120.00"},
		{"VIP1 ", exchange.TierStandard, "3120.00"},
		{"\tFRIEND15\n", exchange.TierStandard, "3120.00"},
	}
	for _, tc := range cases {
		o, err := svc.CreateOrder(ctx, NewOrder{
			UserID: 1, Direction: exchange.CryptoToFiat,
			Source: exchange.USDT, Target: exchange.TRY,
			Amount: decimal.NewFromInt(100), FeeCode: tc.code,
		})
		require.NoError(t, err, tc.code)
		assert.Equal(t, tc.tier, o.FeeTier, tc.code)
		assert.Equal(t, tc.want, o.TargetAmount.StringFixed(2), tc.code)
		assert.False(t, o.Quote().Bridged(), tc.code)
	}
}

func TestResolveTierRequiresExactCode(t *testing.T) {
	svc, _ := newTestService(t)
	for _, code := range []string{"", " VIP1", "VIP1 ", "\tFRIEND15\n", "friend15"} {
		assert.Equal(t, exchange.TierStandard, svc.ResolveTier(code), "%q", code)
	}
	assert.Equal(t, exchange.TierDiscount1, svc.ResolveTier("VIP1"))
	assert.Equal(t, exchange.TierDiscount15, svc.ResolveTier("FRIEND15"))
}

func TestCreateOrderRejectsInvalidInput(t *testing.T) {
	rec := &countingRecorder{}
	svc, store := newTestService(t, WithRecorder(rec))
	ctx := context.Background()

	in := usdtToPLN("10", "")
	in.Target = exchange.EUR
	_, err := svc.CreateOrder(ctx, in)
	assert.ErrorIs(t, err, exchange.ErrUnsupportedCurrency)

	in = usdtToPLN("10", "")
	in.Direction = exchange.FiatToCrypto
	_, err = svc.CreateOrder(ctx, in)
	assert.ErrorIs(t, err, exchange.ErrUnsupportedCurrency)

	_, err = svc.CreateOrder(ctx, usdtToPLN("0", ""))
	assert.ErrorIs(t, err, exchange.ErrInvalidAmount)

	_, err = svc.CreateOrder(ctx, usdtToPLN("-5", ""))
	assert.ErrorIs(t, err, exchange.ErrInvalidAmount)

	recent, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
	assert.Equal(t, 0, rec.created)
	assert.Len(t, rec.rejected, 4)
}

func TestCreateOrderPersistsNothingWhenRateFails(t *testing.T) {
	store := NewMemoryStore()
	q := &failingQuoter{}
	svc := NewService(store, q, testSettings())

	_, err := svc.CreateOrder(context.Background(), usdtToPLN("1000", ""))
	assert.ErrorIs(t, err, exchange.ErrRateUnavailable)
	assert.Equal(t, int32(1), q.calls.Load())

	recent, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestCreateOrderUnlistedBridgeLeg(t *testing.T) {
	store := NewMemoryStore()
	resolver := rates.NewResolver(tickerStub{"EURUSDT": "1.08"}, rates.Options{Bridge: exchange.EUR})
	svc := NewService(store, resolver, testSettings())

	_, err := svc.CreateOrder(context.Background(), usdtToPLN("1000", ""))
	assert.ErrorIs(t, err, exchange.ErrRateUnavailable)
}

func TestAttachProofRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	crypto, err := svc.CreateOrder(ctx, usdtToPLN("50", ""))
	require.NoError(t, err)

	_, err = svc.AttachProof(ctx, crypto.ID, exchange.Proof{Kind: exchange.ProofReferenceText, Payload: "sent"})
	assert.ErrorIs(t, err, exchange.ErrInvalidProof)
	_, err = svc.AttachProof(ctx, crypto.ID, exchange.Proof{Kind: exchange.ProofTxid, Payload: "two tokens"})
	assert.ErrorIs(t, err, exchange.ErrInvalidProof)
	_, err = svc.AttachProof(ctx, crypto.ID, exchange.Proof{Kind: exchange.ProofTxid, Payload: "   "})
	assert.ErrorIs(t, err, exchange.ErrInvalidProof)

	got, err := svc.Get(ctx, crypto.ID)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusPendingProof, got.Status)
	assert.Nil(t, got.Proof)

	_, err = svc.AttachProof(ctx, crypto.ID, exchange.Proof{Kind: exchange.ProofTxid, Payload: "0xfeed"})
	require.NoError(t, err)
	_, err = svc.AttachProof(ctx, crypto.ID, exchange.Proof{Kind: exchange.ProofTxid, Payload: "0xbeef"})
	assert.ErrorIs(t, err, exchange.ErrInvalidTransition)

	got, err = svc.Get(ctx, crypto.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", got.Proof.Payload)

	fiat, err := svc.CreateOrder(ctx, NewOrder{
		UserID: 7, Direction: exchange.FiatToCrypto,
		Source: exchange.PLN, Target: exchange.USDT,
		Amount: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	_, err = svc.AttachProof(ctx, fiat.ID, exchange.Proof{Kind: exchange.ProofTxid, Payload: "0x1"})
	assert.ErrorIs(t, err, exchange.ErrInvalidProof)
	o, err := svc.AttachProof(ctx, fiat.ID, exchange.Proof{Kind: exchange.ProofReceiptFile, Payload: "AgACAgIAAxkBAAIB"})
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusAwaitingReview, o.Status)

	_, err = svc.AttachProof(ctx, 999, exchange.Proof{Kind: exchange.ProofTxid, Payload: "0x1"})
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
}

func TestTerminalTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, usdtToPLN("10", ""))
	require.NoError(t, err)

	done, err := svc.MarkDone(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusDone, done.Status)

	_, err = svc.MarkDone(ctx, o.ID)
	assert.ErrorIs(t, err, exchange.ErrInvalidTransition)
	_, err = svc.MarkCancelled(ctx, o.ID)
	assert.ErrorIs(t, err, exchange.ErrInvalidTransition)
	_, err = svc.AttachProof(ctx, o.ID, exchange.Proof{Kind: exchange.ProofTxid, Payload: "0x1"})
	assert.ErrorIs(t, err, exchange.ErrInvalidTransition)

	c, err := svc.CreateOrder(ctx, usdtToPLN("10", ""))
	require.NoError(t, err)
	_, err = svc.AttachProof(ctx, c.ID, exchange.Proof{Kind: exchange.ProofTxid, Payload: "0x2"})
	require.NoError(t, err)
	cancelled, err := svc.MarkCancelled(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusCancelled, cancelled.Status)
	_, err = svc.MarkDone(ctx, c.ID)
	assert.ErrorIs(t, err, exchange.ErrInvalidTransition)

	_, err = svc.MarkDone(ctx, 12345)
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
}

func TestConcurrentCreateAssignsDistinctIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := svc.CreateOrder(ctx, usdtToPLN("10", ""))
			if err == nil {
				ids <- o.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, usdtToPLN("10", ""))
	require.NoError(t, err)

	const n = 20
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = svc.MarkDone(ctx, o.ID)
			} else {
				_, err = svc.MarkCancelled(ctx, o.ID)
			}
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, exchange.ErrInvalidTransition):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
	assert.Zero(t, svc.locks.size())
}

func TestQuotePreview(t *testing.T) {
	svc, store := newTestService(t)

	q, err := svc.Quote(context.Background(), exchange.PLN, exchange.USDT)
	require.NoError(t, err)
	assert.Equal(t, "PLN→EUR→USDT", q.Path())

	recent, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
