package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/exchangebot/internal/exchange"
)

func seedOrders(t *testing.T, s Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.Create(context.Background(), &exchange.Order{
			UserID:       int64(i + 1),
			Direction:    exchange.CryptoToFiat,
			Source:       exchange.USDT,
			Target:       exchange.PLN,
			SourceAmount: decimal.NewFromInt(int64(10 * (i + 1))),
			TargetAmount: decimal.NewFromInt(int64(39 * (i + 1))),
			FeeTier:      exchange.TierStandard,
			Rate:         decimal.RequireFromString("3.98"),
			Status:       exchange.StatusPendingProof,
		})
		require.NoError(t, err)
	}
}

func TestMemoryStoreListRecent(t *testing.T) {
	s := NewMemoryStore()
	seedOrders(t, s, 15)
	ctx := context.Background()

	list, err := s.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{15, 14, 13}, []int64{list[0].ID, list[1].ID, list[2].ID})

	again, err := s.ListRecent(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, list, again)

	list, err = s.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, DefaultListLimit)

	list, err = s.ListRecent(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, list, 15)
}

func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore()
	seedOrders(t, s, 1)
	ctx := context.Background()

	o, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, o.CreatedAt.IsZero())
	o.Status = exchange.StatusDone

	fresh, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusPendingProof, fresh.Status)

	_, err = s.Update(ctx, 1, func(o *exchange.Order) error {
		o.Status = exchange.StatusCancelled
		return errors.New("abort")
	})
	require.Error(t, err)
	fresh, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusPendingProof, fresh.Status)

	_, err = s.Get(ctx, 2)
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
	_, err = s.Update(ctx, 2, func(*exchange.Order) error { return nil })
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
}
