// Package orders owns the order lifecycle and its persistence.
package orders

import (
	"context"

	"github.com/m3rciful/exchangebot/internal/exchange"
)

const (
	// DefaultListLimit is used when ListRecent receives a non-positive limit.
	DefaultListLimit = 10
	// MaxListLimit caps a single ListRecent call.
	MaxListLimit = 100
)

// UpdateFn mutates a loaded order. Returning an error aborts the update.
type UpdateFn func(o *exchange.Order) error

// Store persists orders. Implementations must allocate ids atomically and
// serialize Update calls for the same id.
type Store interface {
	// Create inserts o, assigning ID, CreatedAt and StatusUpdatedAt.
	Create(ctx context.Context, o *exchange.Order) (*exchange.Order, error)
	// Get returns exchange.ErrOrderNotFound for unknown ids.
	Get(ctx context.Context, id int64) (*exchange.Order, error)
	// ListRecent returns at most limit orders, most recent first.
	ListRecent(ctx context.Context, limit int) ([]*exchange.Order, error)
	// Update loads the order, applies fn and persists the result atomically.
	Update(ctx context.Context, id int64, fn UpdateFn) (*exchange.Order, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func cloneOrder(o *exchange.Order) *exchange.Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.Proof != nil {
		p := *o.Proof
		c.Proof = &p
	}
	return &c
}
