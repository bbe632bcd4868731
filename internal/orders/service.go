package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/internal/exchange"
)

// Quoter resolves conversion rates. *rates.Resolver satisfies it.
type Quoter interface {
	Resolve(ctx context.Context, source, target exchange.Currency) (exchange.RateQuote, error)
}

// Recorder receives order lifecycle observations.
type Recorder interface {
	OrderCreated(o *exchange.Order)
	OrderTransitioned(from, to exchange.Status)
	OrderRejected(op, code string)
}

// NewOrder is the validated user input of the intake dialogue.
type NewOrder struct {
	UserID    int64
	Username  string
	Lang      string
	Direction exchange.Direction
	Source    exchange.Currency
	Target    exchange.Currency
	Amount    decimal.Decimal
	FeeCode   string
}

// Service is the order state machine. It owns every status change.
type Service struct {
	store    Store
	quoter   Quoter
	settings exchange.Settings
	recorder Recorder
	locks    *keyedMutex
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the state machine.
func NewService(store Store, quoter Quoter, settings exchange.Settings, opts ...Option) *Service {
	s := &Service{
		store:    store,
		quoter:   quoter,
		settings: settings,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the exchange options the service was built with.
func (s *Service) Settings() exchange.Settings { return s.settings }

// Quote previews the rate of a route without creating anything.
func (s *Service) Quote(ctx context.Context, source, target exchange.Currency) (exchange.RateQuote, error) {
	return s.quoter.Resolve(ctx, source, target)
}

// ResolveTier maps a user code to a fee tier using the configured codes.
func (s *Service) ResolveTier(code string) exchange.FeeTier {
	return exchange.ResolveTier(code, s.settings.FeeCodes)
}

// CreateOrder quotes, applies the fee and persists a pending_proof order.
// Nothing is stored when any step fails.
func (s *Service) CreateOrder(ctx context.Context, in NewOrder) (*exchange.Order, error) {
	start := time.Now()
	o, err := s.createOrder(ctx, in)
	if err != nil {
		s.reject(ctx, "create", err,
			slog.Int64("user_id", in.UserID),
			slog.String("pair", exchange.RouteKey(in.Source, in.Target)),
			slog.Duration("duration", time.Since(start)),
		)
		return nil, err
	}
	logger.Info(ctx, logger.CompOrders, "order.create",
		slog.String("status", "ok"),
		slog.Int64("order_id", o.ID),
		slog.Int64("user_id", o.UserID),
		slog.String("pair", exchange.RouteKey(o.Source, o.Target)),
		slog.String("path", o.Quote().Path()),
		slog.String("fee_tier", string(o.FeeTier)),
		slog.String("source_amount", o.SourceAmount.String()),
		slog.String("target_amount", o.TargetAmount.String()),
		slog.Duration("duration", time.Since(start)),
	)
	if s.recorder != nil {
		s.recorder.OrderCreated(o)
	}
	return o, nil
}

func (s *Service) createOrder(ctx context.Context, in NewOrder) (*exchange.Order, error) {
	if err := s.settings.CheckRoute(in.Direction, in.Source, in.Target); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s must be positive", exchange.ErrInvalidAmount, in.Amount)
	}

	quote, err := s.quoter.Resolve(ctx, in.Source, in.Target)
	if err != nil {
		return nil, err
	}
	tier := s.ResolveTier(in.FeeCode)
	target := exchange.RoundFor(exchange.ApplyFee(quote.Convert(in.Amount), tier), in.Target)
	if !target.IsPositive() {
		return nil, fmt.Errorf("%w: %s %s converts to nothing", exchange.ErrInvalidAmount, in.Amount, in.Source)
	}

	now := s.now().UTC()
	return s.store.Create(ctx, &exchange.Order{
		UserID:          in.UserID,
		Username:        in.Username,
		Lang:            in.Lang,
		Direction:       in.Direction,
		Source:          in.Source,
		Target:          in.Target,
		SourceAmount:    in.Amount,
		TargetAmount:    target,
		FeeTier:         tier,
		Rate:            quote.Rate,
		BridgedVia:      quote.BridgedVia,
		RateFetchedAt:   quote.FetchedAt.UTC(),
		Status:          exchange.StatusPendingProof,
		CreatedAt:       now,
		StatusUpdatedAt: now,
	})
}

// AttachProof stores payment evidence and moves the order to awaiting_review.
func (s *Service) AttachProof(ctx context.Context, id int64, p exchange.Proof) (*exchange.Order, error) {
	return s.transition(ctx, "proof", id, func(o *exchange.Order, at time.Time) error {
		return o.AttachProof(p, at)
	})
}

// MarkDone completes a non-terminal order.
func (s *Service) MarkDone(ctx context.Context, id int64) (*exchange.Order, error) {
	return s.transition(ctx, "done", id, func(o *exchange.Order, at time.Time) error {
		return o.Transition(exchange.StatusDone, at)
	})
}

// MarkCancelled cancels a non-terminal order.
func (s *Service) MarkCancelled(ctx context.Context, id int64) (*exchange.Order, error) {
	return s.transition(ctx, "cancel", id, func(o *exchange.Order, at time.Time) error {
		return o.Transition(exchange.StatusCancelled, at)
	})
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id int64) (*exchange.Order, error) {
	return s.store.Get(ctx, id)
}

// ListRecent returns the latest orders, most recent first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*exchange.Order, error) {
	return s.store.ListRecent(ctx, limit)
}

func (s *Service) transition(ctx context.Context, op string, id int64, apply func(*exchange.Order, time.Time) error) (*exchange.Order, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var from exchange.Status
	o, err := s.store.Update(ctx, id, func(o *exchange.Order) error {
		from = o.Status
		return apply(o, s.now().UTC())
	})
	if err != nil {
		s.reject(ctx, op, err, slog.Int64("order_id", id))
		return nil, err
	}
	logger.Info(ctx, logger.CompOrders, "order."+op,
		slog.String("status", "ok"),
		slog.Int64("order_id", id),
		slog.String("from", string(from)),
		slog.String("to", string(o.Status)),
	)
	if s.recorder != nil {
		s.recorder.OrderTransitioned(from, o.Status)
	}
	return o, nil
}

func (s *Service) reject(ctx context.Context, op string, err error, attrs ...slog.Attr) {
	code := exchange.CodeOf(err)
	if code == "" {
		code = "internal"
	}
	attrs = append([]slog.Attr{
		slog.String("status", "fail"),
		slog.String("code", code),
		slog.String("err", err.Error()),
	}, attrs...)
	logger.Warn(ctx, logger.CompOrders, "order."+op, attrs...)
	if s.recorder != nil {
		s.recorder.OrderRejected(op, code)
	}
}
