// Package rates turns public market prices into conversion quotes.
package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/internal/exchange"
)

const defaultTimeout = 5 * time.Second

// ErrPairNotListed reports that the market does not quote the requested symbol.
var ErrPairNotListed = errors.New("pair not listed")

// PriceSource returns the last price of a trading pair such as "EURUSDT",
// i.e. how many units of the quote asset buy one unit of the base asset.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Observer receives one observation per resolution.
type Observer interface {
	ObserveRate(pair, outcome string, bridged bool, took time.Duration)
}

// Options configure a Resolver.
type Options struct {
	Bridge   exchange.Currency
	Timeout  time.Duration
	Observer Observer
	Now      func() time.Time
}

// Resolver resolves conversion rates for arbitrary currency pairs. Every
// call fetches fresh prices; nothing is cached unless the source does it.
type Resolver struct {
	source   PriceSource
	bridge   exchange.Currency
	timeout  time.Duration
	observer Observer
	now      func() time.Time
}

// NewResolver builds a Resolver over source.
func NewResolver(source PriceSource, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		source:   source,
		bridge:   opts.Bridge,
		timeout:  opts.Timeout,
		observer: opts.Observer,
		now:      opts.Now,
	}
}

// Resolve returns a quote for source→target. A direct market pair is used
// when listed in either orientation, otherwise both legs are resolved
// through the configured bridge. Any failure is reported as
// exchange.ErrRateUnavailable.
func (r *Resolver) Resolve(ctx context.Context, source, target exchange.Currency) (exchange.RateQuote, error) {
	if source == target {
		return exchange.IdentityQuote(source, r.now()), nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	quote, err := r.resolve(ctx, source, target)
	took := time.Since(start)
	pair := exchange.RouteKey(source, target)

	if err != nil {
		logger.Warn(ctx, logger.CompRates, "rate.resolve",
			slog.String("status", "fail"),
			slog.String("pair", pair),
			slog.Duration("duration", took),
			slog.String("err", err.Error()),
		)
		r.observe(pair, "fail", false, took)
		return exchange.RateQuote{}, fmt.Errorf("%w: %s: %v", exchange.ErrRateUnavailable, pair, err)
	}

	logger.Debug(ctx, logger.CompRates, "rate.resolve",
		slog.String("status", "ok"),
		slog.String("pair", pair),
		slog.String("path", quote.Path()),
		slog.String("rate", quote.Rate.String()),
		slog.Duration("duration", took),
	)
	r.observe(pair, "ok", quote.Bridged(), took)
	return quote, nil
}

func (r *Resolver) resolve(ctx context.Context, source, target exchange.Currency) (exchange.RateQuote, error) {
	rate, err := r.leg(ctx, source, target)
	if err == nil {
		return exchange.RateQuote{Source: source, Target: target, Rate: rate, FetchedAt: r.now()}, nil
	}
	if !errors.Is(err, ErrPairNotListed) {
		return exchange.RateQuote{}, err
	}

	bridge := r.bridge
	if bridge == "" || bridge == source || bridge == target {
		return exchange.RateQuote{}, fmt.Errorf("no direct pair and no usable bridge: %w", err)
	}
	in, err := r.leg(ctx, source, bridge)
	if err != nil {
		return exchange.RateQuote{}, fmt.Errorf("bridge leg %s→%s: %w", source, bridge, err)
	}
	out, err := r.leg(ctx, bridge, target)
	if err != nil {
		return exchange.RateQuote{}, fmt.Errorf("bridge leg %s→%s: %w", bridge, target, err)
	}
	return exchange.RateQuote{
		Source:     source,
		Target:     target,
		Rate:       in.Mul(out),
		BridgedVia: bridge,
		FetchedAt:  r.now(),
	}, nil
}

// leg returns how many units of to one unit of from buys, inverting the
// reverse symbol when only that one is listed.
func (r *Resolver) leg(ctx context.Context, from, to exchange.Currency) (decimal.Decimal, error) {
	price, err := r.price(ctx, Symbol(from, to))
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, ErrPairNotListed) {
		return decimal.Zero, err
	}
	price, err = r.price(ctx, Symbol(to, from))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(1).Div(price), nil
}

func (r *Resolver) price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	p, err := r.source.Price(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: non-positive price %s", symbol, p)
	}
	return p, nil
}

func (r *Resolver) observe(pair, outcome string, bridged bool, took time.Duration) {
	if r.observer != nil {
		r.observer.ObserveRate(pair, outcome, bridged, took)
	}
}

// Symbol is the market ticker for base/quote, e.g. Symbol(EUR, USDT) == "EURUSDT".
func Symbol(base, quote exchange.Currency) string {
	return base.String() + quote.String()
}
