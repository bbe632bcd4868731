package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/exchangebot/core/bootstrap"
	"github.com/m3rciful/exchangebot/core/buildinfo"
	corecmd "github.com/m3rciful/exchangebot/core/cmd"
	"github.com/m3rciful/exchangebot/core/logger"
	coretelegram "github.com/m3rciful/exchangebot/core/telegram"
	"github.com/m3rciful/exchangebot/internal/bot"
	"github.com/m3rciful/exchangebot/internal/config"
	"github.com/m3rciful/exchangebot/internal/metrics"
	"github.com/m3rciful/exchangebot/internal/orders"
	"github.com/m3rciful/exchangebot/internal/rates"
	"github.com/m3rciful/exchangebot/migrations"
)

// wire connects storage, pricing, the order service and the Telegram bot.
func wire(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, logger.CompApp, "app.build",
		slog.String("build", buildinfo.String()),
	)

	m := metrics.New()

	var store orders.Store
	switch {
	case res.DB != nil:
		store = orders.NewPostgresStore(res.DB)
	case cfg.UseMemoryStore():
		logger.Warn(ctx, logger.CompOrders, "store.memory",
			slog.String("reason", "orders.memory_store set, orders are lost on restart"),
		)
		store = orders.NewMemoryStore()
	default:
		_ = res.Close()
		return nil, config.ErrNoOrderStore
	}

	var source rates.PriceSource = rates.NewBinanceSource(cfg.Exchange.PriceSource.BaseURL, nil)
	var rdb *redis.Client
	if cfg.Redis.Enabled() && cfg.RateCacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, logger.CompRates, "price.cache",
				slog.String("status", "fail"),
				slog.String("addr", cfg.Redis.Addr),
				slog.String("err", err.Error()),
			)
		}
		source = rates.NewCachedSource(source, rates.NewRedisKV(rdb), cfg.RateCacheTTL())
	}

	settings, err := cfg.ExchangeSettings()
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	resolver := rates.NewResolver(source, rates.Options{
		Bridge:   settings.Bridge,
		Timeout:  settings.QuoteTimeout,
		Observer: m,
	})
	svc := orders.NewService(store, resolver, settings, orders.WithRecorder(m))

	return bot.New(bot.Options{
		Config:   cfg,
		Orders:   svc,
		Observer: m,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			if cfg.Metrics.Listen != "" {
				go func() {
					_ = m.Serve(ctx, cfg.Metrics.Listen)
				}()
			}
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			var errs []error
			if rdb != nil {
				errs = append(errs, rdb.Close())
			}
			errs = append(errs, res.Close())
			return errors.Join(errs...)
		},
	})
}
