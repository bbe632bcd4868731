package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/exchangebot/core/logger"
)

const (
	attemptTimeout = 5 * time.Second
	retryEvery     = 2 * time.Second
)

// Connect opens and pings the pool, retrying until the server answers or
// cfg's wait budget runs out.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	target := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.port()),
		slog.String("db", cfg.Name),
	}
	start := time.Now()
	deadline := start.Add(cfg.wait())

	for attempt := 1; ; attempt++ {
		db, err := open(ctx, cfg)
		if err == nil {
			logger.Info(ctx, logger.CompDB, "db.connect", append(target,
				slog.String("status", "ok"),
				slog.Int("attempts", attempt),
				slog.Int("pool_open", cfg.pool()),
				slog.Duration("duration", time.Since(start)),
			)...)
			return db, nil
		}
		if time.Now().Add(retryEvery).After(deadline) {
			logger.Error(ctx, logger.CompDB, "db.connect", append(target,
				slog.String("status", "fail"),
				slog.Int("attempts", attempt),
				slog.String("err", err.Error()),
			)...)
			return nil, fmt.Errorf("db connect after %d attempts: %w", attempt, err)
		}
		logger.Debug(ctx, logger.CompDB, "db.connect.retry", append(target,
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)...)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryEvery):
		}
	}
}

func open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.KeywordDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.pool())
	db.SetMaxIdleConns(cfg.pool())
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}
