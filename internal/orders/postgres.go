package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/internal/exchange"
)

const orderColumns = `id, user_id, username, lang, direction, source_currency, target_currency,
	source_amount, target_amount, fee_tier, rate, bridged_via, rate_fetched_at,
	proof_kind, proof_payload, status, created_at, status_updated_at`

type orderRow struct {
	ID              int64           `db:"id"`
	UserID          int64           `db:"user_id"`
	Username        string          `db:"username"`
	Lang            string          `db:"lang"`
	Direction       string          `db:"direction"`
	SourceCurrency  string          `db:"source_currency"`
	TargetCurrency  string          `db:"target_currency"`
	SourceAmount    decimal.Decimal `db:"source_amount"`
	TargetAmount    decimal.Decimal `db:"target_amount"`
	FeeTier         string          `db:"fee_tier"`
	Rate            decimal.Decimal `db:"rate"`
	BridgedVia      string          `db:"bridged_via"`
	RateFetchedAt   time.Time       `db:"rate_fetched_at"`
	ProofKind       sql.NullString  `db:"proof_kind"`
	ProofPayload    sql.NullString  `db:"proof_payload"`
	Status          string          `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
	StatusUpdatedAt time.Time       `db:"status_updated_at"`
}

func (r orderRow) toDomain() (*exchange.Order, error) {
	dir, err := exchange.ParseDirection(r.Direction)
	if err != nil {
		return nil, err
	}
	src, err := exchange.ParseCurrency(r.SourceCurrency)
	if err != nil {
		return nil, err
	}
	dst, err := exchange.ParseCurrency(r.TargetCurrency)
	if err != nil {
		return nil, err
	}
	tier, err := exchange.ParseFeeTier(r.FeeTier)
	if err != nil {
		return nil, err
	}
	status, err := exchange.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	o := &exchange.Order{
		ID:              r.ID,
		UserID:          r.UserID,
		Username:        r.Username,
		Lang:            r.Lang,
		Direction:       dir,
		Source:          src,
		Target:          dst,
		SourceAmount:    r.SourceAmount,
		TargetAmount:    r.TargetAmount,
		FeeTier:         tier,
		Rate:            r.Rate,
		BridgedVia:      exchange.Currency(r.BridgedVia),
		RateFetchedAt:   r.RateFetchedAt.UTC(),
		Status:          status,
		CreatedAt:       r.CreatedAt.UTC(),
		StatusUpdatedAt: r.StatusUpdatedAt.UTC(),
	}
	if r.ProofKind.Valid {
		kind, err := exchange.ParseProofKind(r.ProofKind.String)
		if err != nil {
			return nil, err
		}
		o.Proof = &exchange.Proof{Kind: kind, Payload: r.ProofPayload.String}
	}
	return o, nil
}

// PostgresStore persists orders in the orders table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create implements Store. The id comes from the BIGSERIAL sequence.
func (s *PostgresStore) Create(ctx context.Context, o *exchange.Order) (*exchange.Order, error) {
	const q = `INSERT INTO orders (user_id, username, lang, direction, source_currency, target_currency,
	source_amount, target_amount, fee_tier, rate, bridged_via, rate_fetched_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, created_at, status_updated_at`

	start := time.Now()
	out := cloneOrder(o)
	err := s.db.QueryRowxContext(ctx, q,
		o.UserID, o.Username, o.Lang, string(o.Direction), o.Source.String(), o.Target.String(),
		o.SourceAmount, o.TargetAmount, string(o.FeeTier), o.Rate, o.BridgedVia.String(), o.RateFetchedAt,
		string(o.Status),
	).Scan(&out.ID, &out.CreatedAt, &out.StatusUpdatedAt)
	if err != nil {
		logger.Error(ctx, logger.CompDB, "orders.insert",
			slog.String("status", "fail"),
			slog.Duration("duration", time.Since(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("insert order: %w", err)
	}
	out.CreatedAt = out.CreatedAt.UTC()
	out.StatusUpdatedAt = out.StatusUpdatedAt.UTC()
	logger.Debug(ctx, logger.CompDB, "orders.insert",
		slog.String("status", "ok"),
		slog.Int64("order_id", out.ID),
		slog.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*exchange.Order, error) {
	return s.get(ctx, s.db, id, false)
}

func (s *PostgresStore) get(ctx context.Context, q sqlx.QueryerContext, id int64, forUpdate bool) (*exchange.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row orderRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", exchange.ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("select order %d: %w", id, err)
	}
	return row.toDomain()
}

// ListRecent implements Store.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*exchange.Order, error) {
	var rows []orderRow
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY id DESC LIMIT $1`
	if err := s.db.SelectContext(ctx, &rows, query, normalizeLimit(limit)); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]*exchange.Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", r.ID, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// Update implements Store. The row stays locked for the whole transaction.
func (s *PostgresStore) Update(ctx context.Context, id int64, fn UpdateFn) (*exchange.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	o, err := s.get(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}

	var kind, payload sql.NullString
	if o.Proof != nil {
		kind = sql.NullString{String: string(o.Proof.Kind), Valid: true}
		payload = sql.NullString{String: o.Proof.Payload, Valid: true}
	}
	const q = `UPDATE orders SET status = $1, proof_kind = $2, proof_payload = $3, status_updated_at = $4 WHERE id = $5`
	if _, err := tx.ExecContext(ctx, q, string(o.Status), kind, payload, o.StatusUpdatedAt, id); err != nil {
		return nil, fmt.Errorf("update order %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order %d: %w", id, err)
	}
	return o, nil
}
