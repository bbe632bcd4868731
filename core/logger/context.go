package logger

import (
	"context"
	"log/slog"
	"strconv"
)

type ctxKey int

const (
	keyMeta ctxKey = iota
	keyLogger
)

// UpdateMeta identifies the Telegram update a log line belongs to.
type UpdateMeta struct {
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
}

// RID renders the correlation id update.chat.user in base36.
func (m UpdateMeta) RID() string {
	return strconv.FormatInt(int64(m.UpdateID), 36) + "." +
		strconv.FormatInt(m.ChatID, 36) + "." +
		strconv.FormatInt(m.UserID, 36)
}

func (m UpdateMeta) attrs() []slog.Attr {
	out := []slog.Attr{slog.String("rid", m.RID())}
	if m.UpdateID != 0 {
		out = append(out, slog.Int("update_id", m.UpdateID))
	}
	if m.UserID != 0 {
		out = append(out, slog.Int64("user_id", m.UserID))
	}
	if m.ChatID != 0 {
		out = append(out, slog.Int64("chat_id", m.ChatID))
	}
	if m.Handler != "" {
		out = append(out, slog.String("handler", m.Handler))
	}
	return out
}

// WithUpdate attaches update metadata to ctx. Every event logged with the
// returned context carries rid, update_id, user_id and chat_id.
func WithUpdate(ctx context.Context, m UpdateMeta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, keyMeta, m)
}

// MetaFrom returns the update metadata stored in ctx.
func MetaFrom(ctx context.Context) (UpdateMeta, bool) {
	if ctx == nil {
		return UpdateMeta{}, false
	}
	m, ok := ctx.Value(keyMeta).(UpdateMeta)
	return m, ok
}

// WithHandler records the handler name in the update metadata.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return ctx
	}
	m, _ := MetaFrom(ctx)
	m.Handler = handler
	return WithUpdate(ctx, m)
}

// WithLogger stores log in ctx.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx or the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(keyLogger).(*slog.Logger); ok {
			return l
		}
	}
	return L
}
