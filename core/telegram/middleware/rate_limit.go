package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/exchangebot/core/logger"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Update kinds understood by RateLimit.Exclude.
const (
	KindCallback    = "callback"
	KindMessage     = "message"
	KindInlineQuery = "inline_query"
	KindOther       = "other"
)

// RateLimit drops updates that arrive from one user faster than Interval.
type RateLimit struct {
	Interval  time.Duration
	Exclude   map[string]bool
	OnLimited tele.HandlerFunc

	mu     sync.Mutex
	seen   map[int64]time.Time
	pruned time.Time
	now    func() time.Time
}

// Middleware returns the limiter as a telebot middleware.
func (l *RateLimit) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		u := c.Sender()
		kind := updateKind(c.Update())
		if u == nil || l.Interval <= 0 || l.Exclude[kind] || l.allow(u.ID) {
			return next(c)
		}
		logger.Warn(tghelpers.BuildContext(c), logger.CompTG, "tg.rate_limit",
			slog.String("status", "rate_limited"),
			slog.String("kind", kind),
		)
		if l.OnLimited != nil {
			return l.OnLimited(c)
		}
		return nil
	}
}

func (l *RateLimit) allow(user int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now == nil {
		l.now = time.Now
	}
	if l.seen == nil {
		l.seen = make(map[int64]time.Time)
	}
	now := l.now()
	// Forget idle users once per minute so the map does not grow forever.
	if now.Sub(l.pruned) > time.Minute {
		for id, at := range l.seen {
			if now.Sub(at) >= l.Interval {
				delete(l.seen, id)
			}
		}
		l.pruned = now
	}
	if last, ok := l.seen[user]; ok && now.Sub(last) < l.Interval {
		return false
	}
	l.seen[user] = now
	return true
}

func updateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return KindCallback
	case u.Message != nil:
		return KindMessage
	case u.Query != nil:
		return KindInlineQuery
	}
	return KindOther
}
