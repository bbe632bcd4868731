// Package router binds a Registry to telebot endpoints and writes one
// handler.handled line per routed update.
package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/m3rciful/exchangebot/core/logger"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Observer receives one call per routed update.
type Observer func(handler, outcome string, took time.Duration)

var observer atomic.Pointer[Observer]

// SetObserver installs the per-update hook. Nil removes it.
func SetObserver(fn Observer) {
	if fn == nil {
		observer.Store(nil)
		return
	}
	observer.Store(&fn)
}

const outcomeSkip = "skip"

// handle runs h under name and summarizes the result. A nil h is logged as
// skipped.
func handle(c tele.Context, name string, h tele.HandlerFunc, extra ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)

	var err error
	outcome := outcomeSkip
	if h != nil {
		err = h(c)
		outcome = logger.Status(err)
	}
	took := time.Since(start)
	msgs, kb := tghelpers.Counters(c)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", took),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(ctx, logger.CompTG, "handler.handled", append(attrs, extra...)...)

	if fn := observer.Load(); fn != nil {
		(*fn)(name, outcome, took)
	}
	return err
}

// handlerName turns "/admin_done" into "admin_done".
func handlerName(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(raw, " ", "_"))
}

type coded interface{ Code() string }

// errorCode prefers a Code() from the error chain and falls back to the
// concrete type name.
func errorCode(err error) string {
	var c coded
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
