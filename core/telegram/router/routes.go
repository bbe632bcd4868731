package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/exchangebot/core/logger"
	tg "github.com/m3rciful/exchangebot/core/telegram"
	"github.com/m3rciful/exchangebot/core/telegram/callbacks"
	"github.com/m3rciful/exchangebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Dialogue is the session manager as seen by the free-input routes.
type Dialogue interface {
	InProgress(userID int64) bool
	Dispatch(c tele.Context) error
}

// Options configures Routes.
type Options struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc

	// Dialogue receives text and media while the sender is mid-conversation.
	Dialogue Dialogue
	// OnUnknown answers text and media outside a conversation.
	OnUnknown tele.HandlerFunc
}

// Routes binds every registered command, the callback dispatcher and the
// free-input endpoints.
func Routes(reg *tg.Registry, opts Options) []tg.Route {
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds)+4)
	admin := middleware.AdminOnly(opts.AdminID, opts.OnAdminReject)
	for _, cmd := range cmds {
		h, name := cmd.Handler, handlerName(cmd.Name)
		if cmd.AdminOnly {
			h = admin(h)
		}
		routes = append(routes, tg.Route{
			Endpoint: cmd.Name,
			Handler:  func(c tele.Context) error { return handle(c, name, h) },
		})
	}

	routes = append(routes, tg.Route{Endpoint: tele.OnCallback, Handler: callbackHandler(reg)})

	text := inputHandler(opts, "text")
	media := inputHandler(opts, "media")
	routes = append(routes,
		tg.Route{Endpoint: tele.OnText, Handler: text},
		tg.Route{Endpoint: tele.OnPhoto, Handler: media},
		tg.Route{Endpoint: tele.OnDocument, Handler: media},
	)

	logger.Info(context.Background(), logger.CompWire, "tg.wire",
		slog.String("status", "ok"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.CallbackKeys())),
	)
	return routes
}

func callbackHandler(reg *tg.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		key, _ := callbacks.Parse(c.Callback())
		h, found := reg.Callback(key)
		extra := []slog.Attr{slog.String("cb_key", logger.SanitizeLimit(key, 64))}
		if !found {
			extra = append(extra, slog.String("reason", "not_found"))
		}
		// Stop the client spinner even when the handler sends nothing.
		_ = c.Respond()
		return handle(c, "callback."+handlerName(key), h, extra...)
	}
}

// inputHandler feeds free input to the active dialogue step, or to
// OnUnknown when there is none.
func inputHandler(opts Options, kind string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if u := c.Sender(); opts.Dialogue != nil && u != nil && opts.Dialogue.InProgress(u.ID) {
			return handle(c, "dialogue."+kind, opts.Dialogue.Dispatch)
		}
		return handle(c, "unknown."+kind, opts.OnUnknown)
	}
}
