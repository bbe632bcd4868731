package bot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/exchangebot/core/logger"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"
	"github.com/m3rciful/exchangebot/internal/exchange"

	tele "gopkg.in/telebot.v4"
)

// notifier pushes messages outside the current chat: order events to the
// admin and final outcomes to customers. Delivery goes through the sender
// dispatcher so handlers never wait on it.
type notifier struct {
	poster   tghelpers.Poster
	adminID  int64
	langOf   func(userID int64) string
	settings exchange.Settings
}

func (n *notifier) send(ctx context.Context, event string, to int64, what interface{}) {
	if n.poster == nil || to == 0 {
		logger.Debug(ctx, logger.CompTG, "notify.skip",
			slog.String("event", event),
			slog.Int64("chat_id", to),
		)
		return
	}
	if err := tghelpers.SendTo(ctx, n.poster, tele.ChatID(to), what); err != nil {
		logger.Warn(ctx, logger.CompTG, "notify.fail",
			slog.String("event", event),
			slog.Int64("chat_id", to),
			slog.String("err", err.Error()),
		)
	}
}

func (n *notifier) orderCreated(ctx context.Context, o *exchange.Order) {
	n.send(ctx, "admin.new_order", n.adminID, tr(n.langOf(n.adminID), "admin_new_order", orderPairs(o)...))
}

// proofSubmitted reports the proof and forwards the receipt file, if any.
func (n *notifier) proofSubmitted(ctx context.Context, o *exchange.Order, receipt tele.Sendable) {
	if o.Proof == nil {
		return
	}
	lang := n.langOf(n.adminID)
	n.send(ctx, "admin.proof", n.adminID, tr(lang, "admin_proof",
		"order_id", formatID(o.ID),
		"proof_type", string(o.Proof.Kind),
		"proof_value", o.Proof.Payload,
	))
	if receipt != nil {
		n.send(ctx, "admin.receipt", n.adminID, receipt)
	}
}

func (n *notifier) customerOutcome(ctx context.Context, o *exchange.Order) {
	key := "order_done"
	if o.Status == exchange.StatusCancelled {
		key = "order_cancelled"
	}
	lang := o.Lang
	if lang == "" {
		lang = n.langOf(o.UserID)
	}
	n.send(ctx, "customer."+string(o.Status), o.UserID, tr(lang, key, "order_id", formatID(o.ID)))
}
