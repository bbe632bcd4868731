package bot

import (
	"context"
	"strconv"
	"strings"

	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"
	"github.com/m3rciful/exchangebot/internal/exchange"
	"github.com/m3rciful/exchangebot/internal/orders"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) onAdminOrders(c tele.Context) error {
	lang := b.lang(c)
	limit := orders.DefaultListLimit
	if args := c.Args(); len(args) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil && n > 0 {
			limit = n
		}
	}
	list, err := b.orders.ListRecent(tghelpers.BuildContext(c), limit)
	if err != nil {
		return b.replyError(c, lang, err, 0)
	}
	return tghelpers.SendText(c, orderListText(lang, list))
}

func orderListText(lang string, list []*exchange.Order) string {
	if len(list) == 0 {
		return tr(lang, "admin_list_empty")
	}
	lines := make([]string, 0, len(list)+1)
	lines = append(lines, tr(lang, "admin_list_header"))
	for _, o := range list {
		lines = append(lines, tr(lang, "admin_list_line", orderPairs(o)...))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) onAdminDone(c tele.Context) error {
	return b.adminTransition(c, "/admin_done", b.orders.MarkDone)
}

func (b *Bot) onAdminCancel(c tele.Context) error {
	return b.adminTransition(c, "/admin_cancel", b.orders.MarkCancelled)
}

func (b *Bot) adminTransition(c tele.Context, command string, apply func(context.Context, int64) (*exchange.Order, error)) error {
	lang := b.lang(c)
	args := c.Args()
	if len(args) == 0 {
		return tghelpers.SendText(c, tr(lang, "admin_usage", "command", command))
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(args[0]), "#"), 10, 64)
	if err != nil || id <= 0 {
		return tghelpers.SendText(c, tr(lang, "admin_usage", "command", command))
	}

	ctx := tghelpers.BuildContext(c)
	o, err := apply(ctx, id)
	if err != nil {
		return b.replyError(c, lang, err, id)
	}
	if err := tghelpers.SendText(c, tr(lang, "admin_marked", "order_id", formatID(id), "status", string(o.Status))); err != nil {
		return err
	}
	b.notify.customerOutcome(ctx, o)
	return nil
}
