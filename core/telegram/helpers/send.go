package helpers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const (
	keyMessages = "exchangebot.out.messages"
	keyKeyboard = "exchangebot.out.kb"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes helper sends through d. Nil makes them synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// Poster is the part of *tele.Bot used for messages outside a reply context.
type Poster interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Counters reports how many messages the current update queued and
// whether any carried a keyboard.
func Counters(c tele.Context) (messages int, keyboard bool) {
	messages, _ = c.Get(keyMessages).(int)
	keyboard, _ = c.Get(keyKeyboard).(bool)
	return messages, keyboard
}

func count(c tele.Context, markup *tele.ReplyMarkup) {
	n, _ := c.Get(keyMessages).(int)
	c.Set(keyMessages, n+1)
	if markup != nil {
		c.Set(keyKeyboard, true)
	}
}

// enqueue hands run to the dispatcher. A full or closed queue degrades to
// sending inline so a reply is never silently lost.
func enqueue(ctx context.Context, chat int64, action string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	err := d.Enqueue(ctx, chat, action, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, logger.CompSender, "send.inline",
			slog.String("action", action),
			slog.String("reason", err.Error()),
		)
		return run()
	}
	return err
}

func chatOf(c tele.Context) int64 {
	if ch := c.Chat(); ch != nil {
		return ch.ID
	}
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

func options(markup []*tele.ReplyMarkup) (*tele.SendOptions, *tele.ReplyMarkup) {
	opts := &tele.SendOptions{}
	if len(markup) > 0 && markup[0] != nil {
		opts.ReplyMarkup = markup[0]
	}
	return opts, opts.ReplyMarkup
}

// SendText sends plain text to the current chat.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts, kb := options(markup)
	count(c, kb)
	return enqueue(BuildContext(c), chatOf(c), "send.text", func() error {
		return c.Send(text, opts)
	})
}

// EditOrSendText replaces the message behind a callback, or sends a new one.
func EditOrSendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts, kb := options(markup)
	count(c, kb)
	return enqueue(BuildContext(c), chatOf(c), "send.edit", func() error {
		return c.EditOrSend(text, opts)
	})
}

// SendTo delivers what to an arbitrary chat, e.g. the operator.
func SendTo(ctx context.Context, bot Poster, to tele.Recipient, what interface{}, opts ...interface{}) error {
	if bot == nil || to == nil {
		return errors.New("telegram sender: nil bot or recipient")
	}
	chat, _ := strconv.ParseInt(to.Recipient(), 10, 64)
	return enqueue(ctx, chat, "send.to", func() error {
		_, err := bot.Send(to, what, opts...)
		return err
	})
}
