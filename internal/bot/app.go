// Package bot is the Telegram surface of the exchange: the intake dialogue,
// admin commands and notifications.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/exchangebot/core/logger"
	coretelegram "github.com/m3rciful/exchangebot/core/telegram"
	"github.com/m3rciful/exchangebot/core/telegram/router"
	"github.com/m3rciful/exchangebot/core/telegram/state"
	"github.com/m3rciful/exchangebot/internal/config"
	"github.com/m3rciful/exchangebot/internal/exchange"
	"github.com/m3rciful/exchangebot/internal/orders"

	tele "gopkg.in/telebot.v4"
)

// OrderService is the order state machine as seen by the transport.
// *orders.Service satisfies it.
type OrderService interface {
	Settings() exchange.Settings
	CreateOrder(ctx context.Context, in orders.NewOrder) (*exchange.Order, error)
	AttachProof(ctx context.Context, id int64, p exchange.Proof) (*exchange.Order, error)
	MarkDone(ctx context.Context, id int64) (*exchange.Order, error)
	MarkCancelled(ctx context.Context, id int64) (*exchange.Order, error)
	Get(ctx context.Context, id int64) (*exchange.Order, error)
	ListRecent(ctx context.Context, limit int) ([]*exchange.Order, error)
}

// HandlerObserver receives one observation per routed update.
type HandlerObserver interface {
	ObserveHandler(handler, outcome string, took time.Duration)
}

// Options wires a Bot.
type Options struct {
	Config   *config.Config
	Orders   OrderService
	Sessions state.Manager
	Observer HandlerObserver

	OnStart func(ctx context.Context, rt coretelegram.Runtime) error
	OnStop  func(ctx context.Context, rt coretelegram.Runtime) error
}

// Bot implements cmd.TelegramApp.
type Bot struct {
	cfg      *config.Config
	orders   OrderService
	settings exchange.Settings
	sessions state.Manager
	observer HandlerObserver
	notify   *notifier

	onStart func(ctx context.Context, rt coretelegram.Runtime) error
	onStop  func(ctx context.Context, rt coretelegram.Runtime) error
}

// New validates the wiring and builds the bot.
func New(opts Options) (*Bot, error) {
	if opts.Config == nil {
		return nil, errors.New("bot: nil config")
	}
	if opts.Orders == nil {
		return nil, errors.New("bot: nil order service")
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = state.NewMemory(state.WithIdleTimeout(sessionIdle))
	}
	b := &Bot{
		cfg:      opts.Config,
		orders:   opts.Orders,
		settings: opts.Orders.Settings(),
		sessions: sessions,
		observer: opts.Observer,
		onStart:  opts.OnStart,
		onStop:   opts.OnStop,
	}
	b.notify = &notifier{
		adminID:  opts.Config.Telegram.AdminID,
		langOf:   func(id int64) string { return b.langFor(id, "") },
		settings: b.settings,
	}
	return b, nil
}

// TelegramRunOptions assembles the registry, routes and lifecycle hooks.
func (b *Bot) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := b.registerCommands(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}
	if err := b.registerCallbacks(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}
	reg.OnUnknownCallback(b.onUnsupportedAction)

	b.sessions.Handle(stateAmount, b.onAmount)
	b.sessions.Handle(stateFee, b.onFeeCode)
	b.sessions.Handle(stateProof, b.onProof)

	core := b.cfg.CoreConfig()
	routes := router.Routes(reg, router.Options{
		AdminID:       core.Telegram.AdminID,
		OnAdminReject: b.onNotAdmin,
		Dialogue:      b.sessions,
		OnUnknown:     b.onUnknown,
	})

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, b.onSlowDown),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			b.notify.poster = rt.Bot
			if b.observer != nil {
				router.SetObserver(b.observer.ObserveHandler)
			}
			if core.Telegram.AdminID == 0 {
				logger.Warn(ctx, logger.CompTG, "admin.missing",
					slog.String("reason", "telegram.admin_id not set, admin commands and notifications disabled"),
				)
			}
			if b.onStart != nil {
				return b.onStart(ctx, rt)
			}
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			router.SetObserver(nil)
			if b.onStop != nil {
				return b.onStop(ctx, rt)
			}
			return nil
		},
	}, nil
}

func (b *Bot) registerCommands(reg *coretelegram.Registry) error {
	for _, cmd := range []coretelegram.Command{
		{Name: "/start", Description: "Start a new exchange", Handler: b.onStartCommand},
		{Name: "/help", Description: "Show help", Handler: b.onHelp},
		{Name: "/lang", Description: "Change language", Handler: b.onLangCommand},
		{Name: "/cancel", Description: "Abort the current dialogue", Handler: b.onCancelCommand},
		{Name: "/admin_orders", Description: "List recent orders", Handler: b.onAdminOrders, AdminOnly: true},
		{Name: "/admin_done", Description: "Mark an order done", Handler: b.onAdminDone, AdminOnly: true},
		{Name: "/admin_cancel", Description: "Cancel an order", Handler: b.onAdminCancel, AdminOnly: true},
	} {
		if err := reg.AddCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) registerCallbacks(reg *coretelegram.Registry) error {
	for key, h := range map[string]tele.HandlerFunc{
		cbLang:   b.onLangPick,
		cbDir:    b.onDirection,
		cbFrom:   b.onFrom,
		cbTo:     b.onTo,
		cbSent:   b.onSent,
		cbCancel: b.onCancelPick,
	} {
		if err := reg.AddCallback(key, h); err != nil {
			return err
		}
	}
	return nil
}
