package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/exchangebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command together with its menu entry.
type Command struct {
	Name        string
	Description string
	Handler     tele.HandlerFunc
	// AdminOnly commands are routed through the admin check and kept out of the menu.
	AdminOnly bool
}

// Registry collects commands and callback handlers before the bot starts.
type Registry struct {
	mu        sync.RWMutex
	commands  []Command
	callbacks map[string]tele.HandlerFunc
	notFound  tele.HandlerFunc
}

// NewRegistry returns an empty Registry. Unknown callbacks are ignored until
// OnUnknownCallback sets a handler.
func NewRegistry() *Registry {
	return &Registry{callbacks: make(map[string]tele.HandlerFunc)}
}

// AddCommand registers cmd. Names must start with a slash and be unique.
func (r *Registry) AddCommand(cmd Command) error {
	cmd.Name = strings.TrimSpace(cmd.Name)
	switch {
	case cmd.Handler == nil:
		return fmt.Errorf("command %q: nil handler", cmd.Name)
	case !strings.HasPrefix(cmd.Name, "/") || len(cmd.Name) < 2:
		return fmt.Errorf("command %q: name must start with /", cmd.Name)
	case cmd.Description == "":
		return fmt.Errorf("command %q: empty description", cmd.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.commands, func(c Command) bool { return c.Name == cmd.Name }) {
		return fmt.Errorf("command %q: already registered", cmd.Name)
	}
	r.commands = append(r.commands, cmd)
	return nil
}

// Commands returns the registered commands in registration order.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.commands)
}

// Menu lists the commands shown to every user.
func (r *Registry) Menu() []tele.Command {
	var out []tele.Command
	for _, c := range r.Commands() {
		if !c.AdminOnly {
			out = append(out, tele.Command{Text: strings.TrimPrefix(c.Name, "/"), Description: c.Description})
		}
	}
	return out
}

// AddCallback maps a callback key to h.
func (r *Registry) AddCallback(key string, h tele.HandlerFunc) error {
	if key = strings.TrimSpace(key); key == "" || h == nil {
		return errors.New("callback: empty key or nil handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.callbacks[key]; ok {
		return fmt.Errorf("callback %q: already registered", key)
	}
	r.callbacks[key] = h
	return nil
}

// Callback returns the handler for key. found is false when the unknown
// callback handler, possibly nil, is returned instead.
func (r *Registry) Callback(key string) (h tele.HandlerFunc, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, found = r.callbacks[key]; found {
		return h, true
	}
	return r.notFound, false
}

// CallbackKeys returns the registered keys, sorted.
func (r *Registry) CallbackKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// OnUnknownCallback replaces the handler for unregistered callback keys.
func (r *Registry) OnUnknownCallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.notFound = h
	r.mu.Unlock()
}

// publishMenu sends the public command list to Telegram. Failure is logged
// and does not stop the bot.
func publishMenu(ctx context.Context, bot *tele.Bot, reg *Registry) {
	menu := reg.Menu()
	if err := bot.SetCommands(menu); err != nil {
		logger.Warn(ctx, logger.CompWire, "commands.publish",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	logger.Info(ctx, logger.CompWire, "commands.publish",
		slog.String("status", "ok"),
		slog.Int("count", len(menu)),
	)
}
