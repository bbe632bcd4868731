package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/exchangebot/core/config"
	"github.com/m3rciful/exchangebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns the global chain: panic recovery, the optional
// per-user rate limit, then the logging context.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.Recover}}
	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		rl := &middleware.RateLimit{
			Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			Exclude:   make(map[string]bool, len(cfg.RateLimit.ExcludeUpdates)),
			OnLimited: onLimited,
		}
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			rl.Exclude[strings.ToLower(strings.TrimSpace(kind))] = true
		}
		chain = append(chain, Middleware{Name: "rate_limit", Use: rl.Middleware})
	}
	return append(chain, Middleware{Name: "updates", Use: middleware.Updates})
}
