package middleware

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type updateContext struct {
	tele.Context
	user *tele.User
	upd  tele.Update
}

func (c updateContext) Sender() *tele.User       { return c.user }
func (c updateContext) Update() tele.Update      { return c.upd }
func (c updateContext) Chat() *tele.Chat         { return nil }
func (c updateContext) Get(string) any           { return nil }
func (c updateContext) Set(string, any)          {}
func (c updateContext) Callback() *tele.Callback { return c.upd.Callback }

func TestRateLimit(t *testing.T) {
	clock := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	limited := 0
	l := &RateLimit{
		Interval:  time.Second,
		Exclude:   map[string]bool{KindCallback: true},
		OnLimited: func(tele.Context) error { limited++; return nil },
		now:       func() time.Time { return clock },
	}
	passed := 0
	h := l.Middleware(func(tele.Context) error { passed++; return nil })

	msg := updateContext{user: &tele.User{ID: 1}, upd: tele.Update{ID: 1, Message: &tele.Message{}}}
	other := updateContext{user: &tele.User{ID: 2}, upd: tele.Update{ID: 2, Message: &tele.Message{}}}
	cb := updateContext{user: &tele.User{ID: 1}, upd: tele.Update{ID: 3, Callback: &tele.Callback{}}}

	_ = h(msg)
	_ = h(msg)
	_ = h(other)
	_ = h(cb)
	if passed != 3 || limited != 1 {
		t.Fatalf("passed=%d limited=%d, want 3 and 1", passed, limited)
	}

	clock = clock.Add(time.Second)
	_ = h(msg)
	if passed != 4 {
		t.Fatalf("interval elapsed, update should pass (passed=%d)", passed)
	}

	clock = clock.Add(2 * time.Minute)
	_ = h(other)
	if len(l.seen) != 1 {
		t.Fatalf("idle users should be pruned, have %d", len(l.seen))
	}
}
