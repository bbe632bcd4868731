package router

import (
	"errors"
	"testing"
	"time"

	tg "github.com/m3rciful/exchangebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

type update struct {
	tele.Context
	user      *tele.User
	cb        *tele.Callback
	store     map[string]any
	responded int
}

func newUpdate(userID int64) *update {
	return &update{user: &tele.User{ID: userID}, store: map[string]any{}}
}

func (u *update) Sender() *tele.User                      { return u.user }
func (u *update) Chat() *tele.Chat                        { return &tele.Chat{ID: u.user.ID} }
func (u *update) Update() tele.Update                     { return tele.Update{ID: 9} }
func (u *update) Callback() *tele.Callback                { return u.cb }
func (u *update) Get(k string) any                        { return u.store[k] }
func (u *update) Set(k string, v any)                     { u.store[k] = v }
func (u *update) Respond(...*tele.CallbackResponse) error { u.responded++; return nil }

type dialogue struct {
	active map[int64]bool
	calls  int
}

func (d *dialogue) InProgress(id int64) bool    { return d.active[id] }
func (d *dialogue) Dispatch(tele.Context) error { d.calls++; return nil }

func routeFor(t *testing.T, routes []tg.Route, endpoint any) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

func TestRoutesAdminCommand(t *testing.T) {
	reg := tg.NewRegistry()
	ran, rejected := 0, 0
	if err := reg.AddCommand(tg.Command{Name: "/admin_done", Description: "d", AdminOnly: true,
		Handler: func(tele.Context) error { ran++; return nil }}); err != nil {
		t.Fatal(err)
	}
	routes := Routes(reg, Options{AdminID: 1, OnAdminReject: func(tele.Context) error { rejected++; return nil }})
	h := routeFor(t, routes, "/admin_done")

	_ = h(newUpdate(2))
	_ = h(newUpdate(1))
	if ran != 1 || rejected != 1 {
		t.Fatalf("ran=%d rejected=%d", ran, rejected)
	}
}

func TestRoutesCallback(t *testing.T) {
	reg := tg.NewRegistry()
	var got string
	_ = reg.AddCallback("lang", func(c tele.Context) error { got = c.Callback().Data; return nil })
	h := routeFor(t, Routes(reg, Options{}), tele.OnCallback)

	var seen []string
	SetObserver(func(handler, outcome string, _ time.Duration) { seen = append(seen, handler+":"+outcome) })
	defer SetObserver(nil)

	u := newUpdate(3)
	u.cb = &tele.Callback{Unique: "lang", Data: "tr"}
	if err := h(u); err != nil {
		t.Fatal(err)
	}
	if got != "tr" || u.responded != 1 {
		t.Fatalf("payload=%q responded=%d", got, u.responded)
	}

	u = newUpdate(3)
	u.cb = &tele.Callback{Data: "\fgone|1"}
	if err := h(u); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "callback.lang:ok" || seen[1] != "callback.gone:skip" {
		t.Fatalf("observed %v", seen)
	}
}

func TestRoutesFreeInput(t *testing.T) {
	d := &dialogue{active: map[int64]bool{1: true}}
	unknown := 0
	routes := Routes(tg.NewRegistry(), Options{
		Dialogue:  d,
		OnUnknown: func(tele.Context) error { unknown++; return nil },
	})
	for _, ep := range []string{tele.OnText, tele.OnPhoto, tele.OnDocument} {
		h := routeFor(t, routes, ep)
		_ = h(newUpdate(1))
		_ = h(newUpdate(2))
	}
	if d.calls != 3 || unknown != 3 {
		t.Fatalf("dialogue=%d unknown=%d", d.calls, unknown)
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "x" }
func (codedErr) Code() string  { return "rate unavailable" }

type plainErr struct{}

func (*plainErr) Error() string { return "y" }

func TestErrorCode(t *testing.T) {
	cases := map[string]error{
		"RATE_UNAVAILABLE": errors.Join(errors.New("wrap"), codedErr{}),
		"PLAINERR":         &plainErr{},
		"ERRORSTRING":      errors.New("z"),
	}
	for want, err := range cases {
		if got := errorCode(err); got != want {
			t.Errorf("errorCode(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestHandlerName(t *testing.T) {
	for in, want := range map[string]string{"/Admin_Done": "admin_done", " ": "unknown", "a b": "a_b"} {
		if got := handlerName(in); got != want {
			t.Errorf("handlerName(%q) = %q, want %q", in, got, want)
		}
	}
}
