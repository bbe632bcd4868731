package helpers

import (
	"context"
	"testing"

	"github.com/m3rciful/exchangebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

type reply struct {
	tele.Context
	store map[string]any
	sent  []string
}

func newReply() *reply { return &reply{store: map[string]any{}} }

func (r *reply) Sender() *tele.User  { return &tele.User{ID: 7} }
func (r *reply) Chat() *tele.Chat    { return &tele.Chat{ID: 7} }
func (r *reply) Update() tele.Update { return tele.Update{ID: 3} }
func (r *reply) Get(k string) any    { return r.store[k] }
func (r *reply) Set(k string, v any) { r.store[k] = v }
func (r *reply) Send(what any, _ ...any) error {
	r.sent = append(r.sent, what.(string))
	return nil
}

type poster struct{ to []string }

func (p *poster) Send(to tele.Recipient, _ any, _ ...any) (*tele.Message, error) {
	p.to = append(p.to, to.Recipient())
	return &tele.Message{}, nil
}

func TestSendTextCountsWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	r := newReply()
	if err := SendText(r, "one"); err != nil {
		t.Fatal(err)
	}
	if err := SendText(r, "two", &tele.ReplyMarkup{}); err != nil {
		t.Fatal(err)
	}
	msgs, kb := Counters(r)
	if msgs != 2 || !kb {
		t.Fatalf("counters = %d, %v", msgs, kb)
	}
	if len(r.sent) != 2 || r.sent[1] != "two" {
		t.Fatalf("sent = %v", r.sent)
	}
}

func TestSendToThroughDispatcher(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	SetDispatcher(d)
	defer SetDispatcher(nil)

	p := &poster{}
	if err := SendTo(context.Background(), p, &tele.User{ID: 900}, "hello"); err != nil {
		t.Fatal(err)
	}
	d.Close()
	if len(p.to) != 1 || p.to[0] != "900" {
		t.Fatalf("delivered to %v", p.to)
	}

	// A closed dispatcher degrades to an inline send.
	if err := SendTo(context.Background(), p, &tele.User{ID: 901}, "again"); err != nil {
		t.Fatal(err)
	}
	if len(p.to) != 2 {
		t.Fatalf("inline fallback missing: %v", p.to)
	}
	if err := SendTo(context.Background(), nil, &tele.User{ID: 1}, "x"); err == nil {
		t.Fatal("nil bot must fail")
	}
}
