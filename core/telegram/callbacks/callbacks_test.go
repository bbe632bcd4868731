package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

type cbContext struct {
	tele.Context
	cb *tele.Callback
}

func (c cbContext) Callback() *tele.Callback { return c.cb }

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{"split by telebot", &tele.Callback{Unique: "sent", Data: "42"}, "sent", "42"},
		{"raw data", &tele.Callback{Data: "\fcancel|7"}, "cancel", "7"},
		{"no payload", &tele.Callback{Data: "\fcancel"}, "cancel", ""},
		{"padded payload", &tele.Callback{Unique: "lang", Data: " tr "}, "lang", "tr"},
		{"nil", nil, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := cbContext{cb: tc.cb}
			if got := Key(c); got != tc.key {
				t.Fatalf("key: got %q want %q", got, tc.key)
			}
			if got := Payload(c); got != tc.payload {
				t.Fatalf("payload: got %q want %q", got, tc.payload)
			}
		})
	}
}

func TestPayloadInt64(t *testing.T) {
	id, err := PayloadInt64(cbContext{cb: &tele.Callback{Unique: "sent", Data: "1001"}})
	if err != nil || id != 1001 {
		t.Fatalf("got %d, %v", id, err)
	}
	if _, err := PayloadInt64(cbContext{cb: &tele.Callback{Unique: "sent"}}); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
