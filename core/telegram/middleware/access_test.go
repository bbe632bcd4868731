package middleware

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

type senderContext struct {
	tele.Context
	user *tele.User
}

func (c senderContext) Sender() *tele.User { return c.user }

func TestAdminOnly(t *testing.T) {
	cases := []struct {
		name    string
		adminID int64
		user    *tele.User
		allowed bool
	}{
		{"admin", 7, &tele.User{ID: 7}, true},
		{"stranger", 7, &tele.User{ID: 8}, false},
		{"no admin configured", 0, &tele.User{ID: 7}, false},
		{"no sender", 7, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var passed, rejected bool
			reject := func(tele.Context) error { rejected = true; return nil }
			h := AdminOnly(tc.adminID, reject)(func(tele.Context) error { passed = true; return nil })
			if err := h(senderContext{user: tc.user}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if passed != tc.allowed || rejected == tc.allowed {
				t.Fatalf("passed=%v rejected=%v, want allowed=%v", passed, rejected, tc.allowed)
			}
		})
	}
}
