// Package callbacks decodes inline button data.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse splits callback data into its button key and payload. Telebot
// encodes buttons as "\f<unique>|<data>" and strips that prefix itself when
// it recognises the button, leaving Unique and Data already separated.
func Parse(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}

// Key returns the button key of the update's callback.
func Key(c tele.Context) string {
	k, _ := Parse(c.Callback())
	return k
}

// Payload returns the button payload of the update's callback.
func Payload(c tele.Context) string {
	_, p := Parse(c.Callback())
	return strings.TrimSpace(p)
}

// PayloadInt64 parses the payload as a decimal id.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(Payload(c), 10, 64)
}
