// Package state keeps per-user dialogue steps and scratch values and
// routes free input to the handler of the current step.
package state

import (
	tele "gopkg.in/telebot.v4"
)

// State names a dialogue step that consumes free input.
type State string

// Idle is the state of a user with no dialogue in progress.
const Idle State = "idle"

// Manager stores dialogue state per user.
type Manager interface {
	// Handle registers the handler for input received in st.
	Handle(st State, h tele.HandlerFunc)
	// Dispatch runs the handler of the sender's current state.
	Dispatch(c tele.Context) error

	State(userID int64) State
	SetState(userID int64, st State)
	ClearState(userID int64)
	InProgress(userID int64) bool

	Put(userID int64, key string, v any)
	Value(userID int64, key string) (any, bool)
	Delete(userID int64, keys ...string)
	Reset(userID int64)
}

// Get returns the value stored under key when it has type T.
func Get[T any](m Manager, userID int64, key string) (T, bool) {
	var zero T
	v, ok := m.Value(userID, key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
