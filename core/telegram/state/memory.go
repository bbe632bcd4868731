package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/exchangebot/core/logger"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type session struct {
	state  State
	values map[string]any
	seen   time.Time
}

// Memory is a process-local Manager. Sessions untouched for longer than the
// idle timeout are dropped on next access.
type Memory struct {
	mu       sync.RWMutex
	sessions map[int64]*session
	handlers map[State]tele.HandlerFunc
	idle     time.Duration
	now      func() time.Time
}

// MemoryOption configures NewMemory.
type MemoryOption func(*Memory)

// WithIdleTimeout expires sessions after d without activity. Zero keeps them
// until the process exits.
func WithIdleTimeout(d time.Duration) MemoryOption {
	return func(m *Memory) { m.idle = d }
}

// NewMemory returns an empty in-memory Manager.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		sessions: make(map[int64]*session),
		handlers: make(map[State]tele.HandlerFunc),
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Handle implements Manager.
func (m *Memory) Handle(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	m.mu.Lock()
	m.handlers[st] = h
	m.mu.Unlock()
}

// Dispatch implements Manager. Input in a state without a handler is dropped.
func (m *Memory) Dispatch(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	st := m.State(u.ID)
	m.mu.RLock()
	h, ok := m.handlers[st]
	m.mu.RUnlock()

	logger.Debug(tghelpers.BuildContext(c), logger.CompTG, "dialogue.dispatch",
		slog.String("state", string(st)),
		slog.Bool("handled", ok),
	)
	if !ok {
		return nil
	}
	return h(c)
}

// live returns the session for userID, expiring it when idle too long.
// Callers hold mu for writing.
func (m *Memory) live(userID int64) *session {
	s, ok := m.sessions[userID]
	if !ok {
		return nil
	}
	if m.idle > 0 && m.now().Sub(s.seen) > m.idle {
		delete(m.sessions, userID)
		return nil
	}
	return s
}

// touch returns the session for userID, creating it if needed.
func (m *Memory) touch(userID int64) *session {
	s := m.live(userID)
	if s == nil {
		s = &session{state: Idle, values: make(map[string]any)}
		m.sessions[userID] = s
	}
	s.seen = m.now()
	return s
}

// State implements Manager.
func (m *Memory) State(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.live(userID); s != nil {
		return s.state
	}
	return Idle
}

// SetState implements Manager.
func (m *Memory) SetState(userID int64, st State) {
	m.mu.Lock()
	m.touch(userID).state = st
	m.mu.Unlock()
}

// ClearState implements Manager. Stored values are kept.
func (m *Memory) ClearState(userID int64) {
	m.mu.Lock()
	if s := m.live(userID); s != nil {
		s.state = Idle
	}
	m.mu.Unlock()
}

// InProgress implements Manager.
func (m *Memory) InProgress(userID int64) bool {
	return m.State(userID) != Idle
}

// Put implements Manager.
func (m *Memory) Put(userID int64, key string, v any) {
	m.mu.Lock()
	m.touch(userID).values[key] = v
	m.mu.Unlock()
}

// Value implements Manager.
func (m *Memory) Value(userID int64, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.live(userID)
	if s == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Delete implements Manager.
func (m *Memory) Delete(userID int64, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.live(userID); s != nil {
		for _, k := range keys {
			delete(s.values, k)
		}
	}
}

// Reset implements Manager.
func (m *Memory) Reset(userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}
