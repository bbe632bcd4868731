// Package sender runs outbound Bot API calls off the update goroutines.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the lane for a chat has no room left.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options tunes the dispatcher. Zero values select defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds one job including its retries.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 15 * time.Second
	}
	return o
}

type job struct {
	ctx    context.Context
	chat   int64
	action string
	run    func() error
}

// Dispatcher executes send jobs on a fixed set of lanes. Jobs for the same
// chat always share a lane, so a user sees messages in the order they
// were queued.
type Dispatcher struct {
	opts  Options
	lanes []chan job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	failed atomic.Uint64
}

// NewDispatcher starts the lane workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, lanes: make([]chan job, opts.Workers)}
	perLane := max(1, opts.QueueSize/opts.Workers)
	for i := range d.lanes {
		d.lanes[i] = make(chan job, perLane)
		d.wg.Add(1)
		go d.drain(d.lanes[i])
	}
	return d
}

// Enqueue schedules run on the lane of chat. run may be called more than
// once when the Bot API fails transiently.
func (d *Dispatcher) Enqueue(ctx context.Context, chat int64, action string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil job")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.lanes[d.laneOf(chat)] <- job{ctx: ctx, chat: chat, action: action, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Failed returns how many jobs gave up.
func (d *Dispatcher) Failed() uint64 { return d.failed.Load() }

// Close stops accepting jobs and waits until queued ones finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, l := range d.lanes {
			close(l)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) laneOf(chat int64) int {
	return int(uint64(chat) % uint64(len(d.lanes)))
}

func (d *Dispatcher) drain(lane <-chan job) {
	defer d.wg.Done()
	for j := range lane {
		d.process(j)
	}
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := 0
	var err error
	for {
		attempts++
		if err = j.run(); err == nil {
			break
		}
		wait, retry := d.backoff(err, attempts)
		if !retry || attempts > d.opts.MaxRetries {
			break
		}
		logger.Debug(ctx, logger.CompSender, "send.retry",
			slog.String("action", j.action),
			slog.Int("attempt", attempts),
			slog.Duration("backoff", wait),
			slog.String("err", redact(err)),
		)
		t := time.NewTimer(wait)
		select {
		case <-t.C:
			continue
		case <-ctx.Done():
			t.Stop()
			err = ctx.Err()
		}
		break
	}

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("action", j.action),
		slog.Int64("chat_id", j.chat),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
	}
	if err == nil {
		logger.Debug(ctx, logger.CompSender, "send", attrs...)
		return
	}
	d.failed.Add(1)
	logger.Error(ctx, logger.CompSender, "send", append(attrs,
		slog.String("err", redact(err)),
		slog.String("err_kind", errorKind(err)),
	)...)
}

// backoff decides whether err is worth another attempt and how long to wait.
// Flood control errors carry the wait Telegram asks for.
func (d *Dispatcher) backoff(err error, attempt int) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(max(flood.RetryAfter, 1)) * time.Second, true
	}
	if netutil.Transient(err) {
		return d.opts.RetryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

func errorKind(err error) string {
	var flood tele.FloodError
	var api *tele.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &flood):
		return "flood"
	case netutil.Transient(err):
		return "network"
	case errors.As(err, &api) && api.Code >= 500:
		return "api_5xx"
	case errors.As(err, &api):
		return "api_4xx"
	}
	return "other"
}

// redact hides the bot token that net/http errors embed in request URLs.
func redact(err error) string {
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
