package telegram

import (
	"bytes"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/exchangebot/core/config"

	tele "gopkg.in/telebot.v4"
)

type flakyTripper struct {
	fails int
	calls int
	err   error
	body  []string
}

func (f *flakyTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if req.Body != nil {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(req.Body)
		f.body = append(f.body, buf.String())
	}
	if f.calls <= f.fails {
		return nil, f.err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestReplayTransport(t *testing.T) {
	refused := &net.OpError{Op: "read", Err: syscall.ECONNREFUSED}

	f := &flakyTripper{fails: 2, err: refused}
	rt := &replayTransport{next: f, retries: 2, backoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader(`{"text":"hi"}`))
	resp, err := rt.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("expected success after replays, got %v", err)
	}
	if f.calls != 3 {
		t.Fatalf("calls = %d, want 3", f.calls)
	}
	for _, b := range f.body {
		if b != `{"text":"hi"}` {
			t.Fatalf("body not replayed: %q", f.body)
		}
	}

	f = &flakyTripper{fails: 5, err: refused}
	rt = &replayTransport{next: f, retries: 2, backoff: time.Millisecond}
	req, _ = http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, syscall.ECONNREFUSED) {
		t.Fatalf("expected last error, got %v", err)
	}
	if f.calls != 3 {
		t.Fatalf("calls = %d, want 3", f.calls)
	}

	f = &flakyTripper{fails: 1, err: errors.New("tls: bad certificate")}
	rt = &replayTransport{next: f, retries: 2, backoff: time.Millisecond}
	if _, err := rt.RoundTrip(req); err == nil || f.calls != 1 {
		t.Fatalf("permanent errors are not replayed: calls=%d err=%v", f.calls, err)
	}
}

func TestNewPoller(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook = coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"}
	wh, ok := newPoller(cfg).(*tele.Webhook)
	if !ok {
		t.Fatal("expected webhook poller")
	}
	if wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://bot.example.com/hook" {
		t.Fatalf("unexpected webhook %+v", wh)
	}

	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	lp, ok := newPoller(cfg).(*tele.LongPoller)
	if !ok || lp.Timeout != defaultPollTimeout {
		t.Fatalf("expected default long poller, got %#v", lp)
	}
	cfg.Telegram.LongPollTimeoutSeconds = 25
	if lp := newPoller(cfg).(*tele.LongPoller); lp.Timeout != 25*time.Second {
		t.Fatalf("timeout = %v", lp.Timeout)
	}
}
