package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTransient(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":        {nil, false},
		"cancelled":  {fmt.Errorf("send: %w", context.Canceled), false},
		"plain":      {errors.New("bad request"), false},
		"deadline":   {context.DeadlineExceeded, true},
		"refused":    {&net.OpError{Op: "read", Err: syscall.ECONNREFUSED}, true},
		"reset":      {&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: syscall.ECONNRESET}, true},
		"dial":       {&net.OpError{Op: "dial", Err: errors.New("no route to host")}, true},
		"timeout":    {&url.Error{Op: "Get", URL: "https://api.binance.com", Err: timeoutErr{}}, true},
		"short body": {fmt.Errorf("decode: %w", io.ErrUnexpectedEOF), true},
	}
	for name, tc := range cases {
		if got := Transient(tc.err); got != tc.want {
			t.Errorf("%s: Transient(%v) = %v, want %v", name, tc.err, got, tc.want)
		}
	}
}
