// Package netutil classifies network failures.
package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Transient reports whether err is a network failure that may succeed on a
// later attempt: timeouts, refused or reset connections, dial errors and
// connections dropped mid-response. Cancelled contexts never are.
func Transient(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var op *net.OpError
	return errors.As(err, &op) && op.Op == "dial"
}
