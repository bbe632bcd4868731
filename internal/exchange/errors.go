package exchange

import "errors"

// Error is a domain failure with a stable code the transport can render.
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the machine readable identifier, e.g. RATE_UNAVAILABLE.
func (e *Error) Code() string { return e.code }

var (
	// ErrUnsupportedCurrency marks input outside the configured currency set.
	ErrUnsupportedCurrency = &Error{code: "UNSUPPORTED_CURRENCY", msg: "unsupported currency"}
	// ErrRateUnavailable marks a failed upstream price lookup. Callers may retry later.
	ErrRateUnavailable = &Error{code: "RATE_UNAVAILABLE", msg: "rate unavailable"}
	// ErrInvalidTransition marks a state machine transition from the wrong status.
	ErrInvalidTransition = &Error{code: "INVALID_TRANSITION", msg: "order not in expected state"}
	// ErrOrderNotFound marks an unknown order id.
	ErrOrderNotFound = &Error{code: "ORDER_NOT_FOUND", msg: "order not found"}
	// ErrInvalidProof marks proof that does not fit the order's paying side.
	ErrInvalidProof = &Error{code: "INVALID_PROOF", msg: "invalid proof"}
	// ErrInvalidAmount marks a non-positive or unparsable amount.
	ErrInvalidAmount = &Error{code: "INVALID_AMOUNT", msg: "invalid amount"}
)

// CodeOf returns the domain code of err or an empty string.
func CodeOf(err error) string {
	for _, e := range []*Error{
		ErrUnsupportedCurrency,
		ErrRateUnavailable,
		ErrInvalidTransition,
		ErrOrderNotFound,
		ErrInvalidProof,
		ErrInvalidAmount,
	} {
		if errors.Is(err, e) {
			return e.code
		}
	}
	return ""
}
