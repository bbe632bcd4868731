package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle position of an order.
type Status string

const (
	StatusPendingProof   Status = "pending_proof"
	StatusAwaitingReview Status = "awaiting_review"
	StatusDone           Status = "done"
	StatusCancelled      Status = "cancelled"
)

// ParseStatus validates a persisted status value.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPendingProof, StatusAwaitingReview, StatusDone, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// CanTransition encodes the one-way lifecycle:
// pending_proof → awaiting_review → done, with cancelled reachable from any
// non-terminal status.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPendingProof:
		return to == StatusAwaitingReview || to == StatusDone || to == StatusCancelled
	case StatusAwaitingReview:
		return to == StatusDone || to == StatusCancelled
	}
	return false
}

// ProofKind is the type of payment evidence.
type ProofKind string

const (
	ProofTxid          ProofKind = "txid"
	ProofReceiptFile   ProofKind = "receipt_file"
	ProofReferenceText ProofKind = "reference_text"
)

// ParseProofKind validates a persisted proof kind.
func ParseProofKind(raw string) (ProofKind, error) {
	switch k := ProofKind(raw); k {
	case ProofTxid, ProofReceiptFile, ProofReferenceText:
		return k, nil
	}
	return "", fmt.Errorf("unknown proof kind %q", raw)
}

// Proof is evidence that the user paid their side. Payload is a transaction
// hash, a Telegram file id or free-form transfer reference.
type Proof struct {
	Kind    ProofKind
	Payload string
}

// Order is a persisted exchange request.
type Order struct {
	ID       int64
	UserID   int64
	Username string
	Lang     string

	Direction    Direction
	Source       Currency
	Target       Currency
	SourceAmount decimal.Decimal
	TargetAmount decimal.Decimal
	FeeTier      FeeTier

	Rate          decimal.Decimal
	BridgedVia    Currency
	RateFetchedAt time.Time

	Proof *Proof

	Status          Status
	CreatedAt       time.Time
	StatusUpdatedAt time.Time
}

// Pair renders the order's currencies, e.g. USDT/PLN.
func (o *Order) Pair() string {
	return o.Source.String() + "/" + o.Target.String()
}

// Quote rebuilds the frozen quote snapshot.
func (o *Order) Quote() RateQuote {
	return RateQuote{
		Source:     o.Source,
		Target:     o.Target,
		Rate:       o.Rate,
		BridgedVia: o.BridgedVia,
		FetchedAt:  o.RateFetchedAt,
	}
}

// Transition moves the order to status to, stamping the change time.
func (o *Order) Transition(to Status, at time.Time) error {
	if !o.Status.CanTransition(to) {
		return fmt.Errorf("%w: order %d is %s, cannot become %s", ErrInvalidTransition, o.ID, o.Status, to)
	}
	o.Status = to
	o.StatusUpdatedAt = at
	return nil
}

// AttachProof records payment evidence once and moves the order to review.
func (o *Order) AttachProof(p Proof, at time.Time) error {
	if o.Status != StatusPendingProof || o.Proof != nil {
		return fmt.Errorf("%w: order %d is %s, proof already expected or attached", ErrInvalidTransition, o.ID, o.Status)
	}
	if err := o.CheckProof(p); err != nil {
		return err
	}
	p.Payload = strings.TrimSpace(p.Payload)
	o.Proof = &p
	return o.Transition(StatusAwaitingReview, at)
}

// CheckProof validates the proof shape against the side the user pays from:
// a transaction hash for crypto, a receipt or transfer reference for fiat.
func (o *Order) CheckProof(p Proof) error {
	payload := strings.TrimSpace(p.Payload)
	if payload == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidProof, p.Kind)
	}
	if o.Source.IsCrypto() {
		if p.Kind != ProofTxid {
			return fmt.Errorf("%w: %s orders need a txid, got %s", ErrInvalidProof, o.Source, p.Kind)
		}
		if strings.ContainsAny(payload, " \t\n") {
			return fmt.Errorf("%w: txid must be a single token", ErrInvalidProof)
		}
		return nil
	}
	switch p.Kind {
	case ProofReceiptFile, ProofReferenceText:
		return nil
	}
	return fmt.Errorf("%w: %s orders need a receipt or reference, got %s", ErrInvalidProof, o.Source, p.Kind)
}
