// Package settlement models inbound webhook events from the payment
// processor. Payloads are verified and decoded exactly once at the
// boundary into a closed set of typed events.
package settlement

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// EventType names the processor events this service applies
type EventType string

const (
	TypeChargeSucceeded   EventType = "charge.success"
	TypeTransferSucceeded EventType = "transfer.success"
	TypeTransferFailed    EventType = "transfer.failed"
)

// ErrSignatureInvalid rejects payloads whose signature does not match
var ErrSignatureInvalid = errors.New("webhook signature verification failed")

// ErrMalformedEvent indicates an authentic payload that cannot be
// decoded into a valid event. Retrying the same delivery cannot
// succeed, so callers should acknowledge it instead of failing.
type ErrMalformedEvent struct {
	Reason string
}

func (e ErrMalformedEvent) Error() string {
	return "malformed settlement payload: " + e.Reason
}

// Is implements the errors.Is interface for ErrMalformedEvent
func (e ErrMalformedEvent) Is(target error) bool {
	t, ok := target.(ErrMalformedEvent)
	if !ok {
		return false
	}
	return t.Reason == "" || e.Reason == t.Reason
}

// Event is a verified, decoded settlement notification
type Event interface {
	EventID() string
	Type() EventType
	Reference() string
}

// ChargeSucceeded reports a completed inbound payment. AccountID is the
// wallet to credit, carried in the charge metadata.
type ChargeSucceeded struct {
	ID        string
	Ref       string
	Amount    int64
	AccountID uuid.UUID
}

func (e ChargeSucceeded) EventID() string   { return e.ID }
func (e ChargeSucceeded) Type() EventType   { return TypeChargeSucceeded }
func (e ChargeSucceeded) Reference() string { return e.Ref }

// TransferSucceeded reports a completed outbound transfer
type TransferSucceeded struct {
	ID           string
	Ref          string
	TransferCode string
}

func (e TransferSucceeded) EventID() string   { return e.ID }
func (e TransferSucceeded) Type() EventType   { return TypeTransferSucceeded }
func (e TransferSucceeded) Reference() string { return e.Ref }

// TransferFailed reports a rejected or reversed outbound transfer
type TransferFailed struct {
	ID           string
	Ref          string
	TransferCode string
	Reason       string
}

func (e TransferFailed) EventID() string   { return e.ID }
func (e TransferFailed) Type() EventType   { return TypeTransferFailed }
func (e TransferFailed) Reference() string { return e.Ref }

// ErrUnknownEvent indicates an event type this service does not handle
type ErrUnknownEvent struct {
	Name string
}

func (e ErrUnknownEvent) Error() string {
	return "unknown settlement event: " + e.Name
}

// Is implements the errors.Is interface for ErrUnknownEvent
func (e ErrUnknownEvent) Is(target error) bool {
	t, ok := target.(ErrUnknownEvent)
	if !ok {
		return false
	}
	return t.Name == "" || e.Name == t.Name
}

// envelope mirrors the processor's webhook payload shape
type envelope struct {
	Event string `json:"event"`
	Data  struct {
		ID           json.Number `json:"id"`
		Reference    string      `json:"reference"`
		Amount       int64       `json:"amount"`
		Reason       string      `json:"reason"`
		TransferCode string      `json:"transfer_code"`
		Metadata     struct {
			AccountID string `json:"account_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// ParseEvent decodes a raw webhook body into a typed event. The payload
// must already have passed signature verification.
func ParseEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformedEvent{Reason: err.Error()}
	}
	if env.Data.ID.String() == "" {
		return nil, ErrMalformedEvent{Reason: "missing event id"}
	}
	if env.Data.Reference == "" {
		return nil, ErrMalformedEvent{Reason: "missing reference"}
	}

	switch EventType(env.Event) {
	case TypeChargeSucceeded:
		if env.Data.Amount <= 0 {
			return nil, ErrMalformedEvent{Reason: "charge amount must be positive"}
		}
		accountID, err := uuid.Parse(env.Data.Metadata.AccountID)
		if err != nil {
			return nil, ErrMalformedEvent{Reason: fmt.Sprintf("charge metadata account_id: %v", err)}
		}
		return ChargeSucceeded{
			ID:        env.Data.ID.String(),
			Ref:       env.Data.Reference,
			Amount:    env.Data.Amount,
			AccountID: accountID,
		}, nil
	case TypeTransferSucceeded:
		return TransferSucceeded{
			ID:           env.Data.ID.String(),
			Ref:          env.Data.Reference,
			TransferCode: env.Data.TransferCode,
		}, nil
	case TypeTransferFailed:
		return TransferFailed{
			ID:           env.Data.ID.String(),
			Ref:          env.Data.Reference,
			TransferCode: env.Data.TransferCode,
			Reason:       env.Data.Reason,
		}, nil
	default:
		return nil, ErrUnknownEvent{Name: env.Event}
	}
}
