package settlement

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// ProcessedEvent records that a settlement event was applied. The row is
// written in the same transaction as the event's effect, so a replayed
// delivery either sees the row or raced the original and loses on the
// primary key.
type ProcessedEvent struct {
	EventID     string    `json:"event_id"`
	Type        EventType `json:"type"`
	Reference   string    `json:"reference"`
	Outcome     string    `json:"outcome"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Repository manages the settlement idempotency records
type Repository interface {
	// Record inserts the processed-event row; a duplicate event id
	// yields ErrAlreadyProcessed.
	Record(ctx context.Context, event *ProcessedEvent) error

	GetByEventID(ctx context.Context, eventID string) (*ProcessedEvent, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAlreadyProcessed indicates the event id was applied before
type ErrAlreadyProcessed struct {
	EventID string
}

func (e ErrAlreadyProcessed) Error() string {
	return "settlement event already processed: " + e.EventID
}

// Is implements the errors.Is interface for ErrAlreadyProcessed
func (e ErrAlreadyProcessed) Is(target error) bool {
	t, ok := target.(ErrAlreadyProcessed)
	if !ok {
		return false
	}
	return t.EventID == "" || e.EventID == t.EventID
}

// ErrEventNotFound indicates no processed record exists for the event id
type ErrEventNotFound struct {
	EventID string
}

func (e ErrEventNotFound) Error() string {
	return "settlement event not found: " + e.EventID
}

// Is implements the errors.Is interface for ErrEventNotFound
func (e ErrEventNotFound) Is(target error) bool {
	t, ok := target.(ErrEventNotFound)
	if !ok {
		return false
	}
	return t.EventID == "" || e.EventID == t.EventID
}
