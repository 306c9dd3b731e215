package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CheckInEvent is an append-only audit entry for a check-in toggle.
// No-op toggles are recorded too, tagged NoOp, so the log answers
// "who scanned this ticket at 9:01am" even when the flag did not move.
type CheckInEvent struct {
	bun.BaseModel `bun:"table:checkin_events"`

	ID           string    `bun:"id,pk" json:"id"`
	TicketNumber string    `bun:"ticket_number" json:"ticket_number"`
	EventKey     string    `bun:"event_key" json:"event_key"`
	NewValue     bool      `bun:"new_value" json:"new_value"`
	NoOp         bool      `bun:"no_op" json:"no_op"`
	Actor        string    `bun:"actor" json:"actor"`
	CreatedAt    time.Time `bun:"created_at" json:"created_at"`
}
