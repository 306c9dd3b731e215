package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is the durable pass record, created exactly once per paid order.
// It shares its primary key (tx_ref) with the order that paid for it, which
// is what lets the store's create-if-absent insert enforce one-ticket-per-order.
//
// CheckIn is an open map of event-name -> attended. The key set is
// deliberately not an enum: deployments have grown it from {day1, day2} to
// {azizi6th, day1, day2, gala8pm} without a schema change.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TxRef            string          `bun:"tx_ref,pk" json:"tx_ref"`
	TicketNumber     string          `bun:"ticket_number,unique" json:"ticket_number"`
	FullName         string          `bun:"full_name" json:"full_name"`
	Email            string          `bun:"email" json:"email"`
	TicketType       string          `bun:"ticket_type" json:"ticket_type"`
	Location         string          `bun:"location" json:"location"`
	CheckIn          map[string]bool `bun:"check_in,type:jsonb" json:"check_in"`
	QRCode           []byte          `bun:"qr_code,nullzero" json:"-"`
	ArtifactRef      string          `bun:"artifact_ref,nullzero" json:"artifact_ref,omitempty"`
	NotificationSent bool            `bun:"notification_sent" json:"notification_sent"`
	Version          int64           `bun:"version" json:"-"`
	IssuedAt         time.Time       `bun:"issued_at" json:"issued_at"`
	UpdatedAt        time.Time       `bun:"updated_at" json:"updated_at"`
}

// TicketView is the issuance response shape. AlreadyIssued distinguishes the
// first successful call from idempotent repeats; ArtifactOk/NotificationOk
// report best-effort post-processing and never imply issuance failure.
type TicketView struct {
	TicketNumber   string `json:"ticket_number"`
	FullName       string `json:"full_name"`
	TicketType     string `json:"ticket_type"`
	Location       string `json:"location"`
	QRAsset        []byte `json:"qr_asset,omitempty"`
	AlreadyIssued  bool   `json:"already_issued"`
	ArtifactOk     bool   `json:"artifact_ok"`
	NotificationOk bool   `json:"notification_ok"`
}
