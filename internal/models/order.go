package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// Order is one row per checkout attempt, keyed by the client-chosen
// transaction reference. Status only moves forward: pending -> paid
// (or pending -> failed); it never regresses.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	TxRef          string      `bun:"tx_ref,pk" json:"tx_ref"`
	Status         OrderStatus `bun:"status" json:"status"`
	BuyerEmail     string      `bun:"buyer_email,nullzero" json:"buyer_email,omitempty"`
	BuyerName      string      `bun:"buyer_name,nullzero" json:"buyer_name,omitempty"`
	TicketType     string      `bun:"ticket_type" json:"ticket_type"`
	ExpectedAmount float64     `bun:"expected_amount" json:"expected_amount"`
	Currency       string      `bun:"currency" json:"currency"`
	UserID         string      `bun:"user_id,nullzero" json:"user_id,omitempty"`
	TicketIssued   bool        `bun:"ticket_issued" json:"ticket_issued"`
	TicketNumber   string      `bun:"ticket_number,nullzero" json:"ticket_number,omitempty"`
	CreatedAt      time.Time   `bun:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `bun:"updated_at" json:"updated_at"`
	PaidAt         time.Time   `bun:"paid_at,nullzero" json:"paid_at,omitempty"`
}

// OrderExpectations carries the checkout-time fields used when an order row
// has to be created on first sight of a txRef.
type OrderExpectations struct {
	TicketType     string  `json:"ticket_type"`
	ExpectedAmount float64 `json:"expected_amount"`
	Currency       string  `json:"currency"`
	BuyerEmail     string  `json:"buyer_email,omitempty"`
	BuyerName      string  `json:"buyer_name,omitempty"`
	UserID         string  `json:"user_id,omitempty"`
}
