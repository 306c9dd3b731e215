package models

import "errors"

// Client errors: terminal, no side effects.
var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrForbidden      = errors.New("order belongs to a different user")
	ErrNotPaid        = errors.New("order is not paid")
	ErrUnknownEvent   = errors.New("unknown check-in event key")
)

// Conflict conditions.
var (
	// ErrTicketExists is returned by the store when a concurrent caller won
	// the create-if-absent race. Callers fold it into the idempotent read path.
	ErrTicketExists = errors.New("ticket already exists for this transaction reference")

	// ErrLedgerConflict signals that the gateway's ground truth disagrees with
	// the ledger (amount/currency/tx_ref mismatch, or a paid order re-verified
	// with different fields). Surfaced hard; never silently overwritten.
	ErrLedgerConflict = errors.New("payment record conflicts with order ledger")

	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Upstream errors: terminal for the current call, safe to retry.
var (
	ErrGatewayUnreachable = errors.New("payment gateway unreachable")
	ErrGatewayRejected    = errors.New("payment gateway rejected transaction")
)
