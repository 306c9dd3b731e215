package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"atinuda-ticketing/internal/models"
)

// maxToggleRetries bounds the optimistic check-in loop. Two scanners racing
// on the same ticket resolve in one retry; anything past a handful of
// attempts indicates something is genuinely wrong with the row.
const maxToggleRetries = 5

// DB is the ticket store. CreateTicket is the single enforcement point for
// "exactly one ticket per paid order": it is an atomic create-if-absent on
// tx_ref, never an upsert.
type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// CreateTicket inserts the ticket if and only if no row exists for its
// tx_ref. A concurrent duplicate returns ErrTicketExists so the caller can
// fold into the idempotent read path.
func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	res, err := d.Bun.NewInsert().
		Model(ticket).
		On("CONFLICT (tx_ref) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create ticket for %s: %w", ticket.TxRef, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read insert result for %s: %w", ticket.TxRef, err)
	}
	if rows == 0 {
		return models.ErrTicketExists
	}
	return nil
}

func (d *DB) GetTicketByTxRef(ctx context.Context, txRef string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("tx_ref = ?", txRef).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket for %s: %w", txRef, err)
	}
	return &ticket, nil
}

func (d *DB) GetTicketByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_number = ?", ticketNumber).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket %s: %w", ticketNumber, err)
	}
	return &ticket, nil
}

// UpdateArtifacts attaches the generated scannable code and document pointer.
// Post-processing only; never touches check_in state.
func (d *DB) UpdateArtifacts(ctx context.Context, txRef string, qrCode []byte, artifactRef string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("qr_code = ?", qrCode).
		Set("artifact_ref = ?", artifactRef).
		Set("updated_at = ?", time.Now().UTC()).
		Where("tx_ref = ?", txRef).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update artifacts for %s: %w", txRef, err)
	}
	return nil
}

func (d *DB) MarkNotified(ctx context.Context, txRef string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("notification_sent = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("tx_ref = ?", txRef).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark ticket %s notified: %w", txRef, err)
	}
	return nil
}

// ToggleCheckIn flips the named attendance flag to desired, using an
// optimistic version check so two scanners toggling the same ticket
// near-simultaneously cannot lose an update. The audit row is appended in
// the same transaction as the flip; no-op toggles still get an audit row.
func (d *DB) ToggleCheckIn(ctx context.Context, ticketNumber, eventKey string, desired bool, actor string) (changed bool, newValue bool, err error) {
	for attempt := 0; attempt < maxToggleRetries; attempt++ {
		ticket, err := d.GetTicketByNumber(ctx, ticketNumber)
		if err != nil {
			return false, false, err
		}

		current := ticket.CheckIn[eventKey]
		if current == desired {
			if err := d.appendEvent(ctx, ticketNumber, eventKey, desired, true, actor); err != nil {
				return false, false, err
			}
			return false, current, nil
		}

		flags := make(map[string]bool, len(ticket.CheckIn)+1)
		for k, v := range ticket.CheckIn {
			flags[k] = v
		}
		flags[eventKey] = desired

		payload, err := json.Marshal(flags)
		if err != nil {
			return false, false, fmt.Errorf("failed to marshal check-in flags: %w", err)
		}

		var rows int64
		err = d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			res, err := tx.NewUpdate().
				Model((*models.Ticket)(nil)).
				Set("check_in = ?", string(payload)).
				Set("version = version + 1").
				Set("updated_at = ?", time.Now().UTC()).
				Where("ticket_number = ? AND version = ?", ticketNumber, ticket.Version).
				Exec(ctx)
			if err != nil {
				return err
			}
			rows, err = res.RowsAffected()
			if err != nil {
				return err
			}
			if rows == 0 {
				// Lost the race; retry outside the transaction.
				return nil
			}

			event := newCheckInEvent(ticketNumber, eventKey, desired, false, actor)
			_, err = tx.NewInsert().Model(&event).Exec(ctx)
			return err
		})
		if err != nil {
			return false, false, fmt.Errorf("failed to toggle check-in for %s: %w", ticketNumber, err)
		}
		if rows > 0 {
			return true, desired, nil
		}
	}

	return false, false, fmt.Errorf("check-in toggle for %s/%s did not settle after %d attempts", ticketNumber, eventKey, maxToggleRetries)
}

func (d *DB) appendEvent(ctx context.Context, ticketNumber, eventKey string, newValue, noOp bool, actor string) error {
	event := newCheckInEvent(ticketNumber, eventKey, newValue, noOp, actor)
	if _, err := d.Bun.NewInsert().Model(&event).Exec(ctx); err != nil {
		return fmt.Errorf("failed to append check-in event for %s: %w", ticketNumber, err)
	}
	return nil
}

func newCheckInEvent(ticketNumber, eventKey string, newValue, noOp bool, actor string) models.CheckInEvent {
	return models.CheckInEvent{
		ID:           uuid.NewString(),
		TicketNumber: ticketNumber,
		EventKey:     eventKey,
		NewValue:     newValue,
		NoOp:         noOp,
		Actor:        actor,
		CreatedAt:    time.Now().UTC(),
	}
}

// ListCheckInEvents returns the audit trail for a ticket, oldest first.
func (d *DB) ListCheckInEvents(ctx context.Context, ticketNumber string) ([]models.CheckInEvent, error) {
	var events []models.CheckInEvent
	err := d.Bun.NewSelect().
		Model(&events).
		Where("ticket_number = ?", ticketNumber).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-in events for %s: %w", ticketNumber, err)
	}
	return events, nil
}
