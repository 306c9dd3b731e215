package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"atinuda-ticketing/internal/models"
)

// DB is the order ledger. One row per checkout attempt, keyed by the
// client-chosen txRef. All state transitions go through conditional updates
// so that concurrent callers cannot produce lost writes.
type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

func (d *DB) GetOrderByTxRef(ctx context.Context, txRef string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("tx_ref = ?", txRef).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", txRef, err)
	}
	return &order, nil
}

// GetOrCreate returns the order for txRef, creating a pending row from the
// checkout expectations if none exists yet. Idempotent on txRef: the insert
// is create-if-absent, and losers of a concurrent race read the winner's row.
func (d *DB) GetOrCreate(ctx context.Context, txRef string, expected models.OrderExpectations) (*models.Order, error) {
	now := time.Now().UTC()
	order := models.Order{
		TxRef:          txRef,
		Status:         models.OrderPending,
		BuyerEmail:     expected.BuyerEmail,
		BuyerName:      expected.BuyerName,
		TicketType:     expected.TicketType,
		ExpectedAmount: expected.ExpectedAmount,
		Currency:       expected.Currency,
		UserID:         expected.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := d.Bun.NewInsert().
		Model(&order).
		On("CONFLICT (tx_ref) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create order %s: %w", txRef, err)
	}

	return d.GetOrderByTxRef(ctx, txRef)
}

// MarkPaid transitions pending -> paid using the gateway's verified record.
// The verified amount, currency and tx_ref must match the ledger's
// expectations; a mismatch is surfaced as ErrLedgerConflict and the order is
// left untouched. Re-marking an already-paid order with matching fields is a
// no-op; with different fields it is a conflict (possible tamper).
func (d *DB) MarkPaid(ctx context.Context, txRef string, verified *models.VerifiedPayment) error {
	order, err := d.GetOrderByTxRef(ctx, txRef)
	if err != nil {
		return err
	}

	if verified.TxRef != txRef {
		return fmt.Errorf("%w: gateway tx_ref %q does not match order %q", models.ErrLedgerConflict, verified.TxRef, txRef)
	}
	if verified.Amount != order.ExpectedAmount || verified.Currency != order.Currency {
		return fmt.Errorf("%w: expected %.2f %s, gateway reported %.2f %s",
			models.ErrLedgerConflict, order.ExpectedAmount, order.Currency, verified.Amount, verified.Currency)
	}

	switch order.Status {
	case models.OrderFailed:
		return fmt.Errorf("%w: order %s already failed", models.ErrInvalidTransition, txRef)
	case models.OrderPaid:
		// Fields matched above, so a repeat verification is a no-op.
		return nil
	}

	now := time.Now().UTC()
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", models.OrderPaid).
		Set("buyer_email = ?", verified.BuyerEmail).
		Set("buyer_name = ?", verified.BuyerName).
		Set("paid_at = ?", now).
		Set("updated_at = ?", now).
		Where("tx_ref = ? AND status = ?", txRef, models.OrderPending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark order %s paid: %w", txRef, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", txRef, err)
	}
	if rows == 0 {
		// Lost a race: some other caller moved the order first. Re-evaluate
		// against the new state instead of overwriting it.
		return d.MarkPaid(ctx, txRef, verified)
	}
	return nil
}

// MarkFailed transitions pending -> failed after a gateway rejection.
// Already-failed orders are a no-op; paid orders never regress.
func (d *DB) MarkFailed(ctx context.Context, txRef string) error {
	now := time.Now().UTC()
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", models.OrderFailed).
		Set("updated_at = ?", now).
		Where("tx_ref = ? AND status = ?", txRef, models.OrderPending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark order %s failed: %w", txRef, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", txRef, err)
	}
	if rows > 0 {
		return nil
	}

	order, err := d.GetOrderByTxRef(ctx, txRef)
	if err != nil {
		return err
	}
	if order.Status == models.OrderFailed {
		return nil
	}
	return fmt.Errorf("%w: cannot fail order %s in status %s", models.ErrInvalidTransition, txRef, order.Status)
}

// MarkIssued records that the ticket for txRef is durably created. Callers
// must invoke this only after the ticket row exists.
func (d *DB) MarkIssued(ctx context.Context, txRef, ticketNumber string) error {
	now := time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("ticket_issued = ?", true).
		Set("ticket_number = ?", ticketNumber).
		Set("updated_at = ?", now).
		Where("tx_ref = ?", txRef).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark order %s issued: %w", txRef, err)
	}
	return nil
}
