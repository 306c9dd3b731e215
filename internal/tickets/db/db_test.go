package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"atinuda-ticketing/internal/models"
	ticketdb "atinuda-ticketing/internal/tickets/db"
)

func setupTestDB(t *testing.T) *ticketdb.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	if err := bunDB.ResetModel(ctx, (*models.Ticket)(nil)); err != nil {
		t.Fatalf("Failed to reset ticket model: %v", err)
	}
	if err := bunDB.ResetModel(ctx, (*models.CheckInEvent)(nil)); err != nil {
		t.Fatalf("Failed to reset checkin event model: %v", err)
	}

	return ticketdb.New(bunDB)
}

func sampleTicket(txRef, number string) *models.Ticket {
	return &models.Ticket{
		TxRef:        txRef,
		TicketNumber: number,
		FullName:     "Ada Obi",
		Email:        "ada@example.com",
		TicketType:   "Conference Access",
		Location:     "Lagos, Nigeria",
		CheckIn:      map[string]bool{},
		IssuedAt:     time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestCreateAndGetTicket(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	err := store.CreateTicket(ctx, sampleTicket("atn-1", "CONF-ATIN000000000001"))
	assert.NoError(t, err)

	byRef, err := store.GetTicketByTxRef(ctx, "atn-1")
	assert.NoError(t, err)
	assert.Equal(t, "CONF-ATIN000000000001", byRef.TicketNumber)

	byNumber, err := store.GetTicketByNumber(ctx, "CONF-ATIN000000000001")
	assert.NoError(t, err)
	assert.Equal(t, "atn-1", byNumber.TxRef)
}

func TestCreateTicketDuplicateLosesRace(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, store.CreateTicket(ctx, sampleTicket("atn-1", "CONF-ATIN000000000001")))

	// Same txRef again: the create-if-absent insert must refuse, not overwrite.
	err := store.CreateTicket(ctx, sampleTicket("atn-1", "CONF-ATIN999999999999"))
	assert.True(t, errors.Is(err, models.ErrTicketExists))

	ticket, err := store.GetTicketByTxRef(ctx, "atn-1")
	assert.NoError(t, err)
	assert.Equal(t, "CONF-ATIN000000000001", ticket.TicketNumber)
}

func TestGetTicketNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetTicketByTxRef(context.Background(), "missing")
	assert.True(t, errors.Is(err, models.ErrTicketNotFound))

	_, err = store.GetTicketByNumber(context.Background(), "CONF-ATIN000000000000")
	assert.True(t, errors.Is(err, models.ErrTicketNotFound))
}

func TestToggleCheckInFlipAndAudit(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, store.CreateTicket(ctx, sampleTicket("atn-1", "CONF-ATIN000000000001")))

	changed, newValue, err := store.ToggleCheckIn(ctx, "CONF-ATIN000000000001", "day1", true, "gate-A")
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, newValue)

	ticket, err := store.GetTicketByTxRef(ctx, "atn-1")
	assert.NoError(t, err)
	assert.True(t, ticket.CheckIn["day1"])

	events, err := store.ListCheckInEvents(ctx, "CONF-ATIN000000000001")
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, "day1", events[0].EventKey)
	assert.Equal(t, "gate-A", events[0].Actor)
	assert.False(t, events[0].NoOp)
}

func TestToggleCheckInNoOpStillAudits(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, store.CreateTicket(ctx, sampleTicket("atn-1", "CONF-ATIN000000000001")))

	_, _, err := store.ToggleCheckIn(ctx, "CONF-ATIN000000000001", "day1", true, "gate-A")
	assert.NoError(t, err)

	changed, newValue, err := store.ToggleCheckIn(ctx, "CONF-ATIN000000000001", "day1", true, "gate-B")
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, newValue)

	events, err := store.ListCheckInEvents(ctx, "CONF-ATIN000000000001")
	assert.NoError(t, err)
	assert.Len(t, events, 2)

	noOps := 0
	for _, e := range events {
		if e.NoOp {
			noOps++
			assert.Equal(t, "gate-B", e.Actor)
		}
	}
	assert.Equal(t, 1, noOps)
}

func TestToggleCheckInInvolution(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, store.CreateTicket(ctx, sampleTicket("atn-1", "CONF-ATIN000000000001")))

	changed, newValue, err := store.ToggleCheckIn(ctx, "CONF-ATIN000000000001", "day2", true, "gate-A")
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, newValue)

	changed, newValue, err = store.ToggleCheckIn(ctx, "CONF-ATIN000000000001", "day2", false, "gate-A")
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, newValue)

	ticket, err := store.GetTicketByTxRef(ctx, "atn-1")
	assert.NoError(t, err)
	assert.False(t, ticket.CheckIn["day2"])
}

func TestToggleCheckInOpenKeySet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, store.CreateTicket(ctx, sampleTicket("atn-1", "CONF-ATIN000000000001")))

	// The flag set is open: keys never seen before are accepted.
	changed, newValue, err := store.ToggleCheckIn(ctx, "CONF-ATIN000000000001", "gala8pm", true, "gate-C")
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, newValue)

	ticket, err := store.GetTicketByTxRef(ctx, "atn-1")
	assert.NoError(t, err)
	assert.True(t, ticket.CheckIn["gala8pm"])
}

func TestToggleCheckInMissingTicket(t *testing.T) {
	store := setupTestDB(t)

	_, _, err := store.ToggleCheckIn(context.Background(), "CONF-ATIN000000000000", "day1", true, "gate-A")
	assert.True(t, errors.Is(err, models.ErrTicketNotFound))
}

func TestUpdateArtifactsAndMarkNotified(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, store.CreateTicket(ctx, sampleTicket("atn-1", "CONF-ATIN000000000001")))

	assert.NoError(t, store.UpdateArtifacts(ctx, "atn-1", []byte("png-bytes"), "passes/atn-1.pdf"))
	assert.NoError(t, store.MarkNotified(ctx, "atn-1"))

	ticket, err := store.GetTicketByTxRef(ctx, "atn-1")
	assert.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), ticket.QRCode)
	assert.Equal(t, "passes/atn-1.pdf", ticket.ArtifactRef)
	assert.True(t, ticket.NotificationSent)
}
