package checkin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"atinuda-ticketing/internal/checkin"
	"atinuda-ticketing/internal/config"
	"atinuda-ticketing/internal/logger"
	"atinuda-ticketing/internal/models"
)

// MockStore is a mock implementation of the checkin Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetTicketByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	args := m.Called(ticketNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockStore) ToggleCheckIn(ctx context.Context, ticketNumber, eventKey string, desired bool, actor string) (bool, bool, error) {
	args := m.Called(ticketNumber, eventKey, desired, actor)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) ListCheckInEvents(ctx context.Context, ticketNumber string) ([]models.CheckInEvent, error) {
	args := m.Called(ticketNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CheckInEvent), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCheckinToggled(ctx context.Context, event models.CheckInEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func openModeConfig() config.CheckInConfig {
	return config.CheckInConfig{
		Strict:      false,
		AllowedKeys: []string{"day1", "day2", "dinner", "gift"},
	}
}

func TestToggleCheckInFlips(t *testing.T) {
	store := new(MockStore)
	svc := checkin.NewService(store, openModeConfig(), logger.NewNop())

	store.On("ToggleCheckIn", "CONF-ATIN000000000042", "day1", true, "gate-A").Return(true, true, nil)

	result, err := svc.ToggleCheckIn(context.Background(), "CONF-ATIN000000000042", "day1", true, "gate-A")

	assert.NoError(t, err)
	assert.True(t, result.Changed)
	assert.True(t, result.NewValue)
	store.AssertExpectations(t)
}

func TestToggleCheckInNoOpIsSuccess(t *testing.T) {
	store := new(MockStore)
	svc := checkin.NewService(store, openModeConfig(), logger.NewNop())

	store.On("ToggleCheckIn", "CONF-ATIN000000000042", "day1", true, "gate-A").Return(false, true, nil)

	result, err := svc.ToggleCheckIn(context.Background(), "CONF-ATIN000000000042", "day1", true, "gate-A")

	assert.NoError(t, err)
	assert.False(t, result.Changed)
	assert.True(t, result.NewValue)
}

func TestToggleCheckInEmptyKeyRejected(t *testing.T) {
	store := new(MockStore)
	svc := checkin.NewService(store, openModeConfig(), logger.NewNop())

	_, err := svc.ToggleCheckIn(context.Background(), "CONF-ATIN000000000042", "", true, "gate-A")

	assert.True(t, errors.Is(err, models.ErrUnknownEvent))
	store.AssertNotCalled(t, "ToggleCheckIn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleCheckInStrictModeRejectsUnknownKey(t *testing.T) {
	store := new(MockStore)
	cfg := openModeConfig()
	cfg.Strict = true
	svc := checkin.NewService(store, cfg, logger.NewNop())

	_, err := svc.ToggleCheckIn(context.Background(), "CONF-ATIN000000000042", "afterparty", true, "gate-A")

	assert.True(t, errors.Is(err, models.ErrUnknownEvent))
	store.AssertNotCalled(t, "ToggleCheckIn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleCheckInStrictModeAllowsListedKey(t *testing.T) {
	store := new(MockStore)
	cfg := openModeConfig()
	cfg.Strict = true
	svc := checkin.NewService(store, cfg, logger.NewNop())

	store.On("ToggleCheckIn", "CONF-ATIN000000000042", "dinner", true, "gate-A").Return(true, true, nil)

	result, err := svc.ToggleCheckIn(context.Background(), "CONF-ATIN000000000042", "dinner", true, "gate-A")
	assert.NoError(t, err)
	assert.True(t, result.Changed)
}

func TestToggleCheckInOpenModeAcceptsNovelKey(t *testing.T) {
	store := new(MockStore)
	svc := checkin.NewService(store, openModeConfig(), logger.NewNop())

	store.On("ToggleCheckIn", "CONF-ATIN000000000042", "gala8pm", true, "gate-A").Return(true, true, nil)

	result, err := svc.ToggleCheckIn(context.Background(), "CONF-ATIN000000000042", "gala8pm", true, "gate-A")
	assert.NoError(t, err)
	assert.True(t, result.Changed)
}

func TestToggleCheckInTicketNotFound(t *testing.T) {
	store := new(MockStore)
	svc := checkin.NewService(store, openModeConfig(), logger.NewNop())

	store.On("ToggleCheckIn", "CONF-ATIN999999999999", "day1", true, "gate-A").Return(false, false, models.ErrTicketNotFound)

	_, err := svc.ToggleCheckIn(context.Background(), "CONF-ATIN999999999999", "day1", true, "gate-A")
	assert.True(t, errors.Is(err, models.ErrTicketNotFound))
}

func TestToggleCheckInPublishesEvent(t *testing.T) {
	store := new(MockStore)
	publisher := new(MockPublisher)
	svc := checkin.NewService(store, openModeConfig(), logger.NewNop())
	svc.Publisher = publisher

	store.On("ToggleCheckIn", "CONF-ATIN000000000042", "day1", true, "gate-A").Return(true, true, nil)
	publisher.On("PublishCheckinToggled", mock.MatchedBy(func(event models.CheckInEvent) bool {
		return event.TicketNumber == "CONF-ATIN000000000042" &&
			event.EventKey == "day1" &&
			event.NewValue && !event.NoOp &&
			event.Actor == "gate-A"
	})).Return(nil)

	_, err := svc.ToggleCheckIn(context.Background(), "CONF-ATIN000000000042", "day1", true, "gate-A")
	assert.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestToggleCheckInPublishFailureIsNonFatal(t *testing.T) {
	store := new(MockStore)
	publisher := new(MockPublisher)
	svc := checkin.NewService(store, openModeConfig(), logger.NewNop())
	svc.Publisher = publisher

	store.On("ToggleCheckIn", "CONF-ATIN000000000042", "day1", true, "gate-A").Return(true, true, nil)
	publisher.On("PublishCheckinToggled", mock.Anything).Return(errors.New("broker down"))

	result, err := svc.ToggleCheckIn(context.Background(), "CONF-ATIN000000000042", "day1", true, "gate-A")
	assert.NoError(t, err)
	assert.True(t, result.Changed)
}

func TestHistoryReturnsTrail(t *testing.T) {
	store := new(MockStore)
	svc := checkin.NewService(store, openModeConfig(), logger.NewNop())

	trail := []models.CheckInEvent{
		{TicketNumber: "CONF-ATIN000000000042", EventKey: "day1", NewValue: true, Actor: "gate-A"},
		{TicketNumber: "CONF-ATIN000000000042", EventKey: "day1", NewValue: true, NoOp: true, Actor: "gate-B"},
	}

	store.On("GetTicketByNumber", "CONF-ATIN000000000042").Return(&models.Ticket{TicketNumber: "CONF-ATIN000000000042"}, nil)
	store.On("ListCheckInEvents", "CONF-ATIN000000000042").Return(trail, nil)

	events, err := svc.History(context.Background(), "CONF-ATIN000000000042")
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.True(t, events[1].NoOp)
}

func TestHistoryUnknownTicket(t *testing.T) {
	store := new(MockStore)
	svc := checkin.NewService(store, openModeConfig(), logger.NewNop())

	store.On("GetTicketByNumber", "CONF-ATIN999999999999").Return(nil, models.ErrTicketNotFound)

	_, err := svc.History(context.Background(), "CONF-ATIN999999999999")
	assert.True(t, errors.Is(err, models.ErrTicketNotFound))
	store.AssertNotCalled(t, "ListCheckInEvents", mock.Anything)
}
