package checkin

import (
	"context"
	"fmt"

	"atinuda-ticketing/internal/config"
	"atinuda-ticketing/internal/logger"
	"atinuda-ticketing/internal/models"
)

// Store is the slice of the ticket store the check-in machine needs.
type Store interface {
	GetTicketByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error)
	ToggleCheckIn(ctx context.Context, ticketNumber, eventKey string, desired bool, actor string) (changed bool, newValue bool, err error)
	ListCheckInEvents(ctx context.Context, ticketNumber string) ([]models.CheckInEvent, error)
}

// EventPublisher streams toggle events. Optional.
type EventPublisher interface {
	PublishCheckinToggled(ctx context.Context, event models.CheckInEvent) error
}

// Result is the outcome of a toggle. Changed=false means the flag already
// held the desired value; callers must treat both outcomes as success.
type Result struct {
	Changed  bool `json:"changed"`
	NewValue bool `json:"new_value"`
}

// Service is the check-in state machine: each (ticketNumber, eventKey) pair
// is a two-state toggle, safe under concurrent scanning because the flip is
// a compare-and-set at the store layer. The event-key set is open unless the
// deployment enables strict mode with an allow-list.
type Service struct {
	Store     Store
	Publisher EventPublisher
	Logger    *logger.Logger

	strict  bool
	allowed map[string]bool
}

func NewService(store Store, cfg config.CheckInConfig, log *logger.Logger) *Service {
	allowed := make(map[string]bool, len(cfg.AllowedKeys))
	for _, key := range cfg.AllowedKeys {
		if key != "" {
			allowed[key] = true
		}
	}
	return &Service{
		Store:   store,
		Logger:  log,
		strict:  cfg.Strict,
		allowed: allowed,
	}
}

// ToggleCheckIn sets the named attendance flag to desired. A no-op toggle
// still succeeds and still lands an audit entry.
func (s *Service) ToggleCheckIn(ctx context.Context, ticketNumber, eventKey string, desired bool, actor string) (*Result, error) {
	if eventKey == "" {
		return nil, fmt.Errorf("%w: empty event key", models.ErrUnknownEvent)
	}
	if s.strict && !s.allowed[eventKey] {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEvent, eventKey)
	}

	changed, newValue, err := s.Store.ToggleCheckIn(ctx, ticketNumber, eventKey, desired, actor)
	if err != nil {
		return nil, err
	}

	if changed {
		s.Logger.LogCheckin(ticketNumber, eventKey, fmt.Sprintf("set to %v by %s", newValue, actor))
	} else {
		s.Logger.LogCheckin(ticketNumber, eventKey, fmt.Sprintf("no-op at %v by %s", newValue, actor))
	}

	if s.Publisher != nil {
		event := models.CheckInEvent{
			TicketNumber: ticketNumber,
			EventKey:     eventKey,
			NewValue:     newValue,
			NoOp:         !changed,
			Actor:        actor,
		}
		if err := s.Publisher.PublishCheckinToggled(ctx, event); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish check-in toggle for %s: %v", ticketNumber, err))
		}
	}

	return &Result{Changed: changed, NewValue: newValue}, nil
}

// History returns the append-only audit trail for a ticket.
func (s *Service) History(ctx context.Context, ticketNumber string) ([]models.CheckInEvent, error) {
	if _, err := s.Store.GetTicketByNumber(ctx, ticketNumber); err != nil {
		return nil, err
	}
	return s.Store.ListCheckInEvents(ctx, ticketNumber)
}
