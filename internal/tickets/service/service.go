package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atinuda-ticketing/internal/logger"
	"atinuda-ticketing/internal/models"
	"atinuda-ticketing/internal/tickets/ticketno"
)

type OrderLedger interface {
	GetOrderByTxRef(ctx context.Context, txRef string) (*models.Order, error)
	MarkPaid(ctx context.Context, txRef string, verified *models.VerifiedPayment) error
	MarkFailed(ctx context.Context, txRef string) error
	MarkIssued(ctx context.Context, txRef, ticketNumber string) error
}

type TicketStore interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicketByTxRef(ctx context.Context, txRef string) (*models.Ticket, error)
	GetTicketByNumber(ctx context.Context, ticketNumber string) (*models.Ticket, error)
	UpdateArtifacts(ctx context.Context, txRef string, qrCode []byte, artifactRef string) error
	MarkNotified(ctx context.Context, txRef string) error
}

type GatewayVerifier interface {
	Verify(ctx context.Context, transactionID string) (*models.VerifiedPayment, error)
}

// VerificationCache shields the gateway from duplicate verify calls during
// retry storms. Optional; a nil cache is skipped.
type VerificationCache interface {
	Get(ctx context.Context, txRef string) (*models.VerifiedPayment, error)
	Put(ctx context.Context, txRef string, verified *models.VerifiedPayment) error
}

// ArtifactGenerator produces the scannable code and printable pass for a
// ticket. Failures are non-fatal to issuance.
type ArtifactGenerator interface {
	Generate(ctx context.Context, ticket *models.Ticket) (qrCode []byte, passPDF []byte, artifactRef string, err error)
}

// Notifier delivers the pass to the buyer. Failures are non-fatal and
// independently retryable.
type Notifier interface {
	SendTicket(ctx context.Context, ticket *models.Ticket, passPDF []byte) error
}

// EventPublisher streams ticket lifecycle events. Optional.
type EventPublisher interface {
	PublishTicketIssued(ctx context.Context, ticket *models.Ticket) error
}

// TicketService orchestrates gateway verification, ledger transitions,
// atomic ticket creation and best-effort post-processing. All exactly-once
// behavior is delegated to the store's create-if-absent insert; the service
// itself holds no cross-request state.
type TicketService struct {
	Orders    OrderLedger
	Tickets   TicketStore
	Gateway   GatewayVerifier
	Cache     VerificationCache
	Artifacts ArtifactGenerator
	Notifier  Notifier
	Publisher EventPublisher
	Logger    *logger.Logger

	Location string
}

func NewTicketService(orders OrderLedger, tickets TicketStore, gw GatewayVerifier, log *logger.Logger) *TicketService {
	return &TicketService{
		Orders:  orders,
		Tickets: tickets,
		Gateway: gw,
		Logger:  log,
	}
}

// IssueTicket issues the ticket for txRef exactly once, no matter how many
// times or how concurrently it is called. Repeat calls return the original
// ticket with AlreadyIssued set; they are success responses, not errors.
func (s *TicketService) IssueTicket(ctx context.Context, txRef, requester string) (*models.TicketView, error) {
	order, err := s.Orders.GetOrderByTxRef(ctx, txRef)
	if err != nil {
		return nil, err
	}

	if order.UserID != "" && order.UserID != requester {
		s.Logger.Warn("ISSUANCE", fmt.Sprintf("requester %q rejected for order %s", requester, txRef))
		return nil, models.ErrForbidden
	}

	// Idempotent fast path: if the ticket already exists, return it verbatim.
	existing, err := s.Tickets.GetTicketByTxRef(ctx, txRef)
	if err == nil {
		s.healLedger(ctx, order, existing)
		return s.view(existing, true), nil
	}
	if !errors.Is(err, models.ErrTicketNotFound) {
		return nil, err
	}

	if err := s.ensurePaid(ctx, order); err != nil {
		return nil, err
	}

	ticketNumber := ticketno.Generate(order.TicketType, txRef)
	now := time.Now().UTC()
	ticket := &models.Ticket{
		TxRef:        txRef,
		TicketNumber: ticketNumber,
		FullName:     order.BuyerName,
		Email:        order.BuyerEmail,
		TicketType:   order.TicketType,
		Location:     s.Location,
		CheckIn:      map[string]bool{},
		IssuedAt:     now,
		UpdatedAt:    now,
	}

	// The create-if-absent insert is the sole exactly-once mechanism. A loser
	// of a concurrent race folds into the idempotent read path above.
	if err := s.Tickets.CreateTicket(ctx, ticket); err != nil {
		if errors.Is(err, models.ErrTicketExists) {
			winner, readErr := s.Tickets.GetTicketByTxRef(ctx, txRef)
			if readErr != nil {
				return nil, readErr
			}
			return s.view(winner, true), nil
		}
		return nil, err
	}

	s.Logger.LogIssuance("CREATE", txRef, fmt.Sprintf("ticket %s issued", ticketNumber))

	if err := s.Orders.MarkIssued(ctx, txRef, ticketNumber); err != nil {
		// The ticket is durable; the ledger flag heals on the next idempotent read.
		s.Logger.Error("ISSUANCE", fmt.Sprintf("failed to mark order %s issued: %v", txRef, err))
	}

	view := s.view(ticket, false)
	s.postProcess(ctx, ticket, view)
	return view, nil
}

// ensurePaid moves a pending order to paid using the gateway's ground truth.
// A non-paid terminal state is ErrNotPaid; gateway rejection marks the order
// failed before surfacing.
func (s *TicketService) ensurePaid(ctx context.Context, order *models.Order) error {
	switch order.Status {
	case models.OrderPaid:
		return nil
	case models.OrderFailed:
		return models.ErrNotPaid
	}

	verified, err := s.verify(ctx, order.TxRef)
	if err != nil {
		if errors.Is(err, models.ErrGatewayRejected) {
			if failErr := s.Orders.MarkFailed(ctx, order.TxRef); failErr != nil {
				s.Logger.Error("ISSUANCE", fmt.Sprintf("failed to mark order %s failed: %v", order.TxRef, failErr))
			}
		}
		return err
	}

	if err := s.Orders.MarkPaid(ctx, order.TxRef, verified); err != nil {
		return err
	}

	s.Logger.LogGateway("VERIFIED", order.TxRef, fmt.Sprintf("%.2f %s confirmed", verified.Amount, verified.Currency))

	// Carry the gateway's customer record onto the pass.
	if verified.BuyerName != "" {
		order.BuyerName = verified.BuyerName
	}
	if verified.BuyerEmail != "" {
		order.BuyerEmail = verified.BuyerEmail
	}
	order.Status = models.OrderPaid
	return nil
}

func (s *TicketService) verify(ctx context.Context, txRef string) (*models.VerifiedPayment, error) {
	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx, txRef)
		if err != nil {
			s.Logger.Warn("GATEWAY", fmt.Sprintf("verification cache read failed for %s: %v", txRef, err))
		} else if cached != nil {
			s.Logger.LogGateway("CACHE-HIT", txRef, "using cached verification")
			return cached, nil
		}
	}

	verified, err := s.Gateway.Verify(ctx, txRef)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Put(ctx, txRef, verified); err != nil {
			s.Logger.Warn("GATEWAY", fmt.Sprintf("verification cache write failed for %s: %v", txRef, err))
		}
	}
	return verified, nil
}

// postProcess runs the best-effort side effects after the ticket is durable:
// artifact generation, buyer notification, event publishing. Each failure is
// logged and reflected on the response flags, never propagated.
func (s *TicketService) postProcess(ctx context.Context, ticket *models.Ticket, view *models.TicketView) {
	var passPDF []byte

	if s.Artifacts != nil {
		qrCode, pdf, artifactRef, err := s.Artifacts.Generate(ctx, ticket)
		if err != nil {
			s.Logger.Error("ISSUANCE", fmt.Sprintf("artifact generation failed for %s: %v", ticket.TxRef, err))
		} else {
			passPDF = pdf
			ticket.QRCode = qrCode
			ticket.ArtifactRef = artifactRef
			view.ArtifactOk = true
			view.QRAsset = qrCode
			if err := s.Tickets.UpdateArtifacts(ctx, ticket.TxRef, qrCode, artifactRef); err != nil {
				s.Logger.Error("ISSUANCE", fmt.Sprintf("failed to persist artifacts for %s: %v", ticket.TxRef, err))
			}
		}
	}

	if s.Notifier != nil {
		if err := s.Notifier.SendTicket(ctx, ticket, passPDF); err != nil {
			s.Logger.Error("ISSUANCE", fmt.Sprintf("notification failed for %s: %v", ticket.TxRef, err))
		} else {
			view.NotificationOk = true
			ticket.NotificationSent = true
			if err := s.Tickets.MarkNotified(ctx, ticket.TxRef); err != nil {
				s.Logger.Error("ISSUANCE", fmt.Sprintf("failed to mark %s notified: %v", ticket.TxRef, err))
			}
		}
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishTicketIssued(ctx, ticket); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish ticket issued for %s: %v", ticket.TxRef, err))
		}
	}
}

// healLedger repairs a ledger row whose MarkIssued write was lost after the
// ticket itself was durably created.
func (s *TicketService) healLedger(ctx context.Context, order *models.Order, ticket *models.Ticket) {
	if order.TicketIssued {
		return
	}
	if err := s.Orders.MarkIssued(ctx, order.TxRef, ticket.TicketNumber); err != nil {
		s.Logger.Warn("ISSUANCE", fmt.Sprintf("ledger heal failed for %s: %v", order.TxRef, err))
	}
}

// GetTicket returns a ticket by its number.
func (s *TicketService) GetTicket(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	return s.Tickets.GetTicketByNumber(ctx, ticketNumber)
}

func (s *TicketService) view(ticket *models.Ticket, alreadyIssued bool) *models.TicketView {
	return &models.TicketView{
		TicketNumber:   ticket.TicketNumber,
		FullName:       ticket.FullName,
		TicketType:     ticket.TicketType,
		Location:       ticket.Location,
		QRAsset:        ticket.QRCode,
		AlreadyIssued:  alreadyIssued,
		ArtifactOk:     ticket.ArtifactRef != "" || len(ticket.QRCode) > 0,
		NotificationOk: ticket.NotificationSent,
	}
}
