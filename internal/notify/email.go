package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"atinuda-ticketing/internal/config"
	"atinuda-ticketing/internal/models"
)

// Mailer delivers the issued pass to the buyer over SMTP. Delivery is
// best-effort and independently retryable; a failed send never rolls back
// the ticket it announces.
type Mailer struct {
	cfg config.EmailConfig
}

func NewMailer(cfg config.EmailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) client() (*mail.Client, error) {
	c, err := mail.NewClient(
		m.cfg.SMTPHost,
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.SMTPUsername),
		mail.WithPassword(m.cfg.SMTPPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize smtp client: %w", err)
	}
	return c, nil
}

// SendTicket emails the pass with the PDF attached.
func (m *Mailer) SendTicket(ctx context.Context, ticket *models.Ticket, passPDF []byte) error {
	if ticket.Email == "" {
		return fmt.Errorf("ticket %s has no buyer email", ticket.TicketNumber)
	}

	c, err := m.client()
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.FromAddress); err != nil {
		return fmt.Errorf("failed to set From address: %w", err)
	}
	if err := msg.To(ticket.Email); err != nil {
		return fmt.Errorf("failed to set To address: %w", err)
	}

	msg.Subject(fmt.Sprintf("Your ticket %s", ticket.TicketNumber))
	msg.SetBodyString(mail.TypeTextHTML, ticketBody(ticket))

	if len(passPDF) > 0 {
		if err := msg.AttachReader("ticket.pdf", bytes.NewReader(passPDF)); err != nil {
			return fmt.Errorf("failed to attach pass: %w", err)
		}
	}

	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send ticket email: %w", err)
	}
	return nil
}

func ticketBody(ticket *models.Ticket) string {
	return fmt.Sprintf(
		`<p>Hello %s,</p>
<p>Your payment has been confirmed and your ticket is attached.</p>
<ul>
  <li>Ticket number: <strong>%s</strong></li>
  <li>Ticket type: %s</li>
  <li>Location: %s</li>
</ul>
<p>Please bring the attached pass with you. See you there!</p>`,
		ticket.FullName, ticket.TicketNumber, ticket.TicketType, ticket.Location,
	)
}
