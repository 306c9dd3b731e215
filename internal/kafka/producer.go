package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"atinuda-ticketing/internal/models"
)

// Producer streams ticketing events to Kafka. Publishing is best-effort and
// off the correctness path: a broker outage costs visibility, not tickets.
type Producer struct {
	issuedWriter  *kafka.Writer
	checkinWriter *kafka.Writer
}

func NewProducer(brokers []string, issuedTopic, checkinTopic string) *Producer {
	return &Producer{
		issuedWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   issuedTopic,
		}),
		checkinWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   checkinTopic,
		}),
	}
}

// TicketIssuedEvent is the wire shape of a ticket-issued message.
type TicketIssuedEvent struct {
	TxRef        string    `json:"tx_ref"`
	TicketNumber string    `json:"ticket_number"`
	TicketType   string    `json:"ticket_type"`
	Email        string    `json:"email"`
	IssuedAt     time.Time `json:"issued_at"`
}

// PublishTicketIssued streams a ticket creation event, keyed by txRef.
func (p *Producer) PublishTicketIssued(ctx context.Context, ticket *models.Ticket) error {
	event := TicketIssuedEvent{
		TxRef:        ticket.TxRef,
		TicketNumber: ticket.TicketNumber,
		TicketType:   ticket.TicketType,
		Email:        ticket.Email,
		IssuedAt:     ticket.IssuedAt,
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.issuedWriter.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(ticket.TxRef),
			Value: msgBytes,
		},
	)
}

// PublishCheckinToggled streams a check-in audit entry, keyed by ticket number.
func (p *Producer) PublishCheckinToggled(ctx context.Context, event models.CheckInEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.checkinWriter.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(event.TicketNumber),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	if err := p.issuedWriter.Close(); err != nil {
		return err
	}
	return p.checkinWriter.Close()
}
