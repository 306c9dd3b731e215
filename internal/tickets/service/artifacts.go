package tickets

import (
	"context"
	"fmt"

	"atinuda-ticketing/internal/models"
	qr "atinuda-ticketing/internal/tickets/qr_generator"
	"atinuda-ticketing/internal/tickets/template"
)

// PassArtifacts is the default ArtifactGenerator: an encrypted QR for gate
// scanners plus a printable PDF pass carrying a plain verification-URL code.
type PassArtifacts struct {
	QR            *qr.QRGenerator
	PDF           *template.TicketPDFGenerator
	TicketURLBase string
}

func NewPassArtifacts(qrGen *qr.QRGenerator, pdfGen *template.TicketPDFGenerator, ticketURLBase string) *PassArtifacts {
	return &PassArtifacts{
		QR:            qrGen,
		PDF:           pdfGen,
		TicketURLBase: ticketURLBase,
	}
}

func (a *PassArtifacts) Generate(ctx context.Context, ticket *models.Ticket) ([]byte, []byte, string, error) {
	qrCode, err := a.QR.GenerateEncryptedQR(qr.TicketPayload{
		TicketNumber: ticket.TicketNumber,
		TxRef:        ticket.TxRef,
		FullName:     ticket.FullName,
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to generate QR: %w", err)
	}

	urlQR, err := a.QR.GenerateURLQR(fmt.Sprintf("%s/%s", a.TicketURLBase, ticket.TicketNumber))
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to generate URL QR: %w", err)
	}

	passPDF, err := a.PDF.Generate(ticket, urlQR)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to generate pass PDF: %w", err)
	}

	artifactRef := fmt.Sprintf("%s/%s", a.TicketURLBase, ticket.TicketNumber)
	return qrCode, passPDF, artifactRef, nil
}
