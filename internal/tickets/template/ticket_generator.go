package template

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/signintech/gopdf"

	"atinuda-ticketing/internal/models"
)

// TicketPDFGenerator renders the printable conference pass. Artifact
// generation is best-effort: issuance never depends on it succeeding.
type TicketPDFGenerator struct {
	EventName string
	FontPath  string
}

func NewTicketPDFGenerator(eventName string) *TicketPDFGenerator {
	return &TicketPDFGenerator{
		EventName: eventName,
		FontPath:  "./fonts/DejaVuSans.ttf",
	}
}

func (g *TicketPDFGenerator) Generate(ticket *models.Ticket, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	err := pdf.AddTTFFont("dejavu", g.FontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	err = pdf.SetFont("dejavu", "", 14)
	if err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}

	g.addHeader(pdf)

	pdf.SetY(60)
	addTicketInfo(pdf, ticket)

	if len(qrCode) > 0 {
		pdf.SetY(pdf.GetY() + 20)
		addQRCode(pdf, qrCode)
	}

	pdf.SetY(260)
	addFooter(pdf)

	var buf bytes.Buffer
	err = pdf.Write(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func (g *TicketPDFGenerator) addHeader(pdf *gopdf.GoPdf) {
	pdf.SetX(40)
	pdf.SetY(30)
	pdf.Cell(nil, g.EventName+" Admission Pass")
}

func addTicketInfo(pdf *gopdf.GoPdf, ticket *models.Ticket) {
	info := []struct {
		Label string
		Value string
	}{
		{"Name", ticket.FullName},
		{"Ticket Number", ticket.TicketNumber},
		{"Ticket Type", ticket.TicketType},
		{"Location", ticket.Location},
		{"Issued", ticket.IssuedAt.Format("2006-01-02 15:04")},
	}

	for _, item := range info {
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(20)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.Cell(nil, "Failed to load QR code")
		return
	}

	rect := &gopdf.Rect{W: 100, H: 100}
	err = pdf.ImageFrom(img, 100, pdf.GetY(), rect)
	if err != nil {
		pdf.Cell(nil, "Failed to draw QR code")
	}
}

func addFooter(pdf *gopdf.GoPdf) {
	pdf.SetX(50)
	pdf.Cell(nil, "Present this pass at the entrance. Each pass admits one person.")
}
