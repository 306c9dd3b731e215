package qr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	qr "atinuda-ticketing/internal/tickets/qr_generator"
)

func TestEncryptedQRRoundTrip(t *testing.T) {
	gen := qr.NewQRGenerator("test-secret")

	payload := qr.TicketPayload{
		TicketNumber: "CONF-ATIN000000000001",
		TxRef:        "atn-1",
		FullName:     "Ada Obi",
	}

	png, err := gen.GenerateEncryptedQR(payload)
	assert.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestDecryptQRData(t *testing.T) {
	gen := qr.NewQRGenerator("test-secret")

	// Exercise the payload codec directly through an encrypt/decrypt pair by
	// regenerating the encrypted string the same way GenerateEncryptedQR does.
	payload := qr.TicketPayload{
		TicketNumber: "CONF-ATIN000000000001",
		TxRef:        "atn-1",
		FullName:     "Ada Obi",
	}
	encrypted, err := gen.EncryptPayload(payload)
	assert.NoError(t, err)

	decoded, err := gen.DecryptQRData(encrypted)
	assert.NoError(t, err)
	assert.Equal(t, payload, *decoded)
}

func TestDecryptQRDataWrongSecret(t *testing.T) {
	gen := qr.NewQRGenerator("test-secret")
	other := qr.NewQRGenerator("other-secret")

	encrypted, err := gen.EncryptPayload(qr.TicketPayload{TicketNumber: "CONF-ATIN000000000001"})
	assert.NoError(t, err)

	_, err = other.DecryptQRData(encrypted)
	assert.Error(t, err)
}

func TestURLQR(t *testing.T) {
	gen := qr.NewQRGenerator("test-secret")

	png, err := gen.GenerateURLQR("https://atinuda.africa/tickets/CONF-ATIN000000000001")
	assert.NoError(t, err)
	assert.NotEmpty(t, png)
}
