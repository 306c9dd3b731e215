package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"
)

// TicketPayload is what ends up inside the scannable code. Kept small on
// purpose: enough for a gate scanner to resolve the ticket, nothing more.
type TicketPayload struct {
	TicketNumber string `json:"ticket_number"`
	TxRef        string `json:"tx_ref"`
	FullName     string `json:"full_name"`
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// GenerateEncryptedQR encodes the AES-encrypted ticket payload as a 256px PNG.
func (q *QRGenerator) GenerateEncryptedQR(payload TicketPayload) ([]byte, error) {
	encrypted, err := q.EncryptPayload(payload)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// EncryptPayload produces the string that GenerateEncryptedQR encodes.
func (q *QRGenerator) EncryptPayload(payload TicketPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// GenerateURLQR encodes a plain verification URL. Used for the printable
// pass, where the code must be scannable by any phone camera.
func (q *QRGenerator) GenerateURLQR(url string) ([]byte, error) {
	return qrcode.Encode(url, qrcode.Medium, 256)
}

// DecryptQRData reverses GenerateEncryptedQR's payload encoding, so gate
// scanners can post the raw scanned string instead of a ticket number.
func (q *QRGenerator) DecryptQRData(encrypted string) (*TicketPayload, error) {
	data, err := decryptAES(encrypted, q.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt QR data: %w", err)
	}

	var payload TicketPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode QR payload: %w", err)
	}
	return &payload, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(encoded string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])

	return data, nil
}
