package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"atinuda-ticketing/internal/config"
	"atinuda-ticketing/internal/gateway"
	"atinuda-ticketing/internal/models"
)

func newTestClient(serverURL string) *gateway.Client {
	cfg := config.GatewayConfig{
		BaseURL:   serverURL,
		SecretKey: "sk_test_secret",
		Timeout:   2 * time.Second,
	}
	return gateway.NewClient(cfg, nil)
}

func TestVerifySuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/atn-1/verify", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"message": "Transaction fetched successfully",
			"data": {
				"id": 4788421,
				"status": "successful",
				"amount": 295000,
				"currency": "NGN",
				"tx_ref": "atn-1",
				"customer": {"email": "ada@example.com", "name": "Ada Obi"}
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	verified, err := client.Verify(context.Background(), "atn-1")

	assert.NoError(t, err)
	assert.Equal(t, "atn-1", verified.TxRef)
	assert.Equal(t, float64(295000), verified.Amount)
	assert.Equal(t, "NGN", verified.Currency)
	assert.Equal(t, "ada@example.com", verified.BuyerEmail)
	assert.Equal(t, "Ada Obi", verified.BuyerName)
}

func TestVerifyRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"message": "Transaction fetched successfully",
			"data": {
				"id": 4788422,
				"status": "failed",
				"amount": 295000,
				"currency": "NGN",
				"tx_ref": "atn-2",
				"customer": {"email": "ada@example.com", "name": "Ada Obi"}
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Verify(context.Background(), "atn-2")

	assert.True(t, errors.Is(err, models.ErrGatewayRejected))
}

func TestVerifyNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error","message":"No transaction was found for this id"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Verify(context.Background(), "missing-ref")

	assert.True(t, errors.Is(err, models.ErrGatewayRejected))
}

func TestVerifyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Verify(context.Background(), "atn-3")

	assert.True(t, errors.Is(err, models.ErrGatewayUnreachable))
}

func TestVerifyUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server.URL)
	_, err := client.Verify(context.Background(), "atn-4")

	assert.True(t, errors.Is(err, models.ErrGatewayUnreachable))
}
