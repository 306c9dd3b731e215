package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"atinuda-ticketing/internal/config"
	"atinuda-ticketing/internal/models"
)

// Client calls the payment gateway's verification endpoint and normalizes
// its response. The gateway is the source of truth for payment success; this
// client performs no retries and leaves no state behind. Retry policy belongs
// to the caller, which is always safe because issuance is idempotent.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(cfg config.GatewayConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		http:      httpClient,
	}
}

// Verify fetches the gateway's record for a transaction and normalizes it.
// A transport failure or gateway 5xx maps to ErrGatewayUnreachable; any
// response that does not report a successful charge maps to ErrGatewayRejected.
func (c *Client) Verify(ctx context.Context, transactionID string) (*models.VerifiedPayment, error) {
	endpoint := fmt.Sprintf("%s/transactions/%s/verify", c.baseURL, url.PathEscape(transactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned status %d", models.ErrGatewayUnreachable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gateway returned status %d", models.ErrGatewayRejected, resp.StatusCode)
	}

	var body models.GatewayVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}

	if !strings.EqualFold(body.Status, "success") || !strings.EqualFold(body.Data.Status, "successful") {
		return nil, fmt.Errorf("%w: status=%s, data.status=%s", models.ErrGatewayRejected, body.Status, body.Data.Status)
	}

	return &models.VerifiedPayment{
		ID:         body.Data.ID,
		Status:     body.Data.Status,
		Amount:     body.Data.Amount,
		Currency:   body.Data.Currency,
		TxRef:      body.Data.TxRef,
		BuyerEmail: body.Data.Customer.Email,
		BuyerName:  body.Data.Customer.Name,
	}, nil
}
