package models

// VerifiedPayment is the normalized result of a gateway verification call.
type VerifiedPayment struct {
	ID         int64   `json:"id"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	TxRef      string  `json:"tx_ref"`
	BuyerEmail string  `json:"buyer_email,omitempty"`
	BuyerName  string  `json:"buyer_name,omitempty"`
}

// GatewayCustomer mirrors the customer object of the gateway's verify payload.
type GatewayCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GatewayVerifyData is the inner data object of the verify response.
type GatewayVerifyData struct {
	ID       int64           `json:"id"`
	Status   string          `json:"status"`
	Amount   float64         `json:"amount"`
	Currency string          `json:"currency"`
	TxRef    string          `json:"tx_ref"`
	Customer GatewayCustomer `json:"customer"`
}

// GatewayVerifyResponse is the raw wire shape of GET /transactions/{id}/verify.
type GatewayVerifyResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    GatewayVerifyData `json:"data"`
}
