package ticket_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"atinuda-ticketing/internal/auth"
	"atinuda-ticketing/internal/checkin"
	"atinuda-ticketing/internal/logger"
	"atinuda-ticketing/internal/models"
	qr "atinuda-ticketing/internal/tickets/qr_generator"
	tickets "atinuda-ticketing/internal/tickets/service"
	"atinuda-ticketing/internal/utils"
)

type Handler struct {
	TicketService  *tickets.TicketService
	CheckinService *checkin.Service
	QRGenerator    *qr.QRGenerator
	Logger         *logger.Logger
}

func NewHandler(ticketService *tickets.TicketService, checkinService *checkin.Service, qrGen *qr.QRGenerator, log *logger.Logger) *Handler {
	return &Handler{
		TicketService:  ticketService,
		CheckinService: checkinService,
		QRGenerator:    qrGen,
		Logger:         log,
	}
}

// Routes mounts the ticket API.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/tickets/issue", h.IssueTicket)
	r.Post("/tickets/checkin", h.ToggleCheckin)
	r.Get("/tickets/{ticketNumber}", h.ViewTicket)
	r.Get("/tickets/{ticketNumber}/checkins", h.CheckinHistory)
}

// IssueTicket verifies payment for the referenced transaction and issues the
// ticket exactly once. Repeat calls return the original ticket.
// Expected POST request body: {"tx_ref": "atn-..."}
func (h *Handler) IssueTicket(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var requestBody struct {
		TxRef string `json:"tx_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if requestBody.TxRef == "" {
		utils.WriteError(w, http.StatusBadRequest, "tx_ref is required", nil)
		return
	}

	requester := h.requester(r)

	view, err := h.TicketService.IssueTicket(r.Context(), requestBody.TxRef, requester)
	if err != nil {
		h.writeIssueError(w, requestBody.TxRef, err)
		return
	}

	status := http.StatusCreated
	message := "Ticket issued"
	if view.AlreadyIssued {
		status = http.StatusOK
		message = "Ticket already issued"
	}

	h.Logger.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", status), time.Since(start).String())
	utils.WriteJSON(w, status, utils.SuccessResponse(message, view))
}

// ToggleCheckin sets an attendance flag for a ticket. The ticket can be
// referenced either by its number or by the encrypted QR payload a gate
// scanner reads off the pass.
// Expected POST request body:
//
//	{"ticket_number": "CONF-ATIN...", "event_key": "day1", "desired_value": true}
//	{"qr_data": "<encrypted>", "event_key": "day1", "desired_value": true}
func (h *Handler) ToggleCheckin(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		TicketNumber string `json:"ticket_number"`
		QRData       string `json:"qr_data"`
		EventKey     string `json:"event_key"`
		DesiredValue *bool  `json:"desired_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if requestBody.DesiredValue == nil {
		utils.WriteError(w, http.StatusBadRequest, "desired_value is required", nil)
		return
	}

	ticketNumber := requestBody.TicketNumber
	if ticketNumber == "" && requestBody.QRData != "" {
		payload, err := h.QRGenerator.DecryptQRData(requestBody.QRData)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid QR code", err)
			return
		}
		ticketNumber = payload.TicketNumber
	}
	if ticketNumber == "" {
		utils.WriteError(w, http.StatusBadRequest, "ticket_number or qr_data is required", nil)
		return
	}

	actor := h.requester(r)
	if actor == "" {
		actor = "anonymous"
	}

	result, err := h.CheckinService.ToggleCheckIn(r.Context(), ticketNumber, requestBody.EventKey, *requestBody.DesiredValue, actor)
	if err != nil {
		h.writeCheckinError(w, ticketNumber, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Check-in recorded", result))
}

func (h *Handler) ViewTicket(w http.ResponseWriter, r *http.Request) {
	ticketNumber := chi.URLParam(r, "ticketNumber")
	ticket, err := h.TicketService.GetTicket(r.Context(), ticketNumber)
	if err != nil {
		if errors.Is(err, models.ErrTicketNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Ticket not found", err)
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to fetch ticket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket", ticket))
}

func (h *Handler) CheckinHistory(w http.ResponseWriter, r *http.Request) {
	ticketNumber := chi.URLParam(r, "ticketNumber")
	events, err := h.CheckinService.History(r.Context(), ticketNumber)
	if err != nil {
		if errors.Is(err, models.ErrTicketNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Ticket not found", err)
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to fetch check-in history", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Check-in history", events))
}

// requester resolves the caller identity, preferring the OIDC middleware's
// verified subject and falling back to the raw bearer token's sub claim for
// deployments running without the middleware.
func (h *Handler) requester(r *http.Request) string {
	if uid := auth.UserID(r.Context()); uid != "" {
		return uid
	}
	tokenString, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		return ""
	}
	uid, err := auth.ExtractUserIDFromJWT(tokenString)
	if err != nil {
		return ""
	}
	return uid
}

func (h *Handler) writeIssueError(w http.ResponseWriter, txRef string, err error) {
	switch {
	case errors.Is(err, models.ErrOrderNotFound):
		utils.WriteError(w, http.StatusNotFound, "Order not found", err)
	case errors.Is(err, models.ErrForbidden):
		utils.WriteError(w, http.StatusForbidden, "Order belongs to another user", err)
	case errors.Is(err, models.ErrNotPaid), errors.Is(err, models.ErrGatewayRejected):
		utils.WriteError(w, http.StatusPaymentRequired, "Payment not confirmed", err)
	case errors.Is(err, models.ErrLedgerConflict):
		utils.WriteError(w, http.StatusConflict, "Payment does not match order", err)
	case errors.Is(err, models.ErrGatewayUnreachable):
		utils.WriteError(w, http.StatusBadGateway, "Payment gateway unreachable", err)
	default:
		h.Logger.Error("API", fmt.Sprintf("issuance failed for %s: %v", txRef, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to issue ticket", err)
	}
}

func (h *Handler) writeCheckinError(w http.ResponseWriter, ticketNumber string, err error) {
	switch {
	case errors.Is(err, models.ErrTicketNotFound):
		utils.WriteError(w, http.StatusNotFound, "Ticket not found", err)
	case errors.Is(err, models.ErrUnknownEvent):
		utils.WriteError(w, http.StatusBadRequest, "Unknown event key", err)
	default:
		h.Logger.Error("API", fmt.Sprintf("check-in failed for %s: %v", ticketNumber, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to record check-in", err)
	}
}
