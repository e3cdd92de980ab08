/**
 * @description
 * This file contains the HTTP handlers for the customer-facing transfer
 * endpoints. Handlers parse incoming requests, call the application service,
 * and map service errors onto HTTP status codes. They act as the bridge between
 * the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http, strconv: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: Service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/finvault/ledger-service/internal/app"
	"github.com/finvault/ledger-service/internal/domain"
	"github.com/finvault/ledger-service/internal/store"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

// transferResponse mirrors the persisted transaction for API consumers.
type transferResponse struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	Amount        int64   `json:"amount"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

func buildTransferResponse(tx *domain.Transaction, message string) transferResponse {
	return transferResponse{
		TransactionID: tx.ID.String(),
		Status:        string(tx.Status),
		Message:       message,
		Amount:        tx.Amount,
		FailureReason: tx.FailureReason,
	}
}

// CreateTransferHandler handles direct account-to-account transfer requests.
func (h *LedgerHandlers) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetSessionAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_transfer outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	log.Printf("level=info component=api endpoint=create_transfer outcome=accepted account_id=%s amount=%d", accountID, req.Amount)

	tx, err := h.service.Transfer(r.Context(), accountID, req)
	if err != nil {
		log.Printf("level=warn component=api endpoint=create_transfer outcome=failed account_id=%s err=%v", accountID, err)
		h.writeTransferError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, buildTransferResponse(tx, "Transfer completed"))
}

// ListTransfersHandler returns the caller's transaction history, newest first.
func (h *LedgerHandlers) ListTransfersHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetSessionAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	limit := 50
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		offset = parsed
	}

	transactions, err := h.service.ListTransfers(r.Context(), accountID, limit, offset)
	if err != nil {
		log.Printf("level=warn component=api endpoint=list_transfers outcome=failed account_id=%s err=%v", accountID, err)
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// writeTransferError maps transfer-path service errors to HTTP status codes.
func (h *LedgerHandlers) writeTransferError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidAmount), errors.Is(err, app.ErrMissingFields):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidPIN), errors.Is(err, app.ErrInvalidCredential):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, store.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, "Recipient account not found")
	case errors.Is(err, app.ErrSameAccount), errors.Is(err, store.ErrStatusConflict):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, app.ErrConfirmationDenied):
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// errorResponse is the structured error envelope returned on every failure.
type errorResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing structured JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{StatusCode: status, Message: message})
}
