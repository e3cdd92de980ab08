/**
 * @description
 * This file contains the HTTP handlers for the gateway-facing endpoints: the
 * account link handshake, linked-account info, and gateway-confirmed transfers.
 * All routes here sit behind ServiceTokenMiddleware; the info and confirmed
 * transfer routes additionally require a valid account-scoped token.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/finvault/ledger-service/internal/app"
	"github.com/finvault/ledger-service/internal/domain"
	"github.com/finvault/ledger-service/internal/store"
)

type linkRequest struct {
	AccountNumber  string `json:"account_number"`
	RoutingCode    string `json:"routing_code"`
	CustomerID     string `json:"customer_id"`
	ExternalUserID string `json:"external_user_id"`
	Password       string `json:"password"`
	TransactionPIN string `json:"transaction_pin"`
}

type linkResponse struct {
	AccountToken string `json:"account_token"`
	Message      string `json:"message"`
}

type accountInfoResponse struct {
	AccountNumber string `json:"account_number"`
	RoutingCode   string `json:"routing_code"`
	Balance       int64  `json:"balance"`
}

type confirmedTransferRequest struct {
	TransactionRef string `json:"transaction_ref"`
}

// LinkAccountHandler runs the account link handshake on behalf of the partner
// gateway.
func (h *LedgerHandlers) LinkAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=link outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	claim := domain.LinkClaim{
		AccountNumber:  req.AccountNumber,
		RoutingCode:    req.RoutingCode,
		CustomerID:     req.CustomerID,
		ExternalUserID: req.ExternalUserID,
	}
	token, err := h.service.LinkAccount(r.Context(), claim, req.Password, req.TransactionPIN)
	if err != nil {
		log.Printf("level=warn component=api endpoint=link outcome=failed account_number=%s err=%v", req.AccountNumber, err)
		switch {
		case errors.Is(err, app.ErrMissingFields):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrIdentityMismatch), errors.Is(err, app.ErrInvalidCredential):
			h.writeError(w, http.StatusUnauthorized, "Account verification failed")
		case errors.Is(err, app.ErrRateLimited):
			h.writeError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, app.ErrPartialLinkFailure):
			h.writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, linkResponse{
		AccountToken: token,
		Message:      "Account linked",
	})
}

// AccountInfoHandler returns the linked account the presented account token
// resolves to.
func (h *LedgerHandlers) AccountInfoHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := GetGatewayAccount(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account from context")
		return
	}

	h.writeJSON(w, http.StatusOK, accountInfoResponse{
		AccountNumber: account.AccountNumber,
		RoutingCode:   account.RoutingCode,
		Balance:       account.Balance,
	})
}

// ConfirmedTransferHandler executes a transfer the partner gateway has already
// initiated, after confirming it upstream.
func (h *LedgerHandlers) ConfirmedTransferHandler(w http.ResponseWriter, r *http.Request) {
	account, ok := GetGatewayAccount(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account from context")
		return
	}

	var req confirmedTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=confirmed_transfer outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	tx, err := h.service.ConfirmAndTransfer(r.Context(), account.ID, req.TransactionRef)
	if err != nil {
		log.Printf("level=warn component=api endpoint=confirmed_transfer outcome=failed account_id=%s ref=%s err=%v", account.ID, req.TransactionRef, err)
		switch {
		case errors.Is(err, app.ErrMissingFields):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrConfirmationDenied), errors.Is(err, app.ErrInvalidConfirmation):
			h.writeError(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, err.Error())
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrSameAccount):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, app.ErrTransferFailed):
			h.writeError(w, http.StatusInternalServerError, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, buildTransferResponse(tx, "Transfer completed"))
}
