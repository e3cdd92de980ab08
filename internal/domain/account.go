/**
 * @description
 * This file defines the Account domain model for the ledger-service. Accounts are
 * created during onboarding (outside this service); the transfer engine only ever
 * mutates their balance, and the link handshake only ever mutates the gateway
 * link fields.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a customer deposit account held by this ledger.
// Balance is stored in integer minor units and must never go negative.
type Account struct {
	ID                   uuid.UUID `json:"id"`
	AccountNumber        string    `json:"account_number"`
	RoutingCode          string    `json:"routing_code"`
	CustomerID           string    `json:"customer_id"`
	Balance              int64     `json:"balance"`
	PasswordHash         string    `json:"-"`
	TransactionPINHash   string    `json:"-"`
	LinkedUserID         *string   `json:"linked_user_id,omitempty"`
	ExternalAccountToken *string   `json:"-"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// IsLinked reports whether the account has completed the gateway link handshake.
func (a *Account) IsLinked() bool {
	return a.LinkedUserID != nil && *a.LinkedUserID != ""
}

// LinkClaim carries the identity fields a gateway user claims for an account
// during the link handshake. Every field must match the stored account before
// any credential proof is attempted.
type LinkClaim struct {
	AccountNumber  string `json:"account_number"`
	RoutingCode    string `json:"routing_code"`
	CustomerID     string `json:"customer_id"`
	ExternalUserID string `json:"external_user_id"`
}
