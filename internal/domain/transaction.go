/**
 * @description
 * This file defines the Transaction domain model and its status state machine.
 * Every status transition is persisted as durable state; transitions only ever
 * move forward along the allowed graph, with FAILED reachable from any
 * non-terminal state and never left.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is the lifecycle state of a transfer.
type TransactionStatus string

const (
	StatusInitiated TransactionStatus = "initiated"
	StatusDeducted  TransactionStatus = "deducted"
	StatusCredited  TransactionStatus = "credited"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// nextStatus encodes the forward edge of the status graph.
var nextStatus = map[TransactionStatus]TransactionStatus{
	StatusInitiated: StatusDeducted,
	StatusDeducted:  StatusCredited,
	StatusCredited:  StatusCompleted,
}

// CanAdvanceTo reports whether moving from s to next is a legal transition.
// FAILED is reachable from any non-terminal state; terminal states never move.
func (s TransactionStatus) CanAdvanceTo(next TransactionStatus) bool {
	if s == StatusCompleted || s == StatusFailed {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return nextStatus[s] == next
}

// IsTerminal reports whether the status admits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction is the durable record of a money movement between two accounts.
// Amount is fixed at creation and never mutated afterwards.
type Transaction struct {
	ID                uuid.UUID         `json:"id"`
	FromAccountNumber string            `json:"from_account_number"`
	ToAccountNumber   string            `json:"to_account_number"`
	Amount            int64             `json:"amount"`
	Status            TransactionStatus `json:"status"`
	Note              *string           `json:"note,omitempty"`
	FailureReason     *string           `json:"failure_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// TransferRequest is the payload of the customer-facing direct transfer endpoint.
type TransferRequest struct {
	ToAccountNumber string `json:"to_account_number"`
	RoutingCode     string `json:"routing_code"`
	Amount          int64  `json:"amount"`
	TransactionPIN  string `json:"transaction_pin"`
	Note            string `json:"note,omitempty"`
}

// ConfirmedTransfer is the validated parameter set returned by the partner
// gateway's confirmation endpoint. The partner's confirmation, not the
// caller's session, is the identity source of truth for the confirmed path.
type ConfirmedTransfer struct {
	FromAccountNumber string `json:"from_account_number"`
	ToAccountNumber   string `json:"to_account_number"`
	Amount            int64  `json:"amount"`
	Note              string `json:"note,omitempty"`
}
