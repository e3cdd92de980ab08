/**
 * @description
 * This file defines the audit event model emitted to the audit sink. Events are
 * keyed by kind; every transfer state transition and every transfer-affecting
 * failure produces one. Audit emission is best-effort and never a correctness
 * mechanism.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit event kinds double as routing keys on the audit exchange.
const (
	AuditTransferInitiated = "transfer.initiated"
	AuditTransferDeducted  = "transfer.deducted"
	AuditTransferCredited  = "transfer.credited"
	AuditTransferCompleted = "transfer.completed"
	AuditTransferFailed    = "transfer.failed"
	AuditGatewayDenied     = "gateway.confirmation.denied"
	AuditLinkEstablished   = "link.established"
	AuditLinkFailed        = "link.failed"
)

// Error classifications attached to audit events and error envelopes.
const (
	ClassValidation = "validation_error"
	ClassAuth       = "auth_error"
	ClassNotFound   = "not_found_error"
	ClassConflict   = "conflict_error"
	ClassUpstream   = "upstream_error"
	ClassInternal   = "internal_error"
)

// AuditEvent is the structured payload published for every state transition
// and failure point in the transfer and link flows.
type AuditEvent struct {
	Kind           string     `json:"kind"`
	TransactionID  *uuid.UUID `json:"transaction_id,omitempty"`
	AccountID      *uuid.UUID `json:"account_id,omitempty"`
	Amount         int64      `json:"amount,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Classification string     `json:"classification,omitempty"`
	Actor          string     `json:"actor,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}
