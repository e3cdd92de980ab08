/**
 * @description
 * This file defines the sentinel errors surfaced by the application service and
 * the mapping from any error to its taxonomy classification. Handlers use the
 * sentinels for HTTP status mapping; the audit sink records the classification
 * alongside every transfer-affecting failure.
 */

package app

import (
	"errors"

	"github.com/finvault/ledger-service/internal/domain"
	"github.com/finvault/ledger-service/internal/store"
	"github.com/finvault/ledger-service/pkg/sharedtoken"
)

var (
	ErrInvalidAmount       = errors.New("transfer amount must be greater than zero")
	ErrMissingFields       = errors.New("required fields are missing")
	ErrSameAccount         = errors.New("sender and recipient are the same account")
	ErrInvalidPIN          = errors.New("invalid transaction pin")
	ErrInvalidCredential   = errors.New("credential proof failed")
	ErrIdentityMismatch    = errors.New("claimed identity does not match the stored account")
	ErrConfirmationDenied  = errors.New("partner gateway denied the transfer confirmation")
	ErrInvalidConfirmation = errors.New("partner confirmation payload is invalid")
	ErrTransferFailed      = errors.New("transfer failed to commit")
	ErrPartialLinkFailure  = errors.New("partner link callback failed; link not finalized")
	ErrRateLimited         = errors.New("too many attempts; try again later")
)

// Classify maps an error to its taxonomy classification string.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidConfirmation):
		return domain.ClassValidation
	case errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrIdentityMismatch),
		errors.Is(err, sharedtoken.ErrInvalidSignature),
		errors.Is(err, sharedtoken.ErrExpired),
		errors.Is(err, sharedtoken.ErrIssuerMismatch),
		errors.Is(err, sharedtoken.ErrAudienceMismatch),
		errors.Is(err, sharedtoken.ErrStaleIssuance):
		return domain.ClassAuth
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrTransactionNotFound):
		return domain.ClassNotFound
	case errors.Is(err, ErrSameAccount),
		errors.Is(err, ErrInvalidPIN),
		errors.Is(err, store.ErrInsufficientFunds),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, store.ErrStatusConflict):
		return domain.ClassConflict
	case errors.Is(err, ErrConfirmationDenied),
		errors.Is(err, ErrPartialLinkFailure):
		return domain.ClassUpstream
	default:
		return domain.ClassInternal
	}
}
