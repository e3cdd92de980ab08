/**
 * @description
 * This file defines the Repository interface that the application layer depends
 * on for account and transaction persistence, along with the sentinel errors
 * the storage layer can surface. The atomic mutation scope used by all transfer
 * paths is expressed as WithinScope: every write made through the Scope is
 * applied fully on commit or not at all on abort.
 *
 * @dependencies
 * - internal/domain: Domain models.
 * - github.com/google/uuid: Identifier type.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/finvault/ledger-service/internal/domain"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	// ErrStatusConflict is returned when a status advance does not match the
	// record's current status, i.e. an out-of-order transition was attempted.
	ErrStatusConflict = errors.New("transaction status transition conflict")
)

// Scope is the set of writes available inside one atomic mutation scope.
// Reads through the scope take row locks so that concurrent transfers against
// the same account pair serialize or abort rather than interleave.
type Scope interface {
	// LockAccountByID loads and locks an account by its identifier.
	LockAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// LockAccountByNumber loads and locks an account by account number alone.
	// Account numbers are unique within this ledger.
	LockAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	// LockAccountByNumberAndRouting loads and locks an account by number and routing code.
	LockAccountByNumberAndRouting(ctx context.Context, accountNumber, routingCode string) (*domain.Account, error)
	// CreateTransaction persists a new transaction record.
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	// AdvanceTransactionStatus moves a transaction from one status to the next.
	// The write is compare-and-set on the current status: a mismatch returns
	// ErrStatusConflict instead of silently overwriting.
	AdvanceTransactionStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) error
	// DebitAccount subtracts amount from the account balance. The balance
	// never goes negative; a shortfall returns ErrInsufficientFunds.
	DebitAccount(ctx context.Context, accountID uuid.UUID, amount int64) error
	// CreditAccount adds amount to the account balance.
	CreditAccount(ctx context.Context, accountID uuid.UUID, amount int64) error
}

// Repository is the data access contract for the ledger-service.
type Repository interface {
	FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	FindAccountByNumberAndRouting(ctx context.Context, accountNumber, routingCode string) (*domain.Account, error)
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// FindTransactionsByAccountNumber lists transactions where the account is
	// either party, newest first.
	FindTransactionsByAccountNumber(ctx context.Context, accountNumber string, limit, offset int) ([]domain.Transaction, error)
	// RecordTransactionFailure writes a FAILED record for the given transaction
	// in its own write, outside any aborted scope. The write is an upsert: the
	// scoped insert that allocated the id may have been rolled back.
	RecordTransactionFailure(ctx context.Context, tx *domain.Transaction, reason string) error
	// SetAccountLink persists the gateway link fields after a successful
	// handshake acknowledgement from the partner.
	SetAccountLink(ctx context.Context, accountID uuid.UUID, linkedUserID, externalAccountToken string) error
	// WithinScope runs fn inside one atomic mutation scope. Any error from fn
	// aborts the scope; every write made through it is discarded.
	WithinScope(ctx context.Context, fn func(Scope) error) error
}
