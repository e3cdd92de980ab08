/**
 * @description
 * This file provides the PostgreSQL implementation of the Repository interface.
 * The atomic mutation scope maps to a pgx transaction opened at repeatable-read
 * isolation; account reads inside the scope take FOR UPDATE row locks so that
 * concurrent transfers over the same account pair serialize, and a detected
 * write conflict aborts one contender for the caller to retry.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Domain models used for data transfer.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finvault/ledger-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `
	id, account_number, routing_code, customer_id, balance,
	password_hash, transaction_pin_hash, linked_user_id, external_account_token,
	created_at, updated_at
`

const transactionColumns = `
	id, from_account_number, to_account_number, amount, status,
	note, failure_reason, created_at, updated_at
`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.RoutingCode,
		&account.CustomerID,
		&account.Balance,
		&account.PasswordHash,
		&account.TransactionPINHash,
		&account.LinkedUserID,
		&account.ExternalAccountToken,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.FromAccountNumber,
		&tx.ToAccountNumber,
		&tx.Amount,
		&tx.Status,
		&tx.Note,
		&tx.FailureReason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// FindAccountByID retrieves an account by its identifier.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// FindAccountByNumber retrieves an account by account number alone.
func (r *PostgresRepository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountNumber))
}

// FindAccountByNumberAndRouting retrieves an account by account number and routing code.
func (r *PostgresRepository) FindAccountByNumberAndRouting(ctx context.Context, accountNumber, routingCode string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 AND routing_code = $2`
	return scanAccount(r.db.QueryRow(ctx, query, accountNumber, routingCode))
}

// FindTransactionByID retrieves a single transaction record.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

// FindTransactionsByAccountNumber lists transactions touching the account, newest first.
func (r *PostgresRepository) FindTransactionsByAccountNumber(ctx context.Context, accountNumber string, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_account_number = $1 OR to_account_number = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, accountNumber, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.FromAccountNumber,
			&tx.ToAccountNumber,
			&tx.Amount,
			&tx.Status,
			&tx.Note,
			&tx.FailureReason,
			&tx.CreatedAt,
			&tx.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// RecordTransactionFailure upserts a FAILED record for the transaction. The
// insert path covers scopes that aborted before their INITIATED write
// committed; the update path only ever moves non-terminal rows to failed.
func (r *PostgresRepository) RecordTransactionFailure(ctx context.Context, tx *domain.Transaction, reason string) error {
	query := `
		INSERT INTO transactions (id, from_account_number, to_account_number, amount, status, note, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = $5, failure_reason = $7, updated_at = NOW()
		WHERE transactions.status NOT IN ($8, $5)
	`
	_, err := r.db.Exec(ctx, query,
		tx.ID,
		tx.FromAccountNumber,
		tx.ToAccountNumber,
		tx.Amount,
		domain.StatusFailed,
		tx.Note,
		reason,
		domain.StatusCompleted,
	)
	return err
}

// SetAccountLink persists the gateway link fields for an account.
func (r *PostgresRepository) SetAccountLink(ctx context.Context, accountID uuid.UUID, linkedUserID, externalAccountToken string) error {
	query := `
		UPDATE accounts
		SET linked_user_id = $1, external_account_token = $2, updated_at = NOW()
		WHERE id = $3
	`
	result, err := r.db.Exec(ctx, query, linkedUserID, externalAccountToken, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// WithinScope runs fn inside one database transaction. Repeatable-read
// isolation plus FOR UPDATE locks gives the write-conflict detection the
// transfer discipline relies on; a conflict aborts this scope and surfaces to
// the caller, which must retry explicitly.
func (r *PostgresRepository) WithinScope(ctx context.Context, fn func(Scope) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgxScope{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// pgxScope implements Scope over an open pgx transaction.
type pgxScope struct {
	tx pgx.Tx
}

func (s *pgxScope) LockAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(s.tx.QueryRow(ctx, query, id))
}

func (s *pgxScope) LockAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 FOR UPDATE`
	return scanAccount(s.tx.QueryRow(ctx, query, accountNumber))
}

func (s *pgxScope) LockAccountByNumberAndRouting(ctx context.Context, accountNumber, routingCode string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 AND routing_code = $2 FOR UPDATE`
	return scanAccount(s.tx.QueryRow(ctx, query, accountNumber, routingCode))
}

func (s *pgxScope) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, from_account_number, to_account_number, amount, status, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.tx.Exec(ctx, query,
		tx.ID,
		tx.FromAccountNumber,
		tx.ToAccountNumber,
		tx.Amount,
		tx.Status,
		tx.Note,
	)
	return err
}

func (s *pgxScope) AdvanceTransactionStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus) error {
	if !from.CanAdvanceTo(to) {
		return ErrStatusConflict
	}
	query := `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := s.tx.Exec(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (s *pgxScope) DebitAccount(ctx context.Context, accountID uuid.UUID, amount int64) error {
	// The balance guard in the WHERE clause keeps the non-negative invariant
	// even if a caller skipped the pre-check.
	query := `UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1`
	result, err := s.tx.Exec(ctx, query, amount, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func (s *pgxScope) CreditAccount(ctx context.Context, accountID uuid.UUID, amount int64) error {
	query := `UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`
	result, err := s.tx.Exec(ctx, query, amount, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
