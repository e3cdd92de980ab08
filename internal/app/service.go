/**
 * @description
 * This file contains the core business logic for the ledger-service. The
 * `Service` struct orchestrates all money movement: the direct transfer engine,
 * the gateway-confirmed transfer bridge, and the account link handshake. It
 * coordinates the database repository, the partner gateway client, the
 * shared-secret partnership, and the audit event producer.
 *
 * The direct transfer discipline: all validation and every balance/status write
 * happens inside one atomic scope; the status machine INITIATED -> DEDUCTED ->
 * CREDITED -> COMPLETED is persisted step by step as durable state; any failure
 * aborts the whole scope, followed by a best-effort out-of-scope FAILED
 * compensation write carrying the allocated transaction id.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For transaction id allocation.
 * - golang.org/x/crypto/bcrypt: Credential proof verification.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/gatewayclient, pkg/rabbitmq, pkg/sharedtoken: External collaborators.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finvault/ledger-service/internal/domain"
	"github.com/finvault/ledger-service/internal/store"
	"github.com/finvault/ledger-service/pkg/rabbitmq"
	"github.com/finvault/ledger-service/pkg/sharedtoken"
)

// Gateway is the outbound surface of the partner payment gateway that the
// service depends on.
type Gateway interface {
	ConfirmTransaction(ctx context.Context, transactionRef string) (*domain.ConfirmedTransfer, error)
	PushLink(ctx context.Context, externalUserID, accountNumber, accountToken string) error
}

// RateLimitDecision is the state of one attempt window after the current
// attempt has been counted.
type RateLimitDecision struct {
	// Count includes the attempt just made.
	Count int
	// RetryAfter is how long until the window resets.
	RetryAfter time.Duration
}

// RateLimiter bounds repeated attempts against credential-bearing operations.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (RateLimitDecision, error)
}

// Service provides the core business logic for transfers and account linking.
type Service struct {
	repo        store.Repository
	gateway     Gateway
	partnership *sharedtoken.Partnership
	audit       rabbitmq.AuditPublisher

	limiter                RateLimiter
	linkLimitPerMinute     int
	transferLimitPerMinute int
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, gateway Gateway, partnership *sharedtoken.Partnership, audit rabbitmq.AuditPublisher) *Service {
	return &Service{
		repo:        repo,
		gateway:     gateway,
		partnership: partnership,
		audit:       audit,
	}
}

// SetRateLimiter wires an optional distributed rate limiter for the
// credential-bearing endpoints. Limits of zero disable the respective check.
func (s *Service) SetRateLimiter(limiter RateLimiter, linkPerMinute, transferPerMinute int) {
	s.limiter = limiter
	s.linkLimitPerMinute = linkPerMinute
	s.transferLimitPerMinute = transferPerMinute
}

// Transfer executes a direct account-to-account transfer on behalf of an
// already-authenticated sender.
func (s *Service) Transfer(ctx context.Context, senderAccountID uuid.UUID, req domain.TransferRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.ToAccountNumber == "" || req.RoutingCode == "" || req.TransactionPIN == "" {
		return nil, ErrMissingFields
	}
	if retryAfter, limited := s.consumeLimit(ctx, "transfer", senderAccountID.String(), s.transferLimitPerMinute); limited {
		log.Printf("level=warn component=engine op=transfer outcome=rate_limited sender_id=%s retry_after=%d", senderAccountID, retryAfter)
		return nil, ErrRateLimited
	}

	var txRecord *domain.Transaction

	err := s.repo.WithinScope(ctx, func(scope store.Scope) error {
		sender, err := scope.LockAccountByID(ctx, senderAccountID)
		if err != nil {
			return fmt.Errorf("failed to load sender: %w", err)
		}
		recipient, err := scope.LockAccountByNumberAndRouting(ctx, req.ToAccountNumber, req.RoutingCode)
		if err != nil {
			return fmt.Errorf("failed to load recipient: %w", err)
		}

		// Fixed check order: identity equality before any balance or
		// credential check.
		if sender.ID == recipient.ID {
			return ErrSameAccount
		}
		if bcrypt.CompareHashAndPassword([]byte(sender.TransactionPINHash), []byte(req.TransactionPIN)) != nil {
			return ErrInvalidPIN
		}
		if sender.Balance < req.Amount {
			return store.ErrInsufficientFunds
		}

		txRecord = newTransaction(sender.AccountNumber, recipient.AccountNumber, req.Amount, req.Note, domain.StatusInitiated)
		if err := scope.CreateTransaction(ctx, txRecord); err != nil {
			return fmt.Errorf("failed to create transaction record: %w", err)
		}
		s.emit(ctx, domain.AuditEvent{Kind: domain.AuditTransferInitiated, TransactionID: &txRecord.ID, AccountID: &sender.ID, Amount: req.Amount})

		if err := scope.DebitAccount(ctx, sender.ID, req.Amount); err != nil {
			return fmt.Errorf("failed to debit sender: %w", err)
		}
		if err := scope.AdvanceTransactionStatus(ctx, txRecord.ID, domain.StatusInitiated, domain.StatusDeducted); err != nil {
			return err
		}
		txRecord.Status = domain.StatusDeducted
		s.emit(ctx, domain.AuditEvent{Kind: domain.AuditTransferDeducted, TransactionID: &txRecord.ID, AccountID: &sender.ID, Amount: req.Amount})

		if err := scope.CreditAccount(ctx, recipient.ID, req.Amount); err != nil {
			return fmt.Errorf("failed to credit recipient: %w", err)
		}
		if err := scope.AdvanceTransactionStatus(ctx, txRecord.ID, domain.StatusDeducted, domain.StatusCredited); err != nil {
			return err
		}
		txRecord.Status = domain.StatusCredited
		s.emit(ctx, domain.AuditEvent{Kind: domain.AuditTransferCredited, TransactionID: &txRecord.ID, AccountID: &recipient.ID, Amount: req.Amount})

		if err := scope.AdvanceTransactionStatus(ctx, txRecord.ID, domain.StatusCredited, domain.StatusCompleted); err != nil {
			return err
		}
		txRecord.Status = domain.StatusCompleted
		return nil
	})
	if err != nil {
		s.failTransfer(ctx, txRecord, senderAccountID, err)
		return nil, err
	}

	s.emit(ctx, domain.AuditEvent{Kind: domain.AuditTransferCompleted, TransactionID: &txRecord.ID, AccountID: &senderAccountID, Amount: req.Amount})
	return txRecord, nil
}

// AccountInfo returns the account for gateway-facing and session callers.
func (s *Service) AccountInfo(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.repo.FindAccountByID(ctx, accountID)
}

// ListTransfers returns the transactions where the account is either party,
// newest first.
func (s *Service) ListTransfers(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.repo.FindTransactionsByAccountNumber(ctx, account.AccountNumber, limit, offset)
}

// failTransfer runs the post-abort compensation: the aborted scope already
// discarded every write, so correctness is settled; this only completes the
// audit trail. The compensation write carries the allocated transaction id
// explicitly and its own failure is logged and swallowed.
func (s *Service) failTransfer(ctx context.Context, txRecord *domain.Transaction, actorAccountID uuid.UUID, cause error) {
	event := domain.AuditEvent{
		Kind:           domain.AuditTransferFailed,
		AccountID:      &actorAccountID,
		Reason:         cause.Error(),
		Classification: Classify(cause),
	}
	if txRecord != nil {
		event.TransactionID = &txRecord.ID
		event.Amount = txRecord.Amount
		if err := s.repo.RecordTransactionFailure(ctx, txRecord, cause.Error()); err != nil {
			log.Printf("level=warn component=engine msg=\"compensation write failed\" transaction_id=%s err=%v", txRecord.ID, err)
		} else {
			txRecord.Status = domain.StatusFailed
		}
	}
	s.emit(ctx, event)
}

// emit publishes an audit event, best-effort.
func (s *Service) emit(ctx context.Context, event domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if err := s.audit.Emit(ctx, event); err != nil {
		log.Printf("level=warn component=audit msg=\"audit emit failed\" kind=%s err=%v", event.Kind, err)
	}
}

// consumeLimit applies the optional rate limiter; limiter errors fail open.
func (s *Service) consumeLimit(ctx context.Context, scope, subject string, limit int) (retryAfter int, limited bool) {
	if s.limiter == nil || limit <= 0 {
		return 0, false
	}
	decision, err := s.limiter.ConsumeRateLimit(ctx, scope, subject, limit, time.Minute)
	if err != nil {
		log.Printf("level=warn component=rate_limiter scope=%s msg=\"limiter unavailable; failing open\" err=%v", scope, err)
		return 0, false
	}
	return int(decision.RetryAfter.Seconds()), decision.Count > limit
}

func newTransaction(from, to string, amount int64, note string, status domain.TransactionStatus) *domain.Transaction {
	tx := &domain.Transaction{
		ID:                uuid.New(),
		FromAccountNumber: from,
		ToAccountNumber:   to,
		Amount:            amount,
		Status:            status,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	if note != "" {
		tx.Note = &note
	}
	return tx
}
