/**
 * @description
 * This file implements the gateway-confirmed transfer path. The bridge first
 * confirms the transfer with the partner gateway using a freshly minted,
 * reference-scoped token; only then does it apply the same atomic debit/credit
 * discipline as the direct engine. The partner's confirmation payload, not the
 * caller's session identity, is the source of truth for which accounts move.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/finvault/ledger-service/internal/domain"
	"github.com/finvault/ledger-service/internal/store"
)

// ConfirmAndTransfer executes a transfer previously initiated on the partner
// gateway. A denied or unreachable confirmation is a hard stop with no local
// mutation and no Transaction row. On the confirmed path the Transaction is
// created already COMPLETED inside the same scope as the balance mutation;
// external confirmation already happened, so no INITIATED write persists.
func (s *Service) ConfirmAndTransfer(ctx context.Context, callerAccountID uuid.UUID, partnerTransactionRef string) (*domain.Transaction, error) {
	if partnerTransactionRef == "" {
		return nil, ErrMissingFields
	}

	confirmed, err := s.gateway.ConfirmTransaction(ctx, partnerTransactionRef)
	if err != nil {
		log.Printf("level=warn component=gateway_bridge outcome=denied ref=%s err=%v", partnerTransactionRef, err)
		s.emit(ctx, domain.AuditEvent{
			Kind:           domain.AuditGatewayDenied,
			AccountID:      &callerAccountID,
			Reason:         err.Error(),
			Classification: domain.ClassUpstream,
			Actor:          s.partnership.PartnerID(),
		})
		return nil, fmt.Errorf("%w: %v", ErrConfirmationDenied, err)
	}

	if confirmed.FromAccountNumber == "" || confirmed.ToAccountNumber == "" || confirmed.Amount <= 0 {
		return nil, ErrInvalidConfirmation
	}

	var txRecord *domain.Transaction

	err = s.repo.WithinScope(ctx, func(scope store.Scope) error {
		// Resolve both accounts fresh from the confirmed payload. Locks are
		// taken in account-number order so opposite-direction transfers over
		// the same pair cannot deadlock each other.
		firstNumber, secondNumber := confirmed.FromAccountNumber, confirmed.ToAccountNumber
		if firstNumber > secondNumber {
			firstNumber, secondNumber = secondNumber, firstNumber
		}
		first, err := scope.LockAccountByNumber(ctx, firstNumber)
		if err != nil {
			return fmt.Errorf("failed to load account %s: %w", firstNumber, err)
		}
		second, err := scope.LockAccountByNumber(ctx, secondNumber)
		if err != nil {
			return fmt.Errorf("failed to load account %s: %w", secondNumber, err)
		}
		from, to := first, second
		if first.AccountNumber != confirmed.FromAccountNumber {
			from, to = second, first
		}
		if from.ID == to.ID {
			return ErrSameAccount
		}
		if from.Balance < confirmed.Amount {
			return store.ErrInsufficientFunds
		}

		if err := scope.DebitAccount(ctx, from.ID, confirmed.Amount); err != nil {
			return fmt.Errorf("failed to debit: %w", err)
		}
		if err := scope.CreditAccount(ctx, to.ID, confirmed.Amount); err != nil {
			return fmt.Errorf("failed to credit: %w", err)
		}

		txRecord = newTransaction(from.AccountNumber, to.AccountNumber, confirmed.Amount, confirmed.Note, domain.StatusCompleted)
		if err := scope.CreateTransaction(ctx, txRecord); err != nil {
			return fmt.Errorf("failed to create transaction record: %w", err)
		}
		return nil
	})
	if err != nil {
		if txRecord != nil {
			// A transaction id exists: compensate outside the aborted scope and
			// surface the wrapped commit-time failure.
			s.failTransfer(ctx, txRecord, callerAccountID, err)
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		// No id was allocated: only an error event, no compensating write.
		s.failTransfer(ctx, nil, callerAccountID, err)
		return nil, err
	}

	s.emit(ctx, domain.AuditEvent{
		Kind:          domain.AuditTransferCompleted,
		TransactionID: &txRecord.ID,
		AccountID:     &callerAccountID,
		Amount:        confirmed.Amount,
		Actor:         s.partnership.PartnerID(),
	})
	return txRecord, nil
}
