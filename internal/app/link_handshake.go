/**
 * @description
 * This file implements the account link handshake that binds a local account to
 * a partner-side identity. The claimed identity must match the stored account
 * and two distinct credential proofs (password and transaction pin) must both
 * succeed before an account-scoped token is minted. The token is pushed to the
 * partner first; the link is persisted locally only after the partner
 * acknowledges, so the local side can never believe it is linked while the
 * partner does not.
 */

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/finvault/ledger-service/internal/domain"
)

// AccountTokenPayload is the opaque payload carried by an account-scoped link
// token. It binds the token to one account and one partner-side user.
type AccountTokenPayload struct {
	AccountNumber  string `json:"account_number"`
	ExternalUserID string `json:"external_user_id"`
}

// LinkAccount validates the partner-claimed identity and both credential
// proofs, mints the account-scoped token, delivers it to the partner, and only
// then persists the link. It returns the minted token on success.
func (s *Service) LinkAccount(ctx context.Context, claim domain.LinkClaim, password, transactionPIN string) (string, error) {
	if claim.AccountNumber == "" || claim.RoutingCode == "" || claim.CustomerID == "" ||
		claim.ExternalUserID == "" || password == "" || transactionPIN == "" {
		return "", ErrMissingFields
	}
	if retryAfter, limited := s.consumeLimit(ctx, "link", claim.AccountNumber, s.linkLimitPerMinute); limited {
		log.Printf("level=warn component=link outcome=rate_limited account_number=%s retry_after=%d", claim.AccountNumber, retryAfter)
		return "", ErrRateLimited
	}

	account, err := s.repo.FindAccountByNumberAndRouting(ctx, claim.AccountNumber, claim.RoutingCode)
	if err != nil {
		return "", err
	}
	if account.CustomerID != claim.CustomerID {
		s.emitLinkFailure(ctx, account.ID, ErrIdentityMismatch)
		return "", ErrIdentityMismatch
	}

	// Two distinct secrets, proven independently. Both must pass.
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		s.emitLinkFailure(ctx, account.ID, ErrInvalidCredential)
		return "", ErrInvalidCredential
	}
	if bcrypt.CompareHashAndPassword([]byte(account.TransactionPINHash), []byte(transactionPIN)) != nil {
		s.emitLinkFailure(ctx, account.ID, ErrInvalidCredential)
		return "", ErrInvalidCredential
	}

	payload, err := json.Marshal(AccountTokenPayload{
		AccountNumber:  account.AccountNumber,
		ExternalUserID: claim.ExternalUserID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode account token payload: %w", err)
	}
	// The link credential is durable: it outlives the per-operation freshness
	// window and stays valid until the stored copy is replaced.
	accountToken, err := s.partnership.MintDurable(string(payload))
	if err != nil {
		return "", fmt.Errorf("failed to mint account token: %w", err)
	}

	if err := s.gateway.PushLink(ctx, claim.ExternalUserID, account.AccountNumber, accountToken); err != nil {
		log.Printf("level=warn component=link outcome=callback_failed account_id=%s err=%v", account.ID, err)
		s.emitLinkFailure(ctx, account.ID, ErrPartialLinkFailure)
		return "", fmt.Errorf("%w: %v", ErrPartialLinkFailure, err)
	}

	if err := s.repo.SetAccountLink(ctx, account.ID, claim.ExternalUserID, accountToken); err != nil {
		// Partner acknowledged but the local write failed; surface it so the
		// caller retries the handshake.
		s.emitLinkFailure(ctx, account.ID, err)
		return "", fmt.Errorf("failed to persist account link: %w", err)
	}

	s.emit(ctx, domain.AuditEvent{
		Kind:      domain.AuditLinkEstablished,
		AccountID: &account.ID,
		Actor:     claim.ExternalUserID,
	})
	return accountToken, nil
}

// ResolveAccountToken verifies an account-scoped token the partner presents
// and returns the account it is bound to. The presented token must also match
// the token stored at link time, which makes links revocable server-side.
func (s *Service) ResolveAccountToken(ctx context.Context, token string) (*domain.Account, error) {
	payloadJSON, err := s.partnership.VerifyDurableMintedLocally(token)
	if err != nil {
		return nil, err
	}
	var payload AccountTokenPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return nil, ErrInvalidCredential
	}

	account, err := s.repo.FindAccountByNumber(ctx, payload.AccountNumber)
	if err != nil {
		return nil, err
	}
	if account.ExternalAccountToken == nil || *account.ExternalAccountToken != token {
		return nil, ErrInvalidCredential
	}
	if account.LinkedUserID == nil || *account.LinkedUserID != payload.ExternalUserID {
		return nil, ErrInvalidCredential
	}
	return account, nil
}

func (s *Service) emitLinkFailure(ctx context.Context, accountID uuid.UUID, cause error) {
	s.emit(ctx, domain.AuditEvent{
		Kind:           domain.AuditLinkFailed,
		AccountID:      &accountID,
		Reason:         cause.Error(),
		Classification: Classify(cause),
	})
}
