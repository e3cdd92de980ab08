package app

import (
	"context"
	"errors"
	"testing"

	"github.com/finvault/ledger-service/internal/domain"
	"github.com/finvault/ledger-service/pkg/gatewayclient"
)

func TestConfirmAndTransferDeniedLeavesNoRow(t *testing.T) {
	repo := newMemRepo()
	caller := seedAccount(t, repo, "1000000001", "044", 1000, "1234")
	seedAccount(t, repo, "1000000002", "044", 200, "9999")
	gateway := &gatewayStub{confirmErr: gatewayclient.ErrDenied}
	svc, audit := newTestService(repo, gateway)

	_, err := svc.ConfirmAndTransfer(context.Background(), caller.ID, "ref-123")
	if !errors.Is(err, ErrConfirmationDenied) {
		t.Fatalf("expected ErrConfirmationDenied, got %v", err)
	}
	if len(repo.transactions) != 0 {
		t.Fatalf("expected no transaction rows after a denied confirmation, got %d", len(repo.transactions))
	}

	got, _ := repo.FindAccountByID(context.Background(), caller.ID)
	if got.Balance != 1000 {
		t.Fatalf("expected untouched balance 1000, got %d", got.Balance)
	}

	kinds := audit.kinds()
	if len(kinds) != 1 || kinds[0] != domain.AuditGatewayDenied {
		t.Fatalf("expected a single %s event, got %v", domain.AuditGatewayDenied, kinds)
	}
}

func TestConfirmAndTransferAppliesConfirmedPayload(t *testing.T) {
	repo := newMemRepo()
	caller := seedAccount(t, repo, "1000000001", "044", 1000, "1234")
	recipient := seedAccount(t, repo, "1000000002", "044", 200, "9999")
	gateway := &gatewayStub{confirmed: &domain.ConfirmedTransfer{
		FromAccountNumber: caller.AccountNumber,
		ToAccountNumber:   recipient.AccountNumber,
		Amount:            400,
		Note:              "gateway purchase",
	}}
	svc, audit := newTestService(repo, gateway)

	tx, err := svc.ConfirmAndTransfer(context.Background(), caller.ID, "ref-123")
	if err != nil {
		t.Fatalf("expected confirmed transfer to succeed, got %v", err)
	}
	if tx.Status != domain.StatusCompleted {
		t.Fatalf("expected status %s, got %s", domain.StatusCompleted, tx.Status)
	}

	gotCaller, _ := repo.FindAccountByID(context.Background(), caller.ID)
	gotRecipient, _ := repo.FindAccountByID(context.Background(), recipient.ID)
	if gotCaller.Balance != 600 || gotRecipient.Balance != 600 {
		t.Fatalf("expected balances 600/600, got %d/%d", gotCaller.Balance, gotRecipient.Balance)
	}

	persisted, err := repo.FindTransactionByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("expected transaction row, got %v", err)
	}
	if persisted.Status != domain.StatusCompleted {
		t.Fatalf("expected persisted status %s, got %s", domain.StatusCompleted, persisted.Status)
	}

	kinds := audit.kinds()
	if len(kinds) != 1 || kinds[0] != domain.AuditTransferCompleted {
		t.Fatalf("expected a single %s event, got %v", domain.AuditTransferCompleted, kinds)
	}
}

func TestConfirmAndTransferLocksAccountsInCanonicalOrder(t *testing.T) {
	repo := newMemRepo()
	// The debit account sorts after the credit account: lock order must still
	// be ascending by account number while the money moves debit -> credit.
	debit := seedAccount(t, repo, "1000000002", "044", 1000, "1234")
	credit := seedAccount(t, repo, "1000000001", "044", 200, "9999")
	svc, _ := newTestService(repo, &gatewayStub{confirmed: &domain.ConfirmedTransfer{
		FromAccountNumber: debit.AccountNumber,
		ToAccountNumber:   credit.AccountNumber,
		Amount:            400,
	}})

	if _, err := svc.ConfirmAndTransfer(context.Background(), debit.ID, "ref-123"); err != nil {
		t.Fatalf("expected confirmed transfer to succeed, got %v", err)
	}

	if len(repo.lockedNumbers) != 2 || repo.lockedNumbers[0] != "1000000001" || repo.lockedNumbers[1] != "1000000002" {
		t.Fatalf("expected ascending lock order [1000000001 1000000002], got %v", repo.lockedNumbers)
	}

	gotDebit, _ := repo.FindAccountByID(context.Background(), debit.ID)
	gotCredit, _ := repo.FindAccountByID(context.Background(), credit.ID)
	if gotDebit.Balance != 600 || gotCredit.Balance != 600 {
		t.Fatalf("expected balances 600/600 after reordered locks, got %d/%d", gotDebit.Balance, gotCredit.Balance)
	}
}

func TestConfirmAndTransferRejectsMalformedPayload(t *testing.T) {
	tests := []struct {
		name      string
		confirmed domain.ConfirmedTransfer
	}{
		{
			name:      "missing debit account",
			confirmed: domain.ConfirmedTransfer{ToAccountNumber: "1000000002", Amount: 100},
		},
		{
			name:      "missing credit account",
			confirmed: domain.ConfirmedTransfer{FromAccountNumber: "1000000001", Amount: 100},
		},
		{
			name:      "non-positive amount",
			confirmed: domain.ConfirmedTransfer{FromAccountNumber: "1000000001", ToAccountNumber: "1000000002", Amount: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			caller := seedAccount(t, repo, "1000000001", "044", 1000, "1234")
			seedAccount(t, repo, "1000000002", "044", 200, "9999")
			confirmed := tt.confirmed
			svc, _ := newTestService(repo, &gatewayStub{confirmed: &confirmed})

			_, err := svc.ConfirmAndTransfer(context.Background(), caller.ID, "ref-123")
			if !errors.Is(err, ErrInvalidConfirmation) {
				t.Fatalf("expected ErrInvalidConfirmation, got %v", err)
			}
			if len(repo.transactions) != 0 {
				t.Fatalf("expected no transaction rows, got %d", len(repo.transactions))
			}
		})
	}
}

func TestConfirmAndTransferInsufficientFundsCompensates(t *testing.T) {
	repo := newMemRepo()
	caller := seedAccount(t, repo, "1000000001", "044", 100, "1234")
	recipient := seedAccount(t, repo, "1000000002", "044", 200, "9999")
	svc, audit := newTestService(repo, &gatewayStub{confirmed: &domain.ConfirmedTransfer{
		FromAccountNumber: caller.AccountNumber,
		ToAccountNumber:   recipient.AccountNumber,
		Amount:            500,
	}})

	_, err := svc.ConfirmAndTransfer(context.Background(), caller.ID, "ref-123")
	if err == nil {
		t.Fatal("expected confirmed transfer to fail")
	}

	gotCaller, _ := repo.FindAccountByID(context.Background(), caller.ID)
	gotRecipient, _ := repo.FindAccountByID(context.Background(), recipient.ID)
	if gotCaller.Balance != 100 || gotRecipient.Balance != 200 {
		t.Fatalf("expected pre-attempt balances 100/200, got %d/%d", gotCaller.Balance, gotRecipient.Balance)
	}

	last := audit.events[len(audit.events)-1]
	if last.Kind != domain.AuditTransferFailed {
		t.Fatalf("expected final audit event %s, got %s", domain.AuditTransferFailed, last.Kind)
	}
}

func TestConfirmAndTransferMissingReference(t *testing.T) {
	repo := newMemRepo()
	caller := seedAccount(t, repo, "1000000001", "044", 1000, "1234")
	gateway := &gatewayStub{}
	svc, _ := newTestService(repo, gateway)

	_, err := svc.ConfirmAndTransfer(context.Background(), caller.ID, "")
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if gateway.confirmCalled {
		t.Fatal("confirmation must not be attempted without a reference")
	}
}
