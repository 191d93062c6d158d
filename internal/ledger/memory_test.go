package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return v
}

func TestSetAccountBalanceCAS(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	id := s.AddAccount(models.Account{UserID: 1, Number: "1000000001", Currency: "USD", Status: models.AccountActive, Balance: dec(t, "100.00")})

	if err := s.SetAccountBalance(ctx, id, dec(t, "100.00"), dec(t, "60.00")); err != nil {
		t.Fatalf("CAS with matching balance failed: %v", err)
	}

	// Stale expected value must fail, not overwrite.
	err := s.SetAccountBalance(ctx, id, dec(t, "100.00"), dec(t, "20.00"))
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("stale CAS: got %v, want ErrConcurrentModification", err)
	}

	acc, err := s.AccountByID(ctx, id)
	if err != nil {
		t.Fatalf("AccountByID: %v", err)
	}
	if !acc.Balance.Equal(dec(t, "60.00")) {
		t.Errorf("balance after failed CAS: got %s, want 60.00", acc.Balance)
	}

	if err := s.SetAccountBalance(ctx, 999, dec(t, "1"), dec(t, "2")); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown account: got %v, want ErrNotFound", err)
	}
}

func TestMarkTransactionStatusCAS(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	txn := &models.Transaction{
		Reference: "TX-TEST1",
		UserID:    1,
		AccountID: 1,
		Type:      models.TypeIBANOut,
		Status:    models.StatusPending,
		Amount:    dec(t, "50.00"),
		Currency:  "EUR",
	}
	if err := s.CreateTransaction(ctx, txn); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	err := s.MarkTransactionStatus(ctx, txn.ID, models.StatusPending, models.StatusRejected,
		map[string]any{"failure_reason": "compliance hold"})
	if err != nil {
		t.Fatalf("first mark failed: %v", err)
	}

	// The second mark must observe the terminal state.
	err = s.MarkTransactionStatus(ctx, txn.ID, models.StatusPending, models.StatusCompleted, nil)
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("second mark: got %v, want ErrConcurrentModification", err)
	}

	got, err := s.TransactionByID(ctx, txn.ID)
	if err != nil {
		t.Fatalf("TransactionByID: %v", err)
	}
	if got.Status != models.StatusRejected {
		t.Errorf("status: got %s, want REJECTED", got.Status)
	}
	if got.FailureReason != "compliance hold" {
		t.Errorf("failure reason: got %q", got.FailureReason)
	}
}

func TestWithTransactionRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	id := s.AddAccount(models.Account{UserID: 1, Number: "1000000001", Currency: "USD", Status: models.AccountActive, Balance: dec(t, "100.00")})

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(tx Store) error {
		if err := tx.SetAccountBalance(ctx, id, dec(t, "100.00"), dec(t, "0.00")); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, &models.Transaction{
			Reference: "TX-ROLLBACK", UserID: 1, AccountID: id,
			Type: models.TypeBankOut, Status: models.StatusPending,
			Amount: dec(t, "100.00"), Currency: "USD",
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the fn error", err)
	}

	acc, _ := s.AccountByID(ctx, id)
	if !acc.Balance.Equal(dec(t, "100.00")) {
		t.Errorf("debit survived rollback: balance %s", acc.Balance)
	}
	if n := len(s.Transactions()); n != 0 {
		t.Errorf("insert survived rollback: %d transactions", n)
	}
}

func TestWithTransactionCommit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore()
	id := s.AddAccount(models.Account{UserID: 1, Number: "1000000001", Currency: "USD", Status: models.AccountActive, Balance: dec(t, "100.00")})

	err := s.WithTransaction(ctx, func(tx Store) error {
		return tx.SetAccountBalance(ctx, id, dec(t, "100.00"), dec(t, "40.00"))
	})
	if err != nil {
		t.Fatalf("commit path failed: %v", err)
	}

	acc, _ := s.AccountByID(ctx, id)
	if !acc.Balance.Equal(dec(t, "40.00")) {
		t.Errorf("balance after commit: got %s, want 40.00", acc.Balance)
	}
}
