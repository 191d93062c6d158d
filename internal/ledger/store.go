// Package ledger defines the transactional store behind accounts,
// transactions and approvals. Services talk to the Store interface only;
// the gorm/Postgres implementation is the production backend and the
// in-memory one backs tests.
package ledger

import (
	"context"
	"errors"

	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification means a conditional update matched zero
	// rows because another writer got there first. Safe to retry.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrUnavailable wraps infrastructure failures. Never interpreted as
	// success; the caller surfaces a generic try-again-later condition.
	ErrUnavailable = errors.New("store unavailable")
)

type TransactionFilter struct {
	AccountID uint
	Status    models.Status
}

type Store interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	SetUserStatus(ctx context.Context, id uint, status models.UserStatus) error

	AccountByID(ctx context.Context, id uint) (*models.Account, error)
	AccountByNumber(ctx context.Context, number string) (*models.Account, error)
	AccountsByUser(ctx context.Context, userID uint) ([]models.Account, error)

	// SetAccountBalance is a compare-and-swap: the write only lands if the
	// stored balance still equals expected. Both the debit and the credit
	// paths go through it, so the optimistic-concurrency contract is
	// stated once.
	SetAccountBalance(ctx context.Context, id uint, expected, next decimal.Decimal) error

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	TransactionByID(ctx context.Context, id uint) (*models.Transaction, error)
	TransactionsByUser(ctx context.Context, userID uint, f TransactionFilter) ([]models.Transaction, error)
	PendingTransactions(ctx context.Context) ([]models.Transaction, error)

	// MarkTransactionStatus conditionally moves a transaction from
	// expected to next, setting any extra columns in the same write. A
	// zero-row match yields ErrConcurrentModification, which is how a
	// second resolver observes that the transaction is no longer PENDING.
	MarkTransactionStatus(ctx context.Context, id uint, expected, next models.Status, fields map[string]any) error

	CreateApproval(ctx context.Context, a *models.TransferApproval) error

	// WithTransaction runs fn against a Store bound to one commit
	// boundary. An error from fn aborts everything fn wrote.
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
