// Package transfer implements transfer initiation: validating a request
// from an account holder, debiting the source account, and recording the
// transfer as a PENDING transaction for admin resolution.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Officialbobos/hometownpas-sub000/internal/ledger"
	"github.com/Officialbobos/hometownpas-sub000/internal/logger"
	"github.com/Officialbobos/hometownpas-sub000/internal/metrics"
	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/Officialbobos/hometownpas-sub000/internal/money"
	"github.com/Officialbobos/hometownpas-sub000/internal/notify"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount          = money.ErrInvalidAmount
	ErrAccountNotFound        = errors.New("account not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidDestination     = errors.New("invalid destination account")
	ErrCurrencyMismatch       = errors.New("currency mismatch")
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrInvalidRecipientFormat = errors.New("invalid recipient details")
	ErrCurrencyNotAllowed     = errors.New("currency not allowed")
)

// CurrencyNotAllowedError carries the allowed set and the offending
// currency so the UI layer can phrase the message itself.
type CurrencyNotAllowedError struct {
	Currency string
	Allowed  []string
}

func (e *CurrencyNotAllowedError) Error() string {
	return fmt.Sprintf("currency not allowed: %s (allowed: %s)", e.Currency, strings.Join(e.Allowed, ", "))
}

func (e *CurrencyNotAllowedError) Unwrap() error { return ErrCurrencyNotAllowed }

type Recipient struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban"`
	SWIFT         string `json:"swift"`
	SortCode      string `json:"sort_code"`
	RoutingNumber string `json:"routing_number"`
	AccountType   string `json:"account_type"`
	Address       string `json:"address"`
}

type Request struct {
	AccountID   uint                  `json:"account_id"`
	Method      models.TransferMethod `json:"method"`
	Amount      string                `json:"amount"`
	Description string                `json:"description"`
	Recipient   Recipient             `json:"recipient"`
}

type Result struct {
	Reference string        `json:"reference"`
	Status    models.Status `json:"status"`
}

type Service struct {
	store     ledger.Store
	notifier  notify.Notifier
	allowed   []string
	precision int32
}

func NewService(store ledger.Store, notifier notify.Notifier, allowedCurrencies []string, precision int32) *Service {
	if precision <= 0 {
		precision = money.DefaultPrecision
	}
	return &Service{store: store, notifier: notifier, allowed: allowedCurrencies, precision: precision}
}

// Initiate validates the request, debits the source account and writes the
// PENDING outbound record. The debit is conditioned on the balance read
// during validation, so a concurrent debit makes this call fail with
// ledger.ErrConcurrentModification instead of overdrawing. Debit and
// record share one commit boundary.
func (s *Service) Initiate(ctx context.Context, callerUserID uint, req Request) (*Result, error) {
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidRecipientFormat, req.Method)
	}

	caller, err := s.store.UserByID(ctx, callerUserID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	account, err := s.store.AccountByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if account.UserID != callerUserID || account.Status != models.AccountActive {
		return nil, ErrAccountNotFound
	}

	amount, err := money.ParseAmount(req.Amount, s.precision)
	if err != nil {
		return nil, err
	}

	if !money.IsAllowedCurrency(account.Currency, s.allowed, caller.PreferredCurrency) {
		return nil, &CurrencyNotAllowedError{Currency: account.Currency, Allowed: s.allowed}
	}

	if amount.GreaterThan(account.Balance) {
		return nil, ErrInsufficientFunds
	}

	txn := &models.Transaction{
		Reference:   newReference(),
		UserID:      callerUserID,
		AccountID:   account.ID,
		Type:        req.Method.OutboundType(),
		Status:      models.StatusPending,
		Amount:      amount,
		Currency:    account.Currency,
		Description: req.Description,
	}
	if err := s.validateRecipient(ctx, callerUserID, account, req, txn); err != nil {
		return nil, err
	}

	newBalance := money.Sub(account.Balance, amount, s.precision)
	err = s.store.WithTransaction(ctx, func(tx ledger.Store) error {
		if err := tx.SetAccountBalance(ctx, account.ID, account.Balance, newBalance); err != nil {
			return err
		}
		return tx.CreateTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	metrics.TransfersInitiated.WithLabelValues(string(req.Method)).Inc()
	logger.Log.Info("transfer initiated",
		zap.String("reference", txn.Reference),
		zap.String("method", string(req.Method)),
		zap.Uint("account_id", account.ID))

	s.notifier.Notify(ctx, caller.Email,
		"Transfer received",
		fmt.Sprintf("Your transfer %s of %s%s is pending review.",
			txn.Reference, money.SymbolFor(txn.Currency), amount.StringFixed(s.precision)))

	return &Result{Reference: txn.Reference, Status: txn.Status}, nil
}

// newReference builds a globally unique, human-shareable reference. ULIDs
// are time-ordered with 80 random bits, which keeps collision probability
// negligible; the unique index on the column is the backstop.
func newReference() string {
	return "TX-" + ulid.Make().String()
}
