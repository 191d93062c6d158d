// Package approval implements admin-driven transfer resolution: moving a
// PENDING transaction to its terminal status, crediting the recipient or
// refunding the sender where money moves a second time, and recording the
// audit entry. Everything a resolution writes shares one commit boundary.
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Officialbobos/hometownpas-sub000/internal/ledger"
	"github.com/Officialbobos/hometownpas-sub000/internal/logger"
	"github.com/Officialbobos/hometownpas-sub000/internal/metrics"
	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/Officialbobos/hometownpas-sub000/internal/money"
	"github.com/Officialbobos/hometownpas-sub000/internal/notify"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	ErrNotPending              = errors.New("transaction is not pending")
	ErrUnknownAction           = errors.New("unknown resolution action")
	ErrInvalidActionForMethod  = errors.New("action not applicable to this transfer method")
	ErrRecipientAccountMissing = errors.New("recipient account missing")
)

type Action string

const (
	ActionComplete Action = "complete"
	ActionRestrict Action = "restrict"
	ActionFail     Action = "fail"
	ActionDeliver  Action = "deliver"
)

func (a Action) Valid() bool {
	switch a {
	case ActionComplete, ActionRestrict, ActionFail, ActionDeliver:
		return true
	}
	return false
}

// ResultingStatus maps an admin action to the terminal status it produces.
func (a Action) ResultingStatus() models.Status {
	switch a {
	case ActionComplete:
		return models.StatusCompleted
	case ActionRestrict:
		return models.StatusRejected
	case ActionFail:
		return models.StatusFailed
	case ActionDeliver:
		return models.StatusDelivered
	}
	return ""
}

type Result struct {
	Status models.Status `json:"status"`
}

type Service struct {
	store     ledger.Store
	notifier  notify.Notifier
	precision int32
}

func NewService(store ledger.Store, notifier notify.Notifier, precision int32) *Service {
	if precision <= 0 {
		precision = money.DefaultPrecision
	}
	return &Service{store: store, notifier: notifier, precision: precision}
}

// Resolve applies a terminal action to a PENDING transaction. The status
// CAS inside the transaction is the idempotence guard: of two concurrent
// resolvers only the first matches PENDING, every later attempt gets
// ErrNotPending and writes nothing.
func (s *Service) Resolve(ctx context.Context, adminID, transactionID uint, action Action, reason string) (*Result, error) {
	timer := prometheus.NewTimer(metrics.ResolutionDuration)
	defer timer.ObserveDuration()

	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	target := action.ResultingStatus()

	txn, err := s.store.TransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !txn.Status.CanTransitionTo(target) {
		return nil, ErrNotPending
	}
	method := txn.Type.Method()
	if action == ActionDeliver && !method.External() {
		return nil, ErrInvalidActionForMethod
	}

	auditReason := reason
	if auditReason == "" {
		auditReason = "N/A"
	}
	now := time.Now()

	var creditedUserID uint
	err = s.store.WithTransaction(ctx, func(tx ledger.Store) error {
		fields := map[string]any{"completed_at": &now}
		if target == models.StatusRejected || target == models.StatusFailed {
			fields["failure_reason"] = auditReason
		}
		if err := tx.MarkTransactionStatus(ctx, txn.ID, models.StatusPending, target, fields); err != nil {
			if errors.Is(err, ledger.ErrConcurrentModification) {
				return ErrNotPending
			}
			return err
		}

		switch action {
		case ActionComplete:
			if !method.External() {
				userID, err := s.creditRecipient(ctx, tx, txn, now)
				if err != nil {
					return err
				}
				creditedUserID = userID
			}
			// External completion moves no money here; funds are presumed
			// remitted outside the system.
		case ActionRestrict, ActionFail:
			if err := s.refundSender(ctx, tx, txn, now); err != nil {
				return err
			}
		case ActionDeliver:
			// Status transition only.
		}

		return tx.CreateApproval(ctx, &models.TransferApproval{
			TransactionID:   txn.ID,
			AdminID:         adminID,
			ResultingStatus: target,
			Reason:          auditReason,
			DecidedAt:       now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.TransfersResolved.WithLabelValues(string(action), string(target)).Inc()
	logger.Log.Info("transfer resolved",
		zap.String("reference", txn.Reference),
		zap.String("action", string(action)),
		zap.String("status", string(target)),
		zap.Uint("admin_id", adminID))

	s.notifyParties(ctx, txn, target, creditedUserID)

	return &Result{Status: target}, nil
}

// creditRecipient locates the recipient's active account recorded at
// initiation, credits it, and writes the paired inbound record. Returns
// the recipient's user id for notification.
func (s *Service) creditRecipient(ctx context.Context, tx ledger.Store, txn *models.Transaction, now time.Time) (uint, error) {
	dest, err := tx.AccountByNumber(ctx, txn.RecipientAccountNumber)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return 0, ErrRecipientAccountMissing
		}
		return 0, err
	}
	if dest.UserID != txn.RecipientUserID || dest.Status != models.AccountActive || dest.Currency != txn.Currency {
		return 0, ErrRecipientAccountMissing
	}

	next := money.Add(dest.Balance, txn.Amount, s.precision)
	if err := tx.SetAccountBalance(ctx, dest.ID, dest.Balance, next); err != nil {
		return 0, err
	}

	credit := &models.Transaction{
		Reference:       "CR-" + txn.Reference,
		UserID:          dest.UserID,
		AccountID:       dest.ID,
		Type:            txn.Type.InboundType(),
		Status:          models.StatusCompleted,
		Amount:          txn.Amount,
		Currency:        txn.Currency,
		Description:     txn.Description,
		LinkedReference: txn.Reference,
		CompletedAt:     &now,
	}
	if err := tx.CreateTransaction(ctx, credit); err != nil {
		return 0, err
	}
	return dest.UserID, nil
}

// refundSender adds the original amount back onto the source account and
// writes the linked refund record. The outbound record's monetary fields
// are never touched.
func (s *Service) refundSender(ctx context.Context, tx ledger.Store, txn *models.Transaction, now time.Time) error {
	src, err := tx.AccountByID(ctx, txn.AccountID)
	if err != nil {
		return err
	}

	next := money.Add(src.Balance, txn.Amount, s.precision)
	if err := tx.SetAccountBalance(ctx, src.ID, src.Balance, next); err != nil {
		return err
	}

	refund := &models.Transaction{
		Reference:       "RF-" + txn.Reference,
		UserID:          txn.UserID,
		AccountID:       txn.AccountID,
		Type:            models.TypeRefund,
		Status:          models.StatusCompleted,
		Amount:          txn.Amount,
		Currency:        txn.Currency,
		Description:     txn.Description,
		LinkedReference: txn.Reference,
		CompletedAt:     &now,
	}
	return tx.CreateTransaction(ctx, refund)
}

// notifyParties emails the sender (and the recipient on internal
// completion) about the new status. Best effort; lookups and delivery
// failures are logged and dropped.
func (s *Service) notifyParties(ctx context.Context, txn *models.Transaction, status models.Status, creditedUserID uint) {
	subject := fmt.Sprintf("Transfer %s %s", txn.Reference, status)
	body := fmt.Sprintf("Your transfer %s of %s%s is now %s.",
		txn.Reference, money.SymbolFor(txn.Currency), txn.Amount.StringFixed(s.precision), status)

	if sender, err := s.store.UserByID(ctx, txn.UserID); err == nil {
		s.notifier.Notify(ctx, sender.Email, subject, body)
	} else {
		logger.Log.Warn("sender lookup for notification failed", zap.Uint("user_id", txn.UserID), zap.Error(err))
	}

	if creditedUserID != 0 {
		if recipient, err := s.store.UserByID(ctx, creditedUserID); err == nil {
			s.notifier.Notify(ctx, recipient.Email,
				"Funds received",
				fmt.Sprintf("You received %s%s (reference %s).",
					money.SymbolFor(txn.Currency), txn.Amount.StringFixed(s.precision), "CR-"+txn.Reference))
		}
	}
}
