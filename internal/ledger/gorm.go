package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func wrapDBError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (s *GormStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return &u, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return &u, nil
}

func (s *GormStore) SetUserStatus(ctx context.Context, id uint, status models.UserStatus) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return wrapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AccountByID(ctx context.Context, id uint) (*models.Account, error) {
	var a models.Account
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return &a, nil
}

func (s *GormStore) AccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	var a models.Account
	if err := s.db.WithContext(ctx).Where("number = ?", number).First(&a).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return &a, nil
}

func (s *GormStore) AccountsByUser(ctx context.Context, userID uint) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return accounts, nil
}

func (s *GormStore) SetAccountBalance(ctx context.Context, id uint, expected, next decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND balance = ?", id, expected).
		Update("balance", next)
	if res.Error != nil {
		return wrapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return wrapDBError(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConcurrentModification
	}
	return nil
}

func (s *GormStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (s *GormStore) TransactionByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.WithContext(ctx).First(&txn, id).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return &txn, nil
}

func (s *GormStore) TransactionsByUser(ctx context.Context, userID uint, f TransactionFilter) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.AccountID != 0 {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var txns []models.Transaction
	if err := q.Order("created_at DESC").Find(&txns).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return txns, nil
}

func (s *GormStore) PendingTransactions(ctx context.Context) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := s.db.WithContext(ctx).Where("status = ?", models.StatusPending).
		Order("created_at ASC").Find(&txns).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return txns, nil
}

func (s *GormStore) MarkTransactionStatus(ctx context.Context, id uint, expected, next models.Status, fields map[string]any) error {
	updates := map[string]any{"status": next}
	for k, v := range fields {
		updates[k] = v
	}
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return wrapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return wrapDBError(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrConcurrentModification
	}
	return nil
}

func (s *GormStore) CreateApproval(ctx context.Context, a *models.TransferApproval) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (s *GormStore) WithTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
