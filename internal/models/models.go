package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

type User struct {
	gorm.Model
	Name              string     `gorm:"size:50;not null"`
	Email             string     `gorm:"uniqueIndex;size:255;not null"`
	Password          string     `gorm:"size:255"`
	Role              UserRole   `gorm:"size:16;not null;default:customer"`
	Status            UserStatus `gorm:"size:16;not null;default:active"`
	PreferredCurrency string     `gorm:"size:3"`
}

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
	AccountClosed   AccountStatus = "closed"
)

type Account struct {
	gorm.Model
	UserID   uint            `gorm:"index;not null"`
	Number   string          `gorm:"uniqueIndex;size:10;not null"`
	Currency string          `gorm:"size:3;index;not null"`
	Status   AccountStatus   `gorm:"size:16;not null;default:active"`
	Balance  decimal.Decimal `gorm:"type:numeric(20,2);not null"`
}

// Transaction is the ledger record behind every balance mutation. The
// outbound record is written once at initiation; credits and refunds are
// new rows linked back by LinkedReference, never edits of the original.
type Transaction struct {
	gorm.Model
	Reference   string          `gorm:"uniqueIndex;size:40;not null"`
	UserID      uint            `gorm:"index;not null"`
	AccountID   uint            `gorm:"index;not null"`
	Type        TransactionType `gorm:"size:32;index;not null"`
	Status      Status          `gorm:"size:16;index;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Currency    string          `gorm:"size:3;not null"`
	Description string          `gorm:"size:255"`

	RecipientName          string `gorm:"size:100"`
	RecipientUserID        uint
	RecipientAccountNumber string `gorm:"size:34"`
	RecipientIBAN          string `gorm:"size:34"`
	RecipientSWIFT         string `gorm:"size:11"`
	RecipientSortCode      string `gorm:"size:6"`
	RecipientRouting       string `gorm:"size:9"`
	RecipientAccountType   string `gorm:"size:16"`
	RecipientAddress       string `gorm:"size:255"`

	LinkedReference string `gorm:"size:44;index"`
	FailureReason   string `gorm:"size:255"`
	CompletedAt     *time.Time
}

// TransferApproval records who resolved a transaction, to what status and
// why. Append-only.
type TransferApproval struct {
	gorm.Model
	TransactionID   uint   `gorm:"index;not null"`
	AdminID         uint   `gorm:"index;not null"`
	ResultingStatus Status `gorm:"size:16;not null"`
	Reason          string `gorm:"size:255;not null"`
	DecidedAt       time.Time
}
