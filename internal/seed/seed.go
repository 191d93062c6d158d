package seed

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/Officialbobos/hometownpas-sub000/internal/logger"
	"github.com/Officialbobos/hometownpas-sub000/internal/models"
	"github.com/Officialbobos/hometownpas-sub000/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	seedPassword = "password123"
	usdInitial   = "1000.00"
	eurInitial   = "500.00"
	adminEmail   = "admin@bank.local"
)

var testUsers = []struct {
	Name      string
	Email     string
	UsdNumber string
	EurNumber string
}{
	{"Test User 1", "user1@test.com", "1000000001", "2000000001"},
	{"Test User 2", "user2@test.com", "1000000002", "2000000002"},
	{"Test User 3", "user3@test.com", "1000000003", "2000000003"},
}

func Run() {
	db := store.DB
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", adminEmail).Count(&count).Error; err != nil {
		logger.Log.Fatal("seed check failed", zap.Error(err))
	}
	if count > 0 {
		logger.Log.Info("seed already applied, skipping")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed password", zap.Error(err))
	}
	hashed := string(hash)

	err = db.Transaction(func(tx *gorm.DB) error {
		admin := models.User{
			Name:     "Admin",
			Email:    adminEmail,
			Password: hashed,
			Role:     models.RoleAdmin,
			Status:   models.UserActive,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		usd := decimal.RequireFromString(usdInitial)
		eur := decimal.RequireFromString(eurInitial)

		for _, u := range testUsers {
			user := models.User{
				Name:              u.Name,
				Email:             u.Email,
				Password:          hashed,
				Role:              models.RoleCustomer,
				Status:            models.UserActive,
				PreferredCurrency: "USD",
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			accounts := []models.Account{
				{UserID: user.ID, Number: u.UsdNumber, Currency: "USD", Status: models.AccountActive, Balance: usd},
				{UserID: user.ID, Number: u.EurNumber, Currency: "EUR", Status: models.AccountActive, Balance: eur},
			}
			for i := range accounts {
				if err := tx.Create(&accounts[i]).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		logger.Log.Fatal("seed failed", zap.Error(err))
	}
	logger.Log.Info("seeded admin and 3 test users", zap.String("password", seedPassword))
}
