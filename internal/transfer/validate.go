package transfer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Officialbobos/hometownpas-sub000/internal/ledger"
	"github.com/Officialbobos/hometownpas-sub000/internal/models"
)

var (
	ibanPattern      = regexp.MustCompile(`^[A-Za-z0-9]{15,34}$`)
	swiftPattern     = regexp.MustCompile(`^[A-Za-z0-9]{8}([A-Za-z0-9]{3})?$`)
	sortCodePattern  = regexp.MustCompile(`^[0-9]{6}$`)
	ukAccountPattern = regexp.MustCompile(`^[0-9]{8}$`)
	routingPattern   = regexp.MustCompile(`^[0-9]{9}$`)
)

// validateRecipient runs the method-specific branch and fills the
// recipient columns of the outbound record.
func (s *Service) validateRecipient(ctx context.Context, callerUserID uint, source *models.Account, req Request, txn *models.Transaction) error {
	rec := req.Recipient
	switch req.Method {
	case models.MethodSelf:
		dest, err := s.store.AccountByNumber(ctx, rec.AccountNumber)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ErrInvalidDestination
			}
			return err
		}
		if dest.UserID != callerUserID || dest.ID == source.ID || dest.Status != models.AccountActive {
			return ErrInvalidDestination
		}
		if dest.Currency != source.Currency {
			return ErrCurrencyMismatch
		}
		txn.RecipientUserID = dest.UserID
		txn.RecipientAccountNumber = dest.Number

	case models.MethodBank:
		dest, err := s.store.AccountByNumber(ctx, rec.AccountNumber)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ErrRecipientNotFound
			}
			return err
		}
		if dest.UserID == callerUserID || dest.Status != models.AccountActive {
			return ErrRecipientNotFound
		}
		if dest.Currency != source.Currency {
			return ErrCurrencyMismatch
		}
		txn.RecipientName = rec.Name
		txn.RecipientUserID = dest.UserID
		txn.RecipientAccountNumber = dest.Number

	case models.MethodIBAN:
		if rec.Name == "" || !ibanPattern.MatchString(rec.IBAN) || !swiftPattern.MatchString(rec.SWIFT) {
			return fmt.Errorf("%w: IBAN or SWIFT/BIC", ErrInvalidRecipientFormat)
		}
		txn.RecipientName = rec.Name
		txn.RecipientIBAN = strings.ToUpper(rec.IBAN)
		txn.RecipientSWIFT = strings.ToUpper(rec.SWIFT)

	case models.MethodSortCode:
		if rec.Name == "" || !sortCodePattern.MatchString(rec.SortCode) || !ukAccountPattern.MatchString(rec.AccountNumber) {
			return fmt.Errorf("%w: sort code or account number", ErrInvalidRecipientFormat)
		}
		txn.RecipientName = rec.Name
		txn.RecipientSortCode = rec.SortCode
		txn.RecipientAccountNumber = rec.AccountNumber

	case models.MethodUSA:
		if source.Currency != "USD" {
			return &CurrencyNotAllowedError{Currency: source.Currency, Allowed: []string{"USD"}}
		}
		if rec.Name == "" || !routingPattern.MatchString(rec.RoutingNumber) ||
			(rec.AccountType != "Checking" && rec.AccountType != "Savings") ||
			rec.AccountNumber == "" || rec.Address == "" {
			return fmt.Errorf("%w: routing number, account type or address", ErrInvalidRecipientFormat)
		}
		txn.RecipientName = rec.Name
		txn.RecipientRouting = rec.RoutingNumber
		txn.RecipientAccountNumber = rec.AccountNumber
		txn.RecipientAccountType = rec.AccountType
		txn.RecipientAddress = rec.Address
	}
	return nil
}
