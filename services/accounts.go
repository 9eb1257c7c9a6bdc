// services/accounts.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"game-session-engine/models"
	"game-session-engine/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountService covers provisioning and reads. Balance and score changes live in
// LedgerService and SettlementService.
type AccountService struct {
	DB *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{DB: db}
}

// Provision creates the account for email if it does not exist yet.
// An existing account is returned untouched.
func (s *AccountService) Provision(ctx context.Context, email string, credits decimal.Decimal, role models.Role) (*models.Account, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, errors.New("email is required")
	}
	if role == "" {
		role = models.RolePlayer
	}

	var acc models.Account
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&acc).Error
	if err == nil {
		return &acc, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	acc = models.Account{
		ID:      uuid.NewString(),
		Email:   email,
		Credits: credits,
		Role:    role,
		Score:   decimal.Zero,
	}
	if err := s.DB.WithContext(ctx).Create(&acc).Error; err != nil {
		return nil, false, fmt.Errorf("create account: %w", err)
	}
	utils.Log.WithField("account_id", acc.ID).Infof("👤 provisioned %s (%s credits)", email, credits.String())
	return &acc, true, nil
}

func (s *AccountService) Get(ctx context.Context, accountID string) (*models.Account, error) {
	var acc models.Account
	if err := s.DB.WithContext(ctx).First(&acc, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
		}
		return nil, err
	}
	return &acc, nil
}
