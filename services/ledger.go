// services/ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"game-session-engine/metrics"
	"game-session-engine/models"
	"game-session-engine/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService owns credit balances. Every mutation goes through Debit or Credit
// and leaves a CreditEntry behind.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// Debit describes one metered charge.
type Debit struct {
	AccountID string
	Amount    decimal.Decimal
	Reason    models.EntryReason
	SessionID string
	// Continuation skips the positive-balance gate. Used for the engine reply,
	// which belongs to an exchange the player already paid to open.
	Continuation bool
	// Covered additionally requires the balance to cover the whole amount.
	Covered bool
}

// Debit charges an account inside tx and returns the new balance, which may be negative.
// A balance of zero or below refuses the charge without touching the row, as does
// a balance below the amount when Covered is set.
func (s *LedgerService) Debit(tx *gorm.DB, d Debit) (decimal.Decimal, error) {
	if !d.Amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	acc, err := lockAccount(tx, d.AccountID)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.Continuation && (!acc.Credits.IsPositive() || (d.Covered && acc.Credits.LessThan(d.Amount))) {
		utils.Log.WithFields(logrus.Fields{
			"account_id": acc.ID,
			"balance":    acc.Credits.String(),
			"reason":     d.Reason,
		}).Info("💳 debit refused: no credit left")
		return acc.Credits, ErrInsufficientCredit
	}

	balance := acc.Credits.Sub(d.Amount)
	if err := s.write(tx, acc, balance, models.EntryDebit, d.Reason, d.Amount, d.SessionID); err != nil {
		return decimal.Zero, err
	}
	metrics.CreditsDebited(string(d.Reason), d.Amount.InexactFloat64())
	return balance, nil
}

// Credit adds to an account's balance inside tx.
func (s *LedgerService) Credit(tx *gorm.DB, accountID string, amount decimal.Decimal, reason models.EntryReason) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	acc, err := lockAccount(tx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := acc.Credits.Add(amount)
	if err := s.write(tx, acc, balance, models.EntryCredit, reason, amount, ""); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// RechargeByEmail credits the account registered under email.
func (s *LedgerService) RechargeByEmail(ctx context.Context, email string, amount decimal.Decimal) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var acc models.Account
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&acc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("account %q: %w", email, ErrNotFound)
			}
			return err
		}
		balance, err := s.Credit(tx, acc.ID, amount, models.ReasonRecharge)
		if err != nil {
			return err
		}
		acc.Credits = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Log.WithFields(logrus.Fields{
		"account_id": acc.ID,
		"amount":     amount.String(),
		"balance":    acc.Credits.String(),
	}).Info("💰 account recharged")
	return &acc, nil
}

// Entries lists an account's audit trail, newest first.
func (s *LedgerService) Entries(ctx context.Context, accountID string, limit int) ([]models.CreditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []models.CreditEntry
	err := s.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (s *LedgerService) write(tx *gorm.DB, acc *models.Account, balance decimal.Decimal, kind models.EntryKind, reason models.EntryReason, amount decimal.Decimal, sessionID string) error {
	if err := tx.Model(acc).Update("credits", balance).Error; err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	acc.Credits = balance

	entry := models.CreditEntry{
		ID:           uuid.NewString(),
		AccountID:    acc.ID,
		Kind:         kind,
		Reason:       reason,
		Amount:       amount,
		BalanceAfter: balance,
	}
	if sessionID != "" {
		entry.SessionID = &sessionID
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("write credit entry: %w", err)
	}
	return nil
}

func lockAccount(tx *gorm.DB, accountID string) (*models.Account, error) {
	var acc models.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&acc, "id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
		}
		return nil, err
	}
	return &acc, nil
}
