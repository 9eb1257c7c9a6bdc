// models/credit_entry.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryDebit  EntryKind = "debit"
	EntryCredit EntryKind = "credit"
)

type EntryReason string

const (
	ReasonSessionStart EntryReason = "session_start"
	ReasonMove         EntryReason = "move"
	ReasonEngineReply  EntryReason = "engine_reply"
	ReasonRecharge     EntryReason = "recharge"
)

// CreditEntry is the audit row written for every balance mutation.
type CreditEntry struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	AccountID    string          `json:"account_id" gorm:"size:36;index;not null"`
	SessionID    *string         `json:"session_id,omitempty" gorm:"size:36;index"`
	Kind         EntryKind       `json:"kind" gorm:"type:varchar(8);not null"`
	Reason       EntryReason     `json:"reason" gorm:"type:varchar(16);not null"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(14,4);not null"`
	BalanceAfter decimal.Decimal `json:"balance_after" gorm:"type:numeric(14,4);not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}
