// models/account.go
package models

import (
	"github.com/shopspring/decimal"
)

type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// Account is a provisioned player/operator identity.
// Credits is only mutated by the ledger, Score only by settlement.
type Account struct {
	ID      string          `json:"id" gorm:"primaryKey;size:36"`
	Email   string          `json:"email" gorm:"uniqueIndex;not null"`
	Credits decimal.Decimal `json:"credits" gorm:"type:numeric(14,4);not null;default:0"`
	Role    Role            `json:"role" gorm:"type:varchar(16);not null;default:'player'"`
	Score   decimal.Decimal `json:"score" gorm:"type:numeric(10,2);not null;default:0"`

	Timestamps
}
