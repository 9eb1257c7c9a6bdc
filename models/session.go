// models/session.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionFinished  SessionStatus = "finished"
	SessionAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether no further moves may be accepted.
func (s SessionStatus) Terminal() bool {
	return s == SessionFinished || s == SessionAbandoned
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Session results, set once the session is settled.
const (
	ResultWin       = "win"
	ResultLoss      = "loss"
	ResultDraw      = "draw"
	ResultAbandoned = "abandoned"
)

// Session records one game between an account and the rules engine.
type Session struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	AccountID   string          `json:"account_id" gorm:"size:36;index;not null"`
	Difficulty  Difficulty      `json:"difficulty" gorm:"type:varchar(16);not null"`
	HumanSide   string          `json:"human_side" gorm:"type:varchar(8);not null;default:'white'"`
	Snapshot    string          `json:"state" gorm:"type:text;not null"`
	Status      SessionStatus   `json:"status" gorm:"type:varchar(16);index;not null;default:'active';check:chk_session_status,status IN ('active','finished','abandoned')"`
	CreditSpent decimal.Decimal `json:"credit_spent" gorm:"type:numeric(14,4);not null;default:0"`

	// Settlement
	Result     string           `json:"result,omitempty" gorm:"type:varchar(16)"`
	ScoreDelta *decimal.Decimal `json:"score_delta,omitempty" gorm:"type:numeric(10,2)"`
	SettledAt  *time.Time       `json:"settled_at,omitempty"`

	// Archive
	ArchiveKey string     `json:"archive_key,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty" gorm:"index"`

	LastActionAt time.Time `json:"last_action_at" gorm:"index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (s *Session) Settled() bool {
	return s.SettledAt != nil
}
