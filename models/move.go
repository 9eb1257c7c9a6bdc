// models/move.go
package models

import "time"

// MoveRecord is one ply (human or engine). Sequence is gapless per session, starting at 1.
type MoveRecord struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID string    `json:"session_id" gorm:"size:36;not null;uniqueIndex:idx_session_sequence"`
	Sequence  int       `json:"sequence" gorm:"not null;uniqueIndex:idx_session_sequence"`
	Side      string    `json:"side" gorm:"type:varchar(8);not null"`
	From      string    `json:"from" gorm:"column:from_square;type:varchar(2);not null"`
	To        string    `json:"to" gorm:"column:to_square;type:varchar(2);not null"`
	Promotion string    `json:"promotion,omitempty" gorm:"type:varchar(1)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (MoveRecord) TableName() string {
	return "moves"
}
