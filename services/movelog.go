// services/movelog.go
package services

import (
	"context"
	"database/sql"
	"fmt"

	"game-session-engine/metrics"
	"game-session-engine/models"
	"game-session-engine/rules"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MoveLog is the append-only per-session ply record.
// Callers serialize appends per session (session row lock); the unique
// (session_id, sequence) index backs that up.
type MoveLog struct {
	DB *gorm.DB
}

func NewMoveLog(db *gorm.DB) *MoveLog {
	return &MoveLog{DB: db}
}

// Append records p as the next ply of sessionID.
func (l *MoveLog) Append(tx *gorm.DB, sessionID string, side rules.Side, p rules.Ply) (*models.MoveRecord, error) {
	var last sql.NullInt64
	row := tx.Model(&models.MoveRecord{}).
		Where("session_id = ?", sessionID).
		Select("MAX(sequence)").
		Row()
	if err := row.Scan(&last); err != nil {
		return nil, fmt.Errorf("read last sequence: %w", err)
	}

	rec := models.MoveRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sequence:  int(last.Int64) + 1,
		Side:      string(side),
		From:      p.From,
		To:        p.To,
		Promotion: p.Promotion,
	}
	if err := tx.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("append move %d: %w", rec.Sequence, err)
	}
	metrics.MoveRecorded(string(side))
	return &rec, nil
}

// History returns every ply of sessionID in sequence order.
func (l *MoveLog) History(ctx context.Context, sessionID string) ([]models.MoveRecord, error) {
	var moves []models.MoveRecord
	err := l.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence ASC").
		Find(&moves).Error
	return moves, err
}
