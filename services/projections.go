// services/projections.go
package services

import (
	"context"
	"time"

	"game-session-engine/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProjectionService serves read-only views over persisted sessions and accounts.
type ProjectionService struct {
	DB *gorm.DB
}

func NewProjectionService(db *gorm.DB) *ProjectionService {
	return &ProjectionService{DB: db}
}

type RankingEntry struct {
	AccountID string          `json:"account_id"`
	Email     string          `json:"email"`
	Score     decimal.Decimal `json:"score"`
}

// Ranking orders accounts by score, highest first unless ascending is set.
func (s *ProjectionService) Ranking(ctx context.Context, ascending bool, limit int) ([]RankingEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	order := "score DESC, email ASC"
	if ascending {
		order = "score ASC, email ASC"
	}

	var accounts []models.Account
	if err := s.DB.WithContext(ctx).Order(order).Limit(limit).Find(&accounts).Error; err != nil {
		return nil, err
	}
	out := make([]RankingEntry, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, RankingEntry{AccountID: a.ID, Email: a.Email, Score: a.Score})
	}
	return out, nil
}

const (
	HistoryWon         = "won"
	HistoryInterrupted = "interrupted"
)

type HistoryEntry struct {
	GameID     string    `json:"gameId"`
	StartDate  time.Time `json:"startDate"`
	TotalMoves int       `json:"totalMoves"`
	Result     string    `json:"result"`
}

// HistoryFilter bounds by session start date; both ends are whole days, inclusive.
type HistoryFilter struct {
	From *time.Time
	To   *time.Time
}

// FinishedHistory lists the account's closed sessions, newest first.
func (s *ProjectionService) FinishedHistory(ctx context.Context, accountID string, f HistoryFilter) ([]HistoryEntry, error) {
	q := s.DB.WithContext(ctx).
		Model(&models.Session{}).
		Select("sessions.id, sessions.created_at, sessions.result, " +
			"(SELECT COUNT(*) FROM moves WHERE moves.session_id = sessions.id) AS total_moves").
		Where("sessions.account_id = ? AND sessions.status IN ?", accountID,
			[]models.SessionStatus{models.SessionFinished, models.SessionAbandoned})
	if f.From != nil {
		q = q.Where("sessions.created_at >= ?", dayStart(*f.From))
	}
	if f.To != nil {
		q = q.Where("sessions.created_at < ?", dayStart(*f.To).AddDate(0, 0, 1))
	}

	var rows []struct {
		ID         string
		CreatedAt  time.Time
		Result     string
		TotalMoves int
	}
	if err := q.Order("sessions.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		result := HistoryInterrupted
		if r.Result == models.ResultWin {
			result = HistoryWon
		}
		out = append(out, HistoryEntry{
			GameID:     r.ID,
			StartDate:  r.CreatedAt.UTC(),
			TotalMoves: r.TotalMoves,
			Result:     result,
		})
	}
	return out, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
