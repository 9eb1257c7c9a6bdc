// services/settlement.go
package services

import (
	"fmt"
	"time"

	"game-session-engine/metrics"
	"game-session-engine/models"
	"game-session-engine/rules"
	"game-session-engine/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettlementService adjusts score when a session ends. It never touches credits.
type SettlementService struct {
	DB             *gorm.DB
	WinAward       decimal.Decimal
	AbandonPenalty decimal.Decimal
}

func NewSettlementService(db *gorm.DB, winAward, abandonPenalty decimal.Decimal) *SettlementService {
	return &SettlementService{DB: db, WinAward: winAward, AbandonPenalty: abandonPenalty}
}

// OutcomeOf classifies a terminal board from the human's side.
func OutcomeOf(st rules.State, human rules.Side) string {
	switch {
	case st.IsCheckmate && st.Winner == human:
		return models.ResultWin
	case st.IsCheckmate:
		return models.ResultLoss
	default:
		return models.ResultDraw
	}
}

func (s *SettlementService) deltaFor(result string) decimal.Decimal {
	switch result {
	case models.ResultWin:
		return s.WinAward
	case models.ResultAbandoned:
		return s.AbandonPenalty.Neg()
	}
	return decimal.Zero
}

// OnTerminal settles session once. The caller holds the session row lock inside tx.
// It reports the score delta and whether this call applied it; a session that was
// already settled returns (0, false).
func (s *SettlementService) OnTerminal(tx *gorm.DB, session *models.Session, result string) (decimal.Decimal, bool, error) {
	if session.Settled() {
		return decimal.Zero, false, nil
	}
	delta := s.deltaFor(result)
	now := time.Now().UTC()

	res := tx.Model(&models.Session{}).
		Where("id = ? AND settled_at IS NULL", session.ID).
		Updates(map[string]interface{}{
			"settled_at":  now,
			"result":      result,
			"score_delta": delta,
		})
	if res.Error != nil {
		return decimal.Zero, false, fmt.Errorf("mark settled: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, false, nil
	}
	session.SettledAt = &now
	session.Result = result
	session.ScoreDelta = &delta

	if !delta.IsZero() {
		acc, err := lockAccount(tx, session.AccountID)
		if err != nil {
			return decimal.Zero, false, err
		}
		if err := tx.Model(acc).Update("score", acc.Score.Add(delta)).Error; err != nil {
			return decimal.Zero, false, fmt.Errorf("update score: %w", err)
		}
	}

	metrics.Settled(result)
	utils.Log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"account_id": session.AccountID,
		"result":     result,
		"delta":      delta.String(),
	}).Info("🏁 session settled")
	return delta, true, nil
}
