// services/session_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-session-engine/metrics"
	"game-session-engine/models"
	"game-session-engine/rules"
	"game-session-engine/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fees are the metered prices of session actions.
type Fees struct {
	SessionStart decimal.Decimal
	Move         decimal.Decimal
	// RefundIllegalMoves rolls back the move fee when the oracle rejects the move.
	RefundIllegalMoves bool
}

// SessionView is what the edge gets back from every lifecycle call.
type SessionView struct {
	Session       *models.Session     `json:"session"`
	SideToMove    rules.Side          `json:"side_to_move,omitempty"`
	InCheck       bool                `json:"in_check"`
	IsCheckmate   bool                `json:"is_checkmate"`
	Balance       *decimal.Decimal    `json:"balance,omitempty"`
	Moves         []models.MoveRecord `json:"moves,omitempty"`
	PointsAwarded *decimal.Decimal    `json:"points_awarded,omitempty"`
	Message       string              `json:"message,omitempty"`
}

var systemIdentity = Identity{Role: models.RoleAdmin}

var errRecentlyActive = errors.New("session saw activity after the cutoff")

type SessionService struct {
	DB         *gorm.DB
	Oracle     rules.Oracle
	Ledger     *LedgerService
	Moves      *MoveLog
	Settlement *SettlementService
	Fees       Fees
	Now        func() time.Time

	locks *sessionLocks
}

func NewSessionService(db *gorm.DB, oracle rules.Oracle, ledger *LedgerService, moves *MoveLog, settlement *SettlementService, fees Fees) *SessionService {
	return &SessionService{
		DB:         db,
		Oracle:     oracle,
		Ledger:     ledger,
		Moves:      moves,
		Settlement: settlement,
		Fees:       fees,
		Now:        time.Now,
		locks:      newSessionLocks(),
	}
}

func (s *SessionService) now() time.Time {
	return s.Now().UTC()
}

// StartSession charges the start fee and opens a fresh game for the caller.
// The balance has to cover the whole fee.
func (s *SessionService) StartSession(ctx context.Context, id Identity, difficulty models.Difficulty) (*SessionView, error) {
	if !difficulty.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDifficulty, difficulty)
	}

	session := models.Session{
		ID:           uuid.NewString(),
		AccountID:    id.AccountID,
		Difficulty:   difficulty,
		Status:       models.SessionActive,
		CreditSpent:  s.Fees.SessionStart,
		LastActionAt: s.now(),
		CreatedAt:    s.now(),
	}
	var view SessionView

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.Ledger.Debit(tx, Debit{
			AccountID: id.AccountID,
			Amount:    s.Fees.SessionStart,
			Reason:    models.ReasonSessionStart,
			SessionID: session.ID,
			Covered:   true,
		})
		if err != nil {
			return err
		}

		h, err := s.Oracle.NewGame()
		if err != nil {
			return fmt.Errorf("new game: %w", err)
		}
		st, err := s.Oracle.Snapshot(h)
		if err != nil {
			return err
		}
		// the human always has the first move
		session.HumanSide = string(st.SideToMove)
		session.Snapshot = st.Serialized

		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		view = SessionView{
			Session:    &session,
			SideToMove: st.SideToMove,
			Balance:    &balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionStarted(string(difficulty))
	utils.Log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"account_id": session.AccountID,
		"difficulty": difficulty,
		"balance":    view.Balance.String(),
	}).Info("🎮 session started")
	return &view, nil
}

// ExecuteMove runs one exchange: the human ply and, when it is then the engine's
// turn, the engine reply. Fees, board and move records commit together.
func (s *SessionService) ExecuteMove(ctx context.Context, id Identity, sessionID string, ply rules.Ply) (*SessionView, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	var (
		view     SessionView
		rejected error
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, id, sessionID)
		if err != nil {
			return err
		}
		if session.Status.Terminal() {
			return fmt.Errorf("session %s is %s: %w", session.ID, session.Status, ErrSessionNotActive)
		}
		human := rules.Side(session.HumanSide)
		if !human.Valid() {
			return fmt.Errorf("session %s: human side %q: %w", session.ID, session.HumanSide, ErrCorruptState)
		}

		balance, err := s.Ledger.Debit(tx, Debit{
			AccountID: session.AccountID,
			Amount:    s.Fees.Move,
			Reason:    models.ReasonMove,
			SessionID: session.ID,
		})
		if err != nil {
			return err
		}
		session.CreditSpent = session.CreditSpent.Add(s.Fees.Move)
		session.LastActionAt = s.now()

		h, err := s.Oracle.Load(session.Snapshot)
		if err != nil {
			return fmt.Errorf("session %s: %w", session.ID, err)
		}

		applied, err := s.applyHuman(h, human, ply)
		if err != nil {
			if !errors.Is(err, ErrIllegalMove) || s.Fees.RefundIllegalMoves {
				return err
			}
			// the fee stays charged; only the spend and activity time move
			rejected = err
			return tx.Model(session).Updates(map[string]interface{}{
				"credit_spent":   session.CreditSpent,
				"last_action_at": session.LastActionAt,
			}).Error
		}

		rec, err := s.Moves.Append(tx, session.ID, human, applied)
		if err != nil {
			return err
		}
		view.Moves = append(view.Moves, *rec)

		st, err := s.Oracle.Snapshot(h)
		if err != nil {
			return err
		}

		if !st.IsTerminal && st.SideToMove != human {
			balance, err = s.Ledger.Debit(tx, Debit{
				AccountID:    session.AccountID,
				Amount:       s.Fees.Move,
				Reason:       models.ReasonEngineReply,
				SessionID:    session.ID,
				Continuation: true,
			})
			if err != nil {
				return err
			}
			session.CreditSpent = session.CreditSpent.Add(s.Fees.Move)

			reply, err := s.Oracle.ComputeReply(h, rules.Level(session.Difficulty))
			if err != nil {
				return fmt.Errorf("engine reply: %w", err)
			}
			rec, err := s.Moves.Append(tx, session.ID, human.Opponent(), reply)
			if err != nil {
				return err
			}
			view.Moves = append(view.Moves, *rec)

			if st, err = s.Oracle.Snapshot(h); err != nil {
				return err
			}
		}

		session.Snapshot = st.Serialized
		if st.IsTerminal {
			session.Status = models.SessionFinished
			delta, settled, err := s.Settlement.OnTerminal(tx, session, OutcomeOf(st, human))
			if err != nil {
				return err
			}
			if settled {
				view.PointsAwarded = &delta
			}
		}
		if err := tx.Save(session).Error; err != nil {
			return fmt.Errorf("save session: %w", err)
		}

		view.Session = session
		view.SideToMove = st.SideToMove
		view.InCheck = st.InCheck
		view.IsCheckmate = st.IsCheckmate
		view.Balance = &balance
		view.Message = statusMessage(session, st, human, s.Settlement.AbandonPenalty)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		utils.Log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"from":       ply.From,
			"to":         ply.To,
		}).Info("⚠️ move rejected, fee kept")
		return nil, rejected
	}

	utils.Log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"plies":      len(view.Moves),
		"status":     view.Session.Status,
		"balance":    view.Balance.String(),
	}).Debug("🎮 exchange applied")
	return &view, nil
}

func (s *SessionService) applyHuman(h *rules.Handle, human rules.Side, ply rules.Ply) (rules.Ply, error) {
	st, err := s.Oracle.Snapshot(h)
	if err != nil {
		return rules.Ply{}, err
	}
	if st.SideToMove != human {
		return rules.Ply{}, ErrNotYourTurn
	}
	return s.Oracle.ApplyMove(h, ply)
}

// EvaluateStatus reads the board and settles a terminal condition not settled yet:
// a checkmate or draw on the board, or an abandonment flagged from outside.
func (s *SessionService) EvaluateStatus(ctx context.Context, id Identity, sessionID string) (*SessionView, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	var view SessionView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, id, sessionID)
		if err != nil {
			return err
		}
		h, err := s.Oracle.Load(session.Snapshot)
		if err != nil {
			return fmt.Errorf("session %s: %w", session.ID, err)
		}
		st, err := s.Oracle.Snapshot(h)
		if err != nil {
			return err
		}
		human := rules.Side(session.HumanSide)

		var result string
		switch {
		case session.Settled():
		case session.Status == models.SessionAbandoned:
			result = models.ResultAbandoned
		case st.IsTerminal:
			session.Status = models.SessionFinished
			result = OutcomeOf(st, human)
		}
		if result != "" {
			delta, settled, err := s.Settlement.OnTerminal(tx, session, result)
			if err != nil {
				return err
			}
			if settled {
				view.PointsAwarded = &delta
			}
			if err := tx.Save(session).Error; err != nil {
				return fmt.Errorf("save session: %w", err)
			}
		}

		view.Session = session
		view.SideToMove = st.SideToMove
		view.InCheck = st.InCheck
		view.IsCheckmate = st.IsCheckmate
		view.Message = statusMessage(session, st, human, s.Settlement.AbandonPenalty)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Abandon is the player's forfeit. The penalty is settled at once.
func (s *SessionService) Abandon(ctx context.Context, id Identity, sessionID string) (*SessionView, error) {
	return s.abandon(ctx, id, sessionID, nil)
}

// AbandonIdle forfeits active sessions with no action for idleFor and
// returns how many it closed.
func (s *SessionService) AbandonIdle(ctx context.Context, idleFor time.Duration) (int, error) {
	cutoff := s.now().Add(-idleFor)

	var ids []string
	err := s.DB.WithContext(ctx).
		Model(&models.Session{}).
		Where("status = ? AND last_action_at < ?", models.SessionActive, cutoff).
		Order("last_action_at ASC").
		Limit(200).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("find idle sessions: %w", err)
	}

	stillIdle := func(session *models.Session) error {
		if !session.LastActionAt.Before(cutoff) {
			return errRecentlyActive
		}
		return nil
	}

	closed := 0
	for _, sid := range ids {
		_, err := s.abandon(ctx, systemIdentity, sid, stillIdle)
		switch {
		case err == nil:
			closed++
		case errors.Is(err, ErrSessionNotActive), errors.Is(err, errRecentlyActive):
		default:
			utils.Log.WithError(err).WithField("session_id", sid).Warn("⚠️ idle abandonment failed")
		}
	}
	return closed, nil
}

// SettleAbandoned settles sessions that were flipped to abandoned by another
// writer without going through Abandon.
func (s *SessionService) SettleAbandoned(ctx context.Context) (int, error) {
	var ids []string
	err := s.DB.WithContext(ctx).
		Model(&models.Session{}).
		Where("status = ? AND settled_at IS NULL", models.SessionAbandoned).
		Limit(200).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("find unsettled sessions: %w", err)
	}

	settled := 0
	for _, sid := range ids {
		ok, err := s.settleFlagged(ctx, sid)
		if err != nil {
			utils.Log.WithError(err).WithField("session_id", sid).Warn("⚠️ abandonment settlement failed")
			continue
		}
		if ok {
			settled++
		}
	}
	return settled, nil
}

func (s *SessionService) settleFlagged(ctx context.Context, sessionID string) (bool, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	var settled bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, systemIdentity, sessionID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionAbandoned {
			return nil
		}
		_, settled, err = s.Settlement.OnTerminal(tx, session, models.ResultAbandoned)
		return err
	})
	return settled, err
}

func (s *SessionService) abandon(ctx context.Context, id Identity, sessionID string, check func(*models.Session) error) (*SessionView, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	var view SessionView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := lockSession(tx, id, sessionID)
		if err != nil {
			return err
		}
		if session.Status.Terminal() {
			return fmt.Errorf("session %s is %s: %w", session.ID, session.Status, ErrSessionNotActive)
		}
		if check != nil {
			if err := check(session); err != nil {
				return err
			}
		}

		session.Status = models.SessionAbandoned
		delta, settled, err := s.Settlement.OnTerminal(tx, session, models.ResultAbandoned)
		if err != nil {
			return err
		}
		if err := tx.Save(session).Error; err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		if settled {
			view.PointsAwarded = &delta
		}
		view.Session = session
		view.Message = fmt.Sprintf("Game abandoned: %s points deducted", s.Settlement.AbandonPenalty.String())

		// a corrupt board must not block a forfeit
		if h, err := s.Oracle.Load(session.Snapshot); err == nil {
			if st, err := s.Oracle.Snapshot(h); err == nil {
				view.SideToMove = st.SideToMove
				view.InCheck = st.InCheck
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.Log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"account_id": view.Session.AccountID,
	}).Info("🏳️ session abandoned")
	return &view, nil
}

// GetSession returns one session the caller may see.
func (s *SessionService) GetSession(ctx context.Context, id Identity, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := s.DB.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, err
	}
	if !id.canAct(session.AccountID) {
		return nil, ErrForbidden
	}
	return &session, nil
}

// GetMoveHistory lists the session's plies in sequence order.
func (s *SessionService) GetMoveHistory(ctx context.Context, id Identity, sessionID string) ([]models.MoveRecord, error) {
	if _, err := s.GetSession(ctx, id, sessionID); err != nil {
		return nil, err
	}
	return s.Moves.History(ctx, sessionID)
}

func lockSession(tx *gorm.DB, id Identity, sessionID string) (*models.Session, error) {
	var session models.Session
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, "id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		return nil, err
	}
	if !id.canAct(session.AccountID) {
		return nil, ErrForbidden
	}
	return &session, nil
}

func statusMessage(session *models.Session, st rules.State, human rules.Side, penalty decimal.Decimal) string {
	switch {
	case session.Status == models.SessionAbandoned:
		return fmt.Sprintf("Game abandoned: %s points deducted", penalty.String())
	case st.IsCheckmate && st.Winner == human:
		return "Checkmate! You won"
	case st.IsCheckmate:
		return "Checkmate! The engine won"
	case st.IsTerminal:
		return "Game over: " + st.Method
	case st.InCheck:
		return "Check!"
	}
	return "Game in progress"
}
