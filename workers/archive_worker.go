package workers

import (
	"context"
	"fmt"
	"time"

	"game-session-engine/metrics"
	"game-session-engine/models"
	"game-session-engine/rules"
	"game-session-engine/utils"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ObjectStore is where archived games are written. utils.R2Store satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// SessionArchiver uploads the PGN of every settled session exactly once.
type SessionArchiver struct {
	DB        *gorm.DB
	Oracle    rules.Oracle
	Store     ObjectStore
	BatchSize int
}

func NewSessionArchiver(db *gorm.DB, oracle rules.Oracle, store ObjectStore) *SessionArchiver {
	return &SessionArchiver{DB: db, Oracle: oracle, Store: store, BatchSize: 50}
}

// ArchiveKey names the object for a session, e.g. games/2026/10/17/hard-win-<id>.pgn
func ArchiveKey(s *models.Session) string {
	return fmt.Sprintf("games/%s/%s.pgn",
		s.CreatedAt.UTC().Format("2006/01/02"),
		slug.Make(fmt.Sprintf("%s %s %s", s.Difficulty, s.Result, s.ID)),
	)
}

// ArchiveBatch uploads up to BatchSize settled, unarchived sessions.
func (a *SessionArchiver) ArchiveBatch(ctx context.Context) (int, error) {
	var sessions []models.Session
	err := a.DB.WithContext(ctx).
		Where("settled_at IS NOT NULL AND archived_at IS NULL").
		Order("settled_at ASC").
		Limit(a.BatchSize).
		Find(&sessions).Error
	if err != nil {
		return 0, fmt.Errorf("find sessions to archive: %w", err)
	}

	archived := 0
	for i := range sessions {
		s := &sessions[i]
		pgn, err := a.Oracle.PGN(s.Snapshot, map[string]string{
			"Event": "Game session " + s.ID,
			"Date":  s.CreatedAt.UTC().Format("2006.01.02"),
			"White": playerName(s, rules.White),
			"Black": playerName(s, rules.Black),
		})
		if err != nil {
			utils.Log.WithError(err).WithField("session_id", s.ID).Warn("⚠️ [Archive] cannot render PGN")
			metrics.ArchiveUpload(false)
			continue
		}

		key := ArchiveKey(s)
		url, err := a.Store.Put(ctx, key, []byte(pgn), "application/x-chess-pgn")
		if err != nil {
			utils.Log.WithError(err).WithField("session_id", s.ID).Error("❌ [Archive] upload failed")
			metrics.ArchiveUpload(false)
			continue
		}

		now := time.Now().UTC()
		res := a.DB.WithContext(ctx).Model(&models.Session{}).
			Where("id = ? AND archived_at IS NULL", s.ID).
			Updates(map[string]interface{}{"archived_at": now, "archive_key": key})
		if res.Error != nil {
			return archived, fmt.Errorf("mark session %s archived: %w", s.ID, res.Error)
		}
		metrics.ArchiveUpload(true)
		archived++
		utils.Log.WithField("session_id", s.ID).Debugf("📦 [Archive] uploaded %s", url)
	}
	return archived, nil
}

func playerName(s *models.Session, side rules.Side) string {
	if string(side) == s.HumanSide {
		return s.AccountID
	}
	return fmt.Sprintf("Engine (%s)", s.Difficulty)
}

// PollArchives runs ArchiveBatch every interval until ctx is done.
func PollArchives(ctx context.Context, a *SessionArchiver, interval time.Duration) {
	utils.Log.Info("Starting game archive polling...")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Log.Info("Game archive polling stopped.")
			return
		case <-ticker.C:
			n, err := a.ArchiveBatch(ctx)
			if err != nil {
				utils.Log.WithError(err).Error("❌ Error archiving games")
				continue
			}
			if n > 0 {
				utils.Log.Infof("✅ Archived %d game(s).", n)
			}
		}
	}
}
