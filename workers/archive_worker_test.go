package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"game-session-engine/models"
	"game-session-engine/rules"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string]string
	fail    bool
}

func (m *memoryStore) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return "", errors.New("bucket unavailable")
	}
	if contentType != "application/x-chess-pgn" {
		return "", fmt.Errorf("unexpected content type %q", contentType)
	}
	m.objects[key] = string(body)
	return "https://cdn.example.com/" + key, nil
}

func newArchiveDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Session{}))
	return db
}

func openingSnapshot(t *testing.T, oracle *rules.ChessOracle) string {
	t.Helper()
	h, err := oracle.NewGame()
	require.NoError(t, err)
	_, err = oracle.ApplyMove(h, rules.Ply{From: "e2", To: "e4"})
	require.NoError(t, err)
	st, err := oracle.Snapshot(h)
	require.NoError(t, err)
	return st.Serialized
}

func insertSession(t *testing.T, db *gorm.DB, snapshot string, settled bool) *models.Session {
	t.Helper()
	created := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	s := &models.Session{
		ID:           uuid.NewString(),
		AccountID:    "acc-1",
		Difficulty:   models.DifficultyHard,
		HumanSide:    string(rules.White),
		Snapshot:     snapshot,
		Status:       models.SessionAbandoned,
		LastActionAt: created,
		CreatedAt:    created,
	}
	if settled {
		now := time.Now().UTC()
		s.Result = models.ResultAbandoned
		s.SettledAt = &now
	} else {
		s.Status = models.SessionActive
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

func TestArchiveKey(t *testing.T) {
	s := &models.Session{
		ID:         "0b6f3c1e-aaaa-bbbb-cccc-123456789abc",
		Difficulty: models.DifficultyMedium,
		Result:     models.ResultWin,
		CreatedAt:  time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "games/2026/03/04/medium-win-0b6f3c1e-aaaa-bbbb-cccc-123456789abc.pgn", ArchiveKey(s))
}

func TestArchiveBatchUploadsSettledSessionsOnce(t *testing.T) {
	db := newArchiveDB(t)
	oracle, err := rules.NewChessOracle(rules.WithSeed(7))
	require.NoError(t, err)
	snapshot := openingSnapshot(t, oracle)

	done := insertSession(t, db, snapshot, true)
	insertSession(t, db, snapshot, false)
	broken := insertSession(t, db, "not a snapshot", true)

	store := &memoryStore{objects: map[string]string{}}
	archiver := NewSessionArchiver(db, oracle, store)

	n, err := archiver.ArchiveBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.objects, 1)

	key := ArchiveKey(done)
	pgn, ok := store.objects[key]
	require.True(t, ok, "missing %s", key)
	assert.Contains(t, pgn, "e4")
	assert.Contains(t, pgn, `[White "acc-1"]`)
	assert.Contains(t, pgn, `[Black "Engine (hard)"]`)

	var reloaded models.Session
	require.NoError(t, db.First(&reloaded, "id = ?", done.ID).Error)
	assert.NotNil(t, reloaded.ArchivedAt)
	assert.Equal(t, key, reloaded.ArchiveKey)

	var skipped models.Session
	require.NoError(t, db.First(&skipped, "id = ?", broken.ID).Error)
	assert.Nil(t, skipped.ArchivedAt)
	assert.Empty(t, skipped.ArchiveKey)

	n, err = archiver.ArchiveBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, store.objects, 1)
}

func TestArchiveBatchRetriesFailedUploads(t *testing.T) {
	db := newArchiveDB(t)
	oracle, err := rules.NewChessOracle()
	require.NoError(t, err)
	s := insertSession(t, db, openingSnapshot(t, oracle), true)

	store := &memoryStore{objects: map[string]string{}, fail: true}
	archiver := NewSessionArchiver(db, oracle, store)

	n, err := archiver.ArchiveBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	store.fail = false
	n, err = archiver.ArchiveBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, strings.HasSuffix(ArchiveKey(s), ".pgn"))
	assert.Contains(t, store.objects, ArchiveKey(s))
}
