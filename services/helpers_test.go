package services

import (
	"context"
	"fmt"
	"testing"

	"game-session-engine/models"
	"game-session-engine/rules"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	backRankMate = "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"
	engineMates  = "1r4k1/8/8/8/8/8/P5PP/7K w - - 0 1"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Account{},
		&models.Session{},
		&models.MoveRecord{},
		&models.CreditEntry{},
	))
	return db
}

type fixture struct {
	db       *gorm.DB
	ledger   *LedgerService
	accounts *AccountService
	sessions *SessionService
}

func newFixture(t *testing.T, refund bool, opts ...rules.Option) *fixture {
	t.Helper()
	db := newTestDB(t)
	oracle, err := rules.NewChessOracle(append([]rules.Option{rules.WithSeed(42)}, opts...)...)
	require.NoError(t, err)

	ledger := NewLedgerService(db)
	return &fixture{
		db:       db,
		ledger:   ledger,
		accounts: NewAccountService(db),
		sessions: NewSessionService(db, oracle, ledger, NewMoveLog(db),
			NewSettlementService(db, dec("1"), dec("0.5")),
			Fees{SessionStart: dec("0.50"), Move: dec("0.025"), RefundIllegalMoves: refund}),
	}
}

func (f *fixture) player(t *testing.T, credits string) Identity {
	t.Helper()
	acc, created, err := f.accounts.Provision(context.Background(), uuid.NewString()+"@example.com", dec(credits), models.RolePlayer)
	require.NoError(t, err)
	require.True(t, created)
	return Identity{AccountID: acc.ID, Role: acc.Role}
}

func (f *fixture) account(t *testing.T, id Identity) *models.Account {
	t.Helper()
	acc, err := f.accounts.Get(context.Background(), id.AccountID)
	require.NoError(t, err)
	return acc
}

func (f *fixture) session(t *testing.T, id string) *models.Session {
	t.Helper()
	var s models.Session
	require.NoError(t, f.db.First(&s, "id = ?", id).Error)
	return &s
}

func (f *fixture) moves(t *testing.T, sessionID string) []models.MoveRecord {
	t.Helper()
	moves, err := NewMoveLog(f.db).History(context.Background(), sessionID)
	require.NoError(t, err)
	return moves
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
