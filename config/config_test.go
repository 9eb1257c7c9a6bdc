package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseVars() map[string]string {
	return map[string]string{
		"DATABASE_URL":       "postgres://localhost/game",
		"GAME_SERVICE_TOKEN": "secret",
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromMap(baseVars())
	require.NoError(t, err)

	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, AuthModeGateway, cfg.AuthMode)
	assert.Equal(t, "0.5", cfg.SessionStartFee.String())
	assert.Equal(t, "0.025", cfg.MoveFee.String())
	assert.Equal(t, "1", cfg.WinAward.String())
	assert.Equal(t, "0.5", cfg.AbandonPenalty.String())
	assert.False(t, cfg.RefundIllegalMoves)
	assert.Equal(t, 24*time.Hour, cfg.AbandonAfter)
	assert.Equal(t, 5*time.Minute, cfg.AbandonSweepInterval)
	assert.Equal(t, 10*time.Minute, cfg.Archive.Interval)
	assert.False(t, cfg.Archive.Enabled())
}

func TestOverrides(t *testing.T) {
	vars := baseVars()
	vars["ALLOWED_ORIGINS"] = "https://a.example, https://b.example"
	vars["MOVE_FEE"] = "0.1"
	vars["REFUND_ILLEGAL_MOVES"] = "true"
	vars["R2_BUCKET_NAME"] = "games"

	cfg, err := FromMap(vars)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "0.1", cfg.MoveFee.String())
	assert.True(t, cfg.RefundIllegalMoves)
	assert.True(t, cfg.Archive.Enabled())
}

func TestValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database":      {"GAME_SERVICE_TOKEN": "x"},
		"gateway without token": {"DATABASE_URL": "x"},
		"jwt without secret":    {"DATABASE_URL": "x", "AUTH_MODE": "jwt"},
		"unknown auth mode":     {"DATABASE_URL": "x", "AUTH_MODE": "basic"},
		"zero move fee":         {"DATABASE_URL": "x", "GAME_SERVICE_TOKEN": "x", "MOVE_FEE": "0"},
		"negative award":        {"DATABASE_URL": "x", "GAME_SERVICE_TOKEN": "x", "WIN_AWARD": "-1"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromMap(vars)
			assert.Error(t, err)
		})
	}
}

func TestJWTMode(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"DATABASE_URL": "x",
		"AUTH_MODE":    "JWT",
		"JWT_SECRET":   "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
}

func TestBadDecimal(t *testing.T) {
	vars := baseVars()
	vars["SESSION_START_FEE"] = "half"
	_, err := FromMap(vars)
	assert.Error(t, err)
}
