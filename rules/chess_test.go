package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	backRankMate = "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"
	engineMates  = "1r4k1/8/8/8/8/8/P5PP/7K w - - 0 1"
	promotion    = "8/P7/8/8/8/8/8/k6K w - - 0 1"
)

func newOracle(t *testing.T, opts ...Option) *ChessOracle {
	t.Helper()
	o, err := NewChessOracle(append([]Option{WithSeed(7)}, opts...)...)
	require.NoError(t, err)
	return o
}

func TestNewGameStartsWithWhite(t *testing.T) {
	o := newOracle(t)
	h, err := o.NewGame()
	require.NoError(t, err)

	st, err := o.Snapshot(h)
	require.NoError(t, err)
	assert.Equal(t, White, st.SideToMove)
	assert.False(t, st.InCheck)
	assert.False(t, st.IsTerminal)
	assert.False(t, st.IsCheckmate)
	assert.Empty(t, st.Method)
}

func TestApplyMove(t *testing.T) {
	o := newOracle(t)
	h, err := o.NewGame()
	require.NoError(t, err)

	ply, err := o.ApplyMove(h, Ply{From: "E2", To: "e4"})
	require.NoError(t, err)
	assert.Equal(t, Ply{From: "e2", To: "e4"}, ply)

	st, err := o.Snapshot(h)
	require.NoError(t, err)
	assert.Equal(t, Black, st.SideToMove)
	assert.Equal(t, []string{"e2e4"}, h.Moves())
}

func TestApplyMoveRejectsIllegalAndKeepsState(t *testing.T) {
	o := newOracle(t)
	h, err := o.NewGame()
	require.NoError(t, err)
	before, err := o.Snapshot(h)
	require.NoError(t, err)

	for _, p := range []Ply{
		{From: "e2", To: "e5"},
		{From: "e7", To: "e5"},
		{From: "z9", To: "e4"},
		{From: "e2", To: "e4", Promotion: "k"},
		{From: "e2", To: "e4", Promotion: "q"},
		{From: "e3", To: "e4"},
		{From: "e2e", To: "4"},
	} {
		_, err := o.ApplyMove(h, p)
		assert.ErrorIs(t, err, ErrIllegalMove, "%+v", p)
	}

	after, err := o.Snapshot(h)
	require.NoError(t, err)
	assert.Equal(t, before.Serialized, after.Serialized)
}

func TestSnapshotRoundTrip(t *testing.T) {
	o := newOracle(t)
	h, err := o.NewGame()
	require.NoError(t, err)
	for _, p := range []Ply{{From: "e2", To: "e4"}, {From: "f7", To: "f6"}, {From: "d1", To: "h5"}} {
		_, err := o.ApplyMove(h, p)
		require.NoError(t, err)
	}
	first, err := o.Snapshot(h)
	require.NoError(t, err)
	require.True(t, first.InCheck)

	reloaded, err := o.Load(first.Serialized)
	require.NoError(t, err)
	second, err := o.Snapshot(reloaded)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadCorruptState(t *testing.T) {
	o := newOracle(t)
	blobs := map[string]string{
		"not json":       "{{",
		"no start":       `{"moves":[]}`,
		"bad fen":        `{"start":"garbage","moves":[]}`,
		"illegal replay": `{"start":"` + StandardFEN + `","moves":["e2e5"]}`,
		"bad move text":  `{"start":"` + StandardFEN + `","moves":["e2"]}`,
		"fen mismatch":   `{"start":"` + StandardFEN + `","moves":["e2e4"],"fen":"` + StandardFEN + `"}`,
		"bad turn":       `{"start":"` + StandardFEN + `","moves":[],"turn":"red"}`,
	}
	for name, blob := range blobs {
		t.Run(name, func(t *testing.T) {
			_, err := o.Load(blob)
			assert.ErrorIs(t, err, ErrCorruptState)
		})
	}
}

func TestCheckmateDetected(t *testing.T) {
	o := newOracle(t, WithStartFEN(backRankMate))
	h, err := o.NewGame()
	require.NoError(t, err)

	_, err = o.ApplyMove(h, Ply{From: "a1", To: "a8"})
	require.NoError(t, err)

	st, err := o.Snapshot(h)
	require.NoError(t, err)
	assert.True(t, st.IsCheckmate)
	assert.True(t, st.IsTerminal)
	assert.True(t, st.InCheck)
	assert.Equal(t, White, st.Winner)
	assert.Equal(t, "Checkmate", st.Method)

	_, err = o.ComputeReply(h, LevelHard)
	assert.ErrorIs(t, err, ErrNoReply)
}

func TestHardLevelFindsMate(t *testing.T) {
	o := newOracle(t, WithStartFEN(engineMates))
	h, err := o.NewGame()
	require.NoError(t, err)
	_, err = o.ApplyMove(h, Ply{From: "a2", To: "a3"})
	require.NoError(t, err)

	reply, err := o.ComputeReply(h, LevelHard)
	require.NoError(t, err)
	assert.Equal(t, Ply{From: "b8", To: "b1"}, reply)

	st, err := o.Snapshot(h)
	require.NoError(t, err)
	assert.True(t, st.IsCheckmate)
	assert.Equal(t, Black, st.Winner)
}

func TestMediumLevelTakesMaterial(t *testing.T) {
	// black queen on d5 can take the undefended rook on d1
	o := newOracle(t, WithStartFEN("7k/8/8/3q4/8/8/P6K/3R4 w - - 0 1"))
	h, err := o.NewGame()
	require.NoError(t, err)
	_, err = o.ApplyMove(h, Ply{From: "a2", To: "a3"})
	require.NoError(t, err)

	reply, err := o.ComputeReply(h, LevelMedium)
	require.NoError(t, err)
	assert.Equal(t, Ply{From: "d5", To: "d1"}, reply)
}

func TestEasyLevelPlaysLegalMove(t *testing.T) {
	o := newOracle(t)
	h, err := o.NewGame()
	require.NoError(t, err)
	_, err = o.ApplyMove(h, Ply{From: "d2", To: "d4"})
	require.NoError(t, err)

	_, err = o.ComputeReply(h, LevelEasy)
	require.NoError(t, err)

	st, err := o.Snapshot(h)
	require.NoError(t, err)
	assert.Equal(t, White, st.SideToMove)
	assert.Len(t, h.Moves(), 2)
}

func TestPromotion(t *testing.T) {
	o := newOracle(t, WithStartFEN(promotion))

	h, err := o.NewGame()
	require.NoError(t, err)
	ply, err := o.ApplyMove(h, Ply{From: "a7", To: "a8"})
	require.NoError(t, err)
	assert.Equal(t, "q", ply.Promotion)

	h, err = o.NewGame()
	require.NoError(t, err)
	ply, err = o.ApplyMove(h, Ply{From: "a7", To: "a8", Promotion: "N"})
	require.NoError(t, err)
	assert.Equal(t, "n", ply.Promotion)
	assert.Equal(t, []string{"a7a8n"}, h.Moves())
}

func TestPGN(t *testing.T) {
	o := newOracle(t)
	h, err := o.NewGame()
	require.NoError(t, err)
	_, err = o.ApplyMove(h, Ply{From: "e2", To: "e4"})
	require.NoError(t, err)
	st, err := o.Snapshot(h)
	require.NoError(t, err)

	pgn, err := o.PGN(st.Serialized, map[string]string{"Event": "session-1"})
	require.NoError(t, err)
	assert.Contains(t, pgn, `[Event "session-1"]`)
	assert.Contains(t, pgn, "e4")
}

func TestInvalidStartPosition(t *testing.T) {
	_, err := NewChessOracle(WithStartFEN("nope"))
	assert.Error(t, err)
}

func TestStartPositionInCheck(t *testing.T) {
	o := newOracle(t, WithStartFEN("4k3/8/8/8/8/8/8/4K2r w - - 0 1"))
	h, err := o.NewGame()
	require.NoError(t, err)

	st, err := o.Snapshot(h)
	require.NoError(t, err)
	assert.True(t, st.InCheck)
	assert.False(t, st.IsTerminal)

	_, err = o.ApplyMove(h, Ply{From: "e1", To: "f1"})
	assert.ErrorIs(t, err, ErrIllegalMove)
	_, err = o.ApplyMove(h, Ply{From: "e1", To: "e2"})
	require.NoError(t, err)
	st, err = o.Snapshot(h)
	require.NoError(t, err)
	assert.False(t, st.InCheck)
}

func TestKingAttacked(t *testing.T) {
	cases := map[string]struct {
		fen  string
		want bool
	}{
		"quiet":         {StandardFEN, false},
		"pawn":          {"4k3/8/8/8/8/8/3p4/4K3 w - - 0 1", true},
		"pawn ahead":    {"4k3/8/8/8/8/3p4/8/4K3 w - - 0 1", false},
		"knight":        {"4k3/8/8/8/8/5n2/8/4K3 w - - 0 1", true},
		"bishop":        {"4k3/8/8/b7/8/8/8/4K3 w - - 0 1", true},
		"blocked rook":  {"4k3/8/8/8/8/8/8/r2NK3 w - - 0 1", false},
		"black on file": {"4k3/8/8/8/8/8/8/4R2K b - - 0 1", true},
		"own rook":      {"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			g, err := gameFrom(tc.fen)
			require.NoError(t, err)
			assert.Equal(t, tc.want, kingAttacked(g.Position()))
		})
	}
}
