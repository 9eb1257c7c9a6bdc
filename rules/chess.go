// rules/chess.go
package rules

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/notnil/chess"
)

// StandardFEN is the usual starting position.
const StandardFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Handle is a live board reconstructed from a snapshot.
type Handle struct {
	game  *chess.Game
	start string
	moves []string
}

// Moves returns the plies applied since the start position, in UCI form.
func (h *Handle) Moves() []string {
	out := make([]string, len(h.moves))
	copy(out, h.moves)
	return out
}

// snapshot is the persisted form of a Handle. The move list is authoritative,
// fen and the flags are kept for readers of the raw row.
type snapshot struct {
	Start     string   `json:"start"`
	Moves     []string `json:"moves"`
	FEN       string   `json:"fen"`
	Turn      Side     `json:"turn"`
	Check     bool     `json:"check"`
	Checkmate bool     `json:"checkmate"`
	Finished  bool     `json:"finished"`
	Outcome   string   `json:"outcome"`
}

// ChessOracle implements Oracle on top of github.com/notnil/chess.
type ChessOracle struct {
	start string

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*ChessOracle)

// WithStartFEN makes NewGame begin from the given position.
func WithStartFEN(fen string) Option {
	return func(o *ChessOracle) { o.start = fen }
}

// WithSeed makes the easy level's move choice reproducible.
func WithSeed(seed uint64) Option {
	return func(o *ChessOracle) { o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func NewChessOracle(opts ...Option) (*ChessOracle, error) {
	o := &ChessOracle{
		start: StandardFEN,
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, opt := range opts {
		opt(o)
	}
	if _, err := chess.FEN(o.start); err != nil {
		return nil, fmt.Errorf("invalid start position: %w", err)
	}
	return o, nil
}

func (o *ChessOracle) NewGame() (*Handle, error) {
	g, err := gameFrom(o.start)
	if err != nil {
		return nil, err
	}
	return &Handle{game: g, start: o.start}, nil
}

func (o *ChessOracle) Load(blob string) (*Handle, error) {
	var s snapshot
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if s.Start == "" {
		return nil, fmt.Errorf("%w: missing start position", ErrCorruptState)
	}
	g, err := gameFrom(s.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if s.Turn != "" && !s.Turn.Valid() {
		return nil, fmt.Errorf("%w: bad side to move %q", ErrCorruptState, s.Turn)
	}
	h := &Handle{game: g, start: s.Start}
	for i, uci := range s.Moves {
		m, err := uciNotation.Decode(g.Position(), uci)
		if err != nil {
			return nil, fmt.Errorf("%w: move %d: %v", ErrCorruptState, i+1, err)
		}
		if err := g.Move(m); err != nil {
			return nil, fmt.Errorf("%w: move %d (%s) not playable", ErrCorruptState, i+1, uci)
		}
		h.moves = append(h.moves, uci)
	}
	if s.FEN != "" && s.FEN != g.FEN() {
		return nil, fmt.Errorf("%w: position mismatch", ErrCorruptState)
	}
	return h, nil
}

// ApplyMove plays p for the side to move. A missing promotion piece defaults to a queen.
// The handle is untouched on error.
func (o *ChessOracle) ApplyMove(h *Handle, p Ply) (Ply, error) {
	from, to := strings.TrimSpace(p.From), strings.TrimSpace(p.To)
	promo := strings.TrimSpace(p.Promotion)
	if len(from) != 2 || len(to) != 2 || len(promo) > 1 {
		return Ply{}, fmt.Errorf("%w: bad move %q -> %q", ErrIllegalMove, p.From, p.To)
	}
	uci := strings.ToLower(from + to + promo)
	if h.game.Outcome() != chess.NoOutcome {
		return Ply{}, fmt.Errorf("%w: game is over", ErrIllegalMove)
	}

	pos := h.game.Position()
	m, err := uciNotation.Decode(pos, uci)
	if err != nil {
		return Ply{}, fmt.Errorf("%w: %q", ErrIllegalMove, uci)
	}
	if err := h.game.Move(m); err != nil {
		if len(uci) != 4 {
			return Ply{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
		}
		// bare pawn move to the last rank
		q, qerr := uciNotation.Decode(pos, uci+"q")
		if qerr != nil || h.game.Move(q) != nil {
			return Ply{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
		}
		m = q
	}

	played := uciNotation.Encode(pos, m)
	h.moves = append(h.moves, played)
	return plyFromUCI(played), nil
}

func (o *ChessOracle) ComputeReply(h *Handle, level Level) (Ply, error) {
	if h.game.Outcome() != chess.NoOutcome {
		return Ply{}, ErrNoReply
	}
	pos := h.game.Position()
	moves := pos.ValidMoves()
	if len(moves) == 0 {
		return Ply{}, ErrNoReply
	}

	var m *chess.Move
	switch level {
	case LevelHard:
		m = bestTwoPly(pos, moves)
	case LevelMedium:
		m = bestOnePly(pos, moves)
	default:
		o.mu.Lock()
		m = moves[o.rng.IntN(len(moves))]
		o.mu.Unlock()
	}

	if err := h.game.Move(m); err != nil {
		return Ply{}, fmt.Errorf("engine move rejected: %w", err)
	}
	played := uciNotation.Encode(pos, m)
	h.moves = append(h.moves, played)
	return plyFromUCI(played), nil
}

func (o *ChessOracle) Snapshot(h *Handle) (State, error) {
	pos := h.game.Position()
	turn := sideOf(pos.Turn())

	method := h.game.Method()
	if method == chess.NoMethod {
		method = pos.Status()
	}
	checkmate := method == chess.Checkmate
	terminal := h.game.Outcome() != chess.NoOutcome || method != chess.NoMethod

	inCheck := checkmate || kingAttacked(pos)

	st := State{
		SideToMove:  turn,
		InCheck:     inCheck,
		IsTerminal:  terminal,
		IsCheckmate: checkmate,
		Method:      methodName(method),
	}
	if checkmate {
		st.Winner = turn.Opponent()
	}

	outcome := string(h.game.Outcome())
	if checkmate && outcome == string(chess.NoOutcome) {
		if st.Winner == White {
			outcome = string(chess.WhiteWon)
		} else {
			outcome = string(chess.BlackWon)
		}
	}

	blob, err := json.Marshal(snapshot{
		Start:     h.start,
		Moves:     h.Moves(),
		FEN:       h.game.FEN(),
		Turn:      turn,
		Check:     inCheck,
		Checkmate: checkmate,
		Finished:  terminal,
		Outcome:   outcome,
	})
	if err != nil {
		return State{}, fmt.Errorf("encode snapshot: %w", err)
	}
	st.Serialized = string(blob)
	return st, nil
}

// PGN renders a stored snapshot as PGN with the given header tags.
func (o *ChessOracle) PGN(blob string, tags map[string]string) (string, error) {
	h, err := o.Load(blob)
	if err != nil {
		return "", err
	}
	if h.start != StandardFEN {
		h.game.AddTagPair("SetUp", "1")
		h.game.AddTagPair("FEN", h.start)
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.game.AddTagPair(k, tags[k])
	}
	return h.game.String(), nil
}

func gameFrom(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return chess.NewGame(opt), nil
}

var uciNotation = chess.UCINotation{}

func plyFromUCI(uci string) Ply {
	return Ply{From: uci[0:2], To: uci[2:4], Promotion: uci[4:]}
}

func sideOf(c chess.Color) Side {
	if c == chess.Black {
		return Black
	}
	return White
}

func methodName(m chess.Method) string {
	switch m {
	case chess.Checkmate:
		return "Checkmate"
	case chess.Resignation:
		return "Resignation"
	case chess.DrawOffer:
		return "DrawOffer"
	case chess.Stalemate:
		return "Stalemate"
	case chess.ThreefoldRepetition:
		return "ThreefoldRepetition"
	case chess.FivefoldRepetition:
		return "FivefoldRepetition"
	case chess.FiftyMoveRule:
		return "FiftyMoveRule"
	case chess.SeventyFiveMoveRule:
		return "SeventyFiveMoveRule"
	case chess.InsufficientMaterial:
		return "InsufficientMaterial"
	}
	return ""
}
