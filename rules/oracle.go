// rules/oracle.go
package rules

import "errors"

var (
	// ErrIllegalMove is returned when a move is not legal for the side to move.
	ErrIllegalMove = errors.New("illegal move")
	// ErrCorruptState is returned when a stored snapshot cannot be reconstructed.
	ErrCorruptState = errors.New("corrupt board state")
	// ErrNoReply is returned when the engine is asked to move in a finished position.
	ErrNoReply = errors.New("no legal reply")
)

type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Valid() bool {
	return s == White || s == Black
}

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// Ply is one half-move in coordinate form ("e2" -> "e4", promotion "q").
type Ply struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// State is the exported board plus flags derived from it.
type State struct {
	Serialized  string
	SideToMove  Side
	InCheck     bool
	IsTerminal  bool
	IsCheckmate bool
	// Winner is set only on checkmate.
	Winner Side
	// Method names how the game ended ("Checkmate", "Stalemate", ...), empty while in progress.
	Method string
}

// Oracle is the narrow capability the session engine needs from a rules engine.
// Handles are not safe for concurrent use.
type Oracle interface {
	NewGame() (*Handle, error)
	Load(snapshot string) (*Handle, error)
	ApplyMove(h *Handle, p Ply) (Ply, error)
	ComputeReply(h *Handle, level Level) (Ply, error)
	Snapshot(h *Handle) (State, error)
	PGN(snapshot string, tags map[string]string) (string, error)
}
