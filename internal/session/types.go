// Package session owns a game's lifecycle: the active→finished state
// machine, the Redis-backed store it lives in, and the Postgres archive
// of finished games.
package session

import (
	"errors"
	"time"

	"xiangqi-server/internal/engine"
)

// Status is a session lifecycle state. FINISHED is terminal.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// Reason records why a session finished.
type Reason string

const (
	ReasonCapture    Reason = "capture"
	ReasonCheckmate  Reason = "checkmate"
	ReasonStalemate  Reason = "stalemate"
	ReasonDrawAgreed Reason = "draw-agreed"
	ReasonResign     Reason = "resign"
)

// WinnerDraw is the winner value for drawn sessions; otherwise the
// winner is "red" or "black".
const WinnerDraw = "draw"

// Rejection signals. All are synchronous and recoverable; none change
// session state.
var (
	ErrSessionFinished    = errors.New("session already finished")
	ErrNotParticipant     = errors.New("player is not a session participant")
	ErrOutOfTurn          = errors.New("move submitted out of turn")
	ErrUnknownPiece       = errors.New("piece not found in session")
	ErrIllegalDestination = errors.New("destination not reachable by this piece")
	ErrSelfCheckRemaining = errors.New("move would leave own general in check")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSnapshotDiverged   = errors.New("piece snapshot does not match move history")
	ErrConcurrentUpdate   = errors.New("session modified concurrently, retry")
)

// Session is the persisted state of one game. The invariant the whole
// design hangs on: Pieces is always exactly the replay of Moves from
// the initial layout.
type Session struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Status Status `json:"status"`
	Winner string `json:"winner,omitempty"`
	Reason Reason `json:"reason,omitempty"`

	Pieces engine.Board  `json:"pieces"`
	Turn   engine.Color  `json:"turn"`
	Moves  []engine.Move `json:"moves"`

	RedID     string `json:"red_id"`
	RedName   string `json:"red_name,omitempty"`
	BlackID   string `json:"black_id"`
	BlackName string `json:"black_name,omitempty"`

	DrawOfferBy string `json:"draw_offer_by,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayerColor resolves a participant id to a side.
func (s *Session) PlayerColor(playerID string) (engine.Color, bool) {
	switch playerID {
	case "":
		return "", false
	case s.RedID:
		return engine.Red, true
	case s.BlackID:
		return engine.Black, true
	}
	return "", false
}

// LastMove returns the most recent move, if any.
func (s *Session) LastMove() *engine.Move {
	if len(s.Moves) == 0 {
		return nil
	}
	return &s.Moves[len(s.Moves)-1]
}

// clone returns a deep-enough copy for a new transition result: the
// slices are fresh, the immutable move values are shared.
func (s *Session) clone() *Session {
	out := *s
	out.Pieces = s.Pieces.Clone()
	out.Moves = append([]engine.Move(nil), s.Moves...)
	return &out
}
