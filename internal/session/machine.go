package session

import (
	"time"

	"xiangqi-server/internal/engine"
)

// MoveRequest is a candidate half-move from a participant.
type MoveRequest struct {
	PlayerID string
	PieceID  string
	To       engine.Pos
	At       time.Time
}

// Advance validates req against s and returns the successor session.
// It is the pure transition of the state machine; s is never mutated.
//
// Order of checks: finished, participant, turn, piece ownership, piece
// movement rules, self-check. The self-check test runs against the
// post-move position even though LegalMoves-style filtering would catch
// it too — the caller may pass any move, not only one produced from a
// current snapshot.
func Advance(s *Session, req MoveRequest) (*Session, error) {
	if s.Status != StatusActive {
		return nil, ErrSessionFinished
	}
	color, ok := s.PlayerColor(req.PlayerID)
	if !ok {
		return nil, ErrNotParticipant
	}
	if color != s.Turn {
		return nil, ErrOutOfTurn
	}
	pc, ok := s.Pieces.ByID(req.PieceID)
	if !ok {
		return nil, ErrUnknownPiece
	}
	if pc.Color != color {
		return nil, ErrOutOfTurn
	}
	if !containsPos(engine.PseudoMoves(pc, s.Pieces), req.To) {
		return nil, ErrIllegalDestination
	}

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	mv, _ := engine.NewMove(s.Pieces, pc.ID, req.To, at)
	next := engine.ApplyMove(s.Pieces, mv)

	if engine.IsInCheck(next, color) {
		return nil, ErrSelfCheckRemaining
	}

	out := s.clone()
	out.Pieces = next
	out.Moves = append(out.Moves, mv)
	out.UpdatedAt = at
	out.DrawOfferBy = ""

	// A direct general capture is a stronger, simpler terminal signal
	// than checkmate; it bypasses the evaluator entirely.
	if _, alive := next.General(color.Opponent()); !alive {
		out.Status = StatusFinished
		out.Winner = string(color)
		out.Reason = ReasonCapture
		return out, nil
	}

	out.Turn = color.Opponent()
	st := engine.EvaluateGameState(next, out.Turn)
	switch {
	case st.Checkmated:
		out.Status = StatusFinished
		out.Winner = string(color)
		out.Reason = ReasonCheckmate
	case st.Stalemated:
		out.Status = StatusFinished
		out.Winner = WinnerDraw
		out.Reason = ReasonStalemate
	}
	return out, nil
}

// Resign finishes the session in the opponent's favor.
func Resign(s *Session, playerID string, at time.Time) (*Session, error) {
	if s.Status != StatusActive {
		return nil, ErrSessionFinished
	}
	color, ok := s.PlayerColor(playerID)
	if !ok {
		return nil, ErrNotParticipant
	}
	out := s.clone()
	out.Status = StatusFinished
	out.Winner = string(color.Opponent())
	out.Reason = ReasonResign
	out.DrawOfferBy = ""
	out.UpdatedAt = at
	return out, nil
}

// OfferDraw records a draw offer, or finishes the session when the
// opponent already has one pending. The boolean reports whether the
// session finished.
func OfferDraw(s *Session, playerID string, at time.Time) (*Session, bool, error) {
	if s.Status != StatusActive {
		return nil, false, ErrSessionFinished
	}
	if _, ok := s.PlayerColor(playerID); !ok {
		return nil, false, ErrNotParticipant
	}
	out := s.clone()
	out.UpdatedAt = at
	if s.DrawOfferBy != "" && s.DrawOfferBy != playerID {
		out.Status = StatusFinished
		out.Winner = WinnerDraw
		out.Reason = ReasonDrawAgreed
		out.DrawOfferBy = ""
		return out, true, nil
	}
	out.DrawOfferBy = playerID
	return out, false, nil
}

// Verify recomputes the replay of s.Moves and compares it against the
// stored snapshot. This is the server-authoritative check that a
// session read back from storage has not diverged.
func Verify(s *Session) error {
	if !engine.BoardsEqual(engine.Reconstruct(s.Moves), s.Pieces) {
		return ErrSnapshotDiverged
	}
	return nil
}

func containsPos(list []engine.Pos, p engine.Pos) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}
