package engine

// GameState is the evaluation of a position for the side to move.
type GameState struct {
	InCheck    bool `json:"in_check"`
	Checkmated bool `json:"checkmated"`
	Stalemated bool `json:"stalemated"`
}

// LegalMoves returns pc's pseudo-legal destinations minus any that
// would leave its own general in check after the move is simulated.
func LegalMoves(pc Piece, b Board) []Pos {
	pseudo := PseudoMoves(pc, b)
	out := pseudo[:0]
	for _, to := range pseudo {
		if !IsInCheck(simulate(b, pc.ID, to), pc.Color) {
			out = append(out, to)
		}
	}
	return out
}

// simulate relocates the piece with the given id to `to`, removing any
// occupant of `to` first.
func simulate(b Board, pieceID string, to Pos) Board {
	next := make(Board, 0, len(b))
	for _, pc := range b {
		if pc.Pos == to && pc.ID != pieceID {
			continue
		}
		if pc.ID == pieceID {
			pc.Pos = to
		}
		next = append(next, pc)
	}
	return next
}

// EvaluateGameState computes {in-check, checkmated, stalemated} for the
// side to move by exhaustively enumerating every own piece's legal
// moves. This is deliberately brute force: the board is bounded and the
// evaluation runs once per half-move, never inside a search loop.
func EvaluateGameState(b Board, toMove Color) GameState {
	st := GameState{InCheck: IsInCheck(b, toMove)}

	hasMove := false
	for _, pc := range b {
		if pc.Color != toMove {
			continue
		}
		if len(LegalMoves(pc, b)) > 0 {
			hasMove = true
			break
		}
	}
	if !hasMove {
		if st.InCheck {
			st.Checkmated = true
		} else {
			st.Stalemated = true
		}
	}
	return st
}
