package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NewMove builds the move record for relocating the piece with pieceID
// to `to` on board b, resolving the capture target and display
// notation. It performs no legality checking. The second return is
// false when the piece is not on the board.
func NewMove(b Board, pieceID string, to Pos, at time.Time) (Move, bool) {
	pc, ok := b.ByID(pieceID)
	if !ok {
		return Move{}, false
	}
	mv := Move{
		PieceID:  pc.ID,
		From:     pc.Pos,
		To:       to,
		At:       at,
		Notation: fmt.Sprintf("%s %s %s-%s", pc.Color, pc.Type, pc.Pos, to),
	}
	if occ, ok := b.PieceAt(to); ok && occ.ID != pc.ID {
		mv.CapturedID = occ.ID
	}
	return mv, true
}

// ApplyMove is the mechanical state transformer: remove the captured
// piece if any, relocate the mover. It is pure, deterministic, and does
// no legality checking, which makes it usable both for validated
// submissions and for history replay.
func ApplyMove(b Board, mv Move) Board {
	out := make(Board, 0, len(b))
	for _, pc := range b {
		if mv.CapturedID != "" && pc.ID == mv.CapturedID {
			continue
		}
		if pc.ID == mv.PieceID {
			pc.Pos = mv.To
		}
		out = append(out, pc)
	}
	return out
}

// Reconstruct replays the full move list from the canonical initial
// layout.
func Reconstruct(moves []Move) Board {
	return ReconstructAt(moves, len(moves))
}

// ReconstructAt replays the first `ply` moves from the canonical
// initial layout, recovering the position at any point of the game
// without per-ply snapshots. A ply outside [0, len(moves)] is clamped.
func ReconstructAt(moves []Move, ply int) Board {
	if ply < 0 {
		ply = 0
	}
	if ply > len(moves) {
		ply = len(moves)
	}
	b := InitialPieces()
	for _, mv := range moves[:ply] {
		b = ApplyMove(b, mv)
	}
	return b
}

// BoardsEqual compares two snapshots as sets of (id, type, color, pos).
func BoardsEqual(a, b Board) bool {
	if len(a) != len(b) {
		return false
	}
	byID := make(map[string]Piece, len(b))
	for _, pc := range b {
		byID[pc.ID] = pc
	}
	for _, pc := range a {
		other, ok := byID[pc.ID]
		if !ok || other != pc {
			return false
		}
	}
	return true
}

// Describe renders a read-only textual position description for the
// advisory collaborator: one line per live piece plus the most recent
// move's notation. The engine takes no dependency in the other
// direction.
func Describe(b Board, last *Move) string {
	pieces := b.Clone()
	sort.Slice(pieces, func(i, j int) bool {
		if pieces[i].Color != pieces[j].Color {
			return pieces[i].Color == Red
		}
		return pieces[i].ID < pieces[j].ID
	})

	var sb strings.Builder
	for _, pc := range pieces {
		fmt.Fprintf(&sb, "%s %s at %s\n", pc.Color, pc.Type, pc.Pos)
	}
	if last != nil {
		fmt.Fprintf(&sb, "last move: %s\n", last.Notation)
	}
	return sb.String()
}
