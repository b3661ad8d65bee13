// Package engine implements the Xiangqi rules engine: board model,
// per-piece move generation, check detection, and game-state
// evaluation. Everything here is pure value-in/value-out; no operation
// mutates a board it was given.
package engine

import (
	"fmt"
	"time"
)

// Color identifies a side.
type Color string

const (
	Red   Color = "red"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == Red {
		return Black
	}
	return Red
}

// PieceType is the closed set of Xiangqi piece kinds.
type PieceType string

const (
	General  PieceType = "general"
	Advisor  PieceType = "advisor"
	Elephant PieceType = "elephant"
	Horse    PieceType = "horse"
	Chariot  PieceType = "chariot"
	Cannon   PieceType = "cannon"
	Soldier  PieceType = "soldier"
)

// Pos is a board square. Files run 0-8 left to right, ranks 0-9 top to
// bottom: Black's back rank is 0, Red's back rank is 9.
type Pos struct {
	File int `json:"file"`
	Rank int `json:"rank"`
}

// String renders a square as file letter plus rank, e.g. "e9".
func (p Pos) String() string {
	return fmt.Sprintf("%c%d", 'a'+p.File, p.Rank)
}

// InBounds reports whether the square lies on the 9x10 board.
func InBounds(p Pos) bool {
	return p.File >= 0 && p.File <= 8 && p.Rank >= 0 && p.Rank <= 9
}

// inPalace reports whether p lies inside the 3x3 palace of the given
// side: files 3-5, ranks 7-9 for Red and 0-2 for Black.
func inPalace(p Pos, c Color) bool {
	if p.File < 3 || p.File > 5 {
		return false
	}
	if c == Red {
		return p.Rank >= 7 && p.Rank <= 9
	}
	return p.Rank >= 0 && p.Rank <= 2
}

// ownSideOfRiver reports whether p is on c's home side of the river.
// Elephants may never leave it.
func ownSideOfRiver(p Pos, c Color) bool {
	if c == Red {
		return p.Rank >= 5
	}
	return p.Rank <= 4
}

// crossedRiver reports whether a soldier of color c standing on p has
// crossed the river.
func crossedRiver(p Pos, c Color) bool {
	if c == Red {
		return p.Rank <= 4
	}
	return p.Rank >= 5
}

// forward is the rank delta that moves color c toward the opponent.
func forward(c Color) int {
	if c == Red {
		return -1
	}
	return 1
}

// Piece is one piece on the board. The ID is stable for the piece's
// lifetime; a piece is created at game start and removed only by
// capture.
type Piece struct {
	ID    string    `json:"id"`
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
	Pos   Pos       `json:"pos"`
}

// Board is a position snapshot: the set of live pieces. Boards are
// treated as immutable values; transformations return fresh slices.
type Board []Piece

// PieceAt returns the piece occupying p, if any.
func (b Board) PieceAt(p Pos) (Piece, bool) {
	for _, pc := range b {
		if pc.Pos == p {
			return pc, true
		}
	}
	return Piece{}, false
}

// ByID returns the piece with the given id, if it is still alive.
func (b Board) ByID(id string) (Piece, bool) {
	for _, pc := range b {
		if pc.ID == id {
			return pc, true
		}
	}
	return Piece{}, false
}

// General returns c's general, if still on the board.
func (b Board) General(c Color) (Piece, bool) {
	for _, pc := range b {
		if pc.Type == General && pc.Color == c {
			return pc, true
		}
	}
	return Piece{}, false
}

// Clone returns an independent copy of the snapshot.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	copy(out, b)
	return out
}

// Move is one half-move. Immutable once created; a session's history is
// an append-only sequence of these.
type Move struct {
	PieceID    string    `json:"piece_id"`
	From       Pos       `json:"from"`
	To         Pos       `json:"to"`
	CapturedID string    `json:"captured_id,omitempty"`
	At         time.Time `json:"at"`
	Notation   string    `json:"notation"`
}

// backRank lists the piece types of a back rank, files 0-8.
var backRank = []PieceType{Chariot, Horse, Elephant, Advisor, General, Advisor, Elephant, Horse, Chariot}

// InitialPieces returns the canonical 32-piece starting layout. Piece
// ids are stable across calls ("red-chariot-1", "black-soldier-5", ...).
func InitialPieces() Board {
	b := make(Board, 0, 32)
	add := func(c Color, t PieceType, n int, p Pos) {
		b = append(b, Piece{
			ID:    fmt.Sprintf("%s-%s-%d", c, t, n),
			Type:  t,
			Color: c,
			Pos:   p,
		})
	}
	for _, side := range []struct {
		color                Color
		back, cannons, pawns int
	}{
		{Black, 0, 2, 3},
		{Red, 9, 7, 6},
	} {
		counts := map[PieceType]int{}
		for file, t := range backRank {
			counts[t]++
			add(side.color, t, counts[t], Pos{File: file, Rank: side.back})
		}
		for i, file := range []int{1, 7} {
			add(side.color, Cannon, i+1, Pos{File: file, Rank: side.cannons})
		}
		for i, file := range []int{0, 2, 4, 6, 8} {
			add(side.color, Soldier, i+1, Pos{File: file, Rank: side.pawns})
		}
	}
	return b
}
