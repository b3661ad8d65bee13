package engine

// orthogonal step deltas, shared by general, chariot, cannon, and the
// horse-leg scan.
var orthoDeltas = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// diagonal step deltas, shared by advisor and elephant.
var diagDeltas = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

// horseReach maps each orthogonal leg direction to the two destinations
// it unlocks. The leg square, not the destination, is what blocks.
var horseReach = map[[2]int][2][2]int{
	{1, 0}:  {{2, 1}, {2, -1}},
	{-1, 0}: {{-2, 1}, {-2, -1}},
	{0, 1}:  {{1, 2}, {-1, 2}},
	{0, -1}: {{1, -2}, {-1, -2}},
}

// PseudoMoves returns the squares pc may pseudo-legally occupy next:
// piece-movement rules are enforced (palace, river, eye, leg, screen)
// but leaving one's own general in check is not considered. Candidates
// whose resulting position would put the two generals in an
// unobstructed face-off are excluded here; that rule makes the
// position itself illegal regardless of whose turn it is.
func PseudoMoves(pc Piece, b Board) []Pos {
	var raw []Pos
	switch pc.Type {
	case General:
		raw = stepMoves(pc, b, orthoDeltas[:], func(to Pos) bool {
			return inPalace(to, pc.Color)
		})
	case Advisor:
		raw = stepMoves(pc, b, diagDeltas[:], func(to Pos) bool {
			return inPalace(to, pc.Color)
		})
	case Elephant:
		raw = elephantMoves(pc, b)
	case Horse:
		raw = horseMoves(pc, b)
	case Chariot:
		raw = chariotMoves(pc, b)
	case Cannon:
		raw = cannonMoves(pc, b)
	case Soldier:
		raw = soldierMoves(pc, b)
	}

	out := raw[:0]
	for _, to := range raw {
		if !createsFaceOff(b, pc, to) {
			out = append(out, to)
		}
	}
	return out
}

// stepMoves generates single-step destinations for the given deltas,
// subject to an extra placement constraint.
func stepMoves(pc Piece, b Board, deltas [][2]int, allowed func(Pos) bool) []Pos {
	var out []Pos
	for _, d := range deltas {
		to := Pos{File: pc.Pos.File + d[0], Rank: pc.Pos.Rank + d[1]}
		if !InBounds(to) || !allowed(to) {
			continue
		}
		if occ, ok := b.PieceAt(to); ok && occ.Color == pc.Color {
			continue
		}
		out = append(out, to)
	}
	return out
}

func elephantMoves(pc Piece, b Board) []Pos {
	var out []Pos
	for _, d := range diagDeltas {
		eye := Pos{File: pc.Pos.File + d[0], Rank: pc.Pos.Rank + d[1]}
		to := Pos{File: pc.Pos.File + 2*d[0], Rank: pc.Pos.Rank + 2*d[1]}
		if !InBounds(to) || !ownSideOfRiver(to, pc.Color) {
			continue
		}
		// The eye blocks regardless of its occupant's color.
		if _, ok := b.PieceAt(eye); ok {
			continue
		}
		if occ, ok := b.PieceAt(to); ok && occ.Color == pc.Color {
			continue
		}
		out = append(out, to)
	}
	return out
}

func horseMoves(pc Piece, b Board) []Pos {
	var out []Pos
	for _, d := range orthoDeltas {
		leg := Pos{File: pc.Pos.File + d[0], Rank: pc.Pos.Rank + d[1]}
		if _, ok := b.PieceAt(leg); ok {
			continue
		}
		for _, r := range horseReach[d] {
			to := Pos{File: pc.Pos.File + r[0], Rank: pc.Pos.Rank + r[1]}
			if !InBounds(to) {
				continue
			}
			if occ, ok := b.PieceAt(to); ok && occ.Color == pc.Color {
				continue
			}
			out = append(out, to)
		}
	}
	return out
}

func chariotMoves(pc Piece, b Board) []Pos {
	var out []Pos
	for _, d := range orthoDeltas {
		to := Pos{File: pc.Pos.File + d[0], Rank: pc.Pos.Rank + d[1]}
		for InBounds(to) {
			occ, ok := b.PieceAt(to)
			if !ok {
				out = append(out, to)
				to = Pos{File: to.File + d[0], Rank: to.Rank + d[1]}
				continue
			}
			if occ.Color != pc.Color {
				out = append(out, to)
			}
			break
		}
	}
	return out
}

func cannonMoves(pc Piece, b Board) []Pos {
	var out []Pos
	for _, d := range orthoDeltas {
		to := Pos{File: pc.Pos.File + d[0], Rank: pc.Pos.Rank + d[1]}
		// Quiet slides up to the screen.
		for InBounds(to) {
			if _, ok := b.PieceAt(to); ok {
				break
			}
			out = append(out, to)
			to = Pos{File: to.File + d[0], Rank: to.Rank + d[1]}
		}
		// Past exactly one screen, the next occupied square is a
		// capture target.
		to = Pos{File: to.File + d[0], Rank: to.Rank + d[1]}
		for InBounds(to) {
			occ, ok := b.PieceAt(to)
			if !ok {
				to = Pos{File: to.File + d[0], Rank: to.Rank + d[1]}
				continue
			}
			if occ.Color != pc.Color {
				out = append(out, to)
			}
			break
		}
	}
	return out
}

func soldierMoves(pc Piece, b Board) []Pos {
	deltas := [][2]int{{0, forward(pc.Color)}}
	if crossedRiver(pc.Pos, pc.Color) {
		deltas = append(deltas, [2]int{1, 0}, [2]int{-1, 0})
	}
	return stepMoves(pc, b, deltas, func(Pos) bool { return true })
}

// createsFaceOff simulates moving pc to `to` (capturing any occupant)
// and reports whether the two generals would then face each other on an
// open file.
func createsFaceOff(b Board, pc Piece, to Pos) bool {
	next := make(Board, 0, len(b))
	for _, other := range b {
		if other.Pos == to && other.ID != pc.ID {
			continue
		}
		if other.ID == pc.ID {
			other.Pos = to
		}
		next = append(next, other)
	}
	return generalsFacing(next)
}

// generalsFacing reports whether both generals share a file with no
// piece on any rank strictly between them.
func generalsFacing(b Board) bool {
	red, okR := b.General(Red)
	black, okB := b.General(Black)
	if !okR || !okB || red.Pos.File != black.Pos.File {
		return false
	}
	return fileClearBetween(b, red.Pos.File, black.Pos.Rank, red.Pos.Rank)
}

// fileClearBetween reports whether no piece occupies (file, r) for any
// r strictly between lo and hi.
func fileClearBetween(b Board, file, lo, hi int) bool {
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, pc := range b {
		if pc.Pos.File == file && pc.Pos.Rank > lo && pc.Pos.Rank < hi {
			return false
		}
	}
	return true
}
