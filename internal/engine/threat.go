package engine

// IsSquareThreatened reports whether any piece of the side opposing
// `defender` pseudo-legally reaches sq. The opposing general
// contributes twice: through its one-step move set and through the
// flying-general face-off, which is a threat along the whole open file
// even though the general itself only steps one square.
func IsSquareThreatened(b Board, sq Pos, defender Color) bool {
	for _, pc := range b {
		if pc.Color == defender {
			continue
		}
		if pc.Type == General && pc.Pos.File == sq.File &&
			fileClearBetween(b, sq.File, pc.Pos.Rank, sq.Rank) {
			return true
		}
		for _, to := range PseudoMoves(pc, b) {
			if to == sq {
				return true
			}
		}
	}
	return false
}

// IsInCheck reports whether color's general is under attack. A missing
// general is reported as in check: that position is already lost, and a
// total answer keeps the engine safe against whatever snapshot the
// store hands it.
func IsInCheck(b Board, color Color) bool {
	g, ok := b.General(color)
	if !ok {
		return true
	}
	if generalsFacing(b) {
		return true
	}
	return IsSquareThreatened(b, g.Pos, color)
}
