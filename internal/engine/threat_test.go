package engine

import "testing"

func TestFaceOffIsCheck(t *testing.T) {
	b := Board{
		{ID: "rg", Type: General, Color: Red, Pos: Pos{File: 4, Rank: 9}},
		{ID: "bg", Type: General, Color: Black, Pos: Pos{File: 4, Rank: 0}},
	}
	if !IsInCheck(b, Red) || !IsInCheck(b, Black) {
		t.Fatal("open-file face-off must register as check for both sides")
	}

	blocked := append(b.Clone(), Piece{ID: "x", Type: Soldier, Color: Red, Pos: Pos{File: 4, Rank: 5}})
	if IsInCheck(blocked, Red) || IsInCheck(blocked, Black) {
		t.Fatal("a piece between the generals must block the face-off")
	}
}

func TestChariotCheck(t *testing.T) {
	b := Board{
		{ID: "rg", Type: General, Color: Red, Pos: Pos{File: 4, Rank: 9}},
		{ID: "bg", Type: General, Color: Black, Pos: Pos{File: 4, Rank: 0}},
		{ID: "br", Type: Chariot, Color: Black, Pos: Pos{File: 4, Rank: 5}},
	}
	if !IsInCheck(b, Red) {
		t.Fatal("chariot on the general's file with a clear path must be check")
	}
	if IsInCheck(b, Black) {
		t.Fatal("black is not in check: its own chariot blocks the face-off")
	}
}

func TestCannonCheckNeedsScreen(t *testing.T) {
	b := Board{
		{ID: "rg", Type: General, Color: Red, Pos: Pos{File: 4, Rank: 9}},
		{ID: "bg", Type: General, Color: Black, Pos: Pos{File: 3, Rank: 0}},
		{ID: "bc", Type: Cannon, Color: Black, Pos: Pos{File: 4, Rank: 2}},
	}
	if IsInCheck(b, Red) {
		t.Fatal("cannon without a screen cannot give check")
	}
	screened := append(b.Clone(), Piece{ID: "s", Type: Soldier, Color: Black, Pos: Pos{File: 4, Rank: 5}})
	if !IsInCheck(screened, Red) {
		t.Fatal("cannon with exactly one screen must give check")
	}
}

func TestHorseCheckRespectsLeg(t *testing.T) {
	b := Board{
		{ID: "rg", Type: General, Color: Red, Pos: Pos{File: 4, Rank: 9}},
		{ID: "bg", Type: General, Color: Black, Pos: Pos{File: 3, Rank: 0}},
		{ID: "bh", Type: Horse, Color: Black, Pos: Pos{File: 5, Rank: 7}},
	}
	if !IsInCheck(b, Red) {
		t.Fatal("horse a knight's move from the general must be check")
	}
	// Block the leg toward the general.
	blocked := append(b.Clone(), Piece{ID: "x", Type: Soldier, Color: Red, Pos: Pos{File: 5, Rank: 8}})
	if IsInCheck(blocked, Red) {
		t.Fatal("leg-blocked horse cannot give check")
	}
}

func TestMissingGeneralIsCheck(t *testing.T) {
	b := Board{
		{ID: "bg", Type: General, Color: Black, Pos: Pos{File: 4, Rank: 0}},
	}
	if !IsInCheck(b, Red) {
		t.Fatal("a side with no general must report as in check")
	}
	if IsInCheck(b, Black) {
		t.Fatal("black has a general and no attackers")
	}
}

func TestInitialPositionNoCheck(t *testing.T) {
	b := InitialPieces()
	if IsInCheck(b, Red) || IsInCheck(b, Black) {
		t.Fatal("neither side is in check at the start")
	}
}
