// Package xiangqidto holds the wire shapes exchanged with API clients.
package xiangqidto

import (
	"time"

	"xiangqi-server/internal/engine"
	"xiangqi-server/internal/session"
)

type PosDTO struct {
	File int `json:"file"`
	Rank int `json:"rank"`
}

type PieceDTO struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Pos   PosDTO `json:"pos"`
}

type MoveDTO struct {
	PieceID    string    `json:"piece_id"`
	From       PosDTO    `json:"from"`
	To         PosDTO    `json:"to"`
	CapturedID string    `json:"captured_id,omitempty"`
	At         time.Time `json:"at"`
	Notation   string    `json:"notation"`
}

type SessionDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Status    string     `json:"status"`
	Winner    string     `json:"winner,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Turn      string     `json:"turn"`
	InCheck   bool       `json:"in_check"`
	Pieces    []PieceDTO `json:"pieces"`
	Moves     []MoveDTO  `json:"moves"`
	MoveCount int        `json:"move_count"`
	RedID     string     `json:"red_id"`
	RedName   string     `json:"red_name,omitempty"`
	BlackID   string     `json:"black_id"`
	BlackName string     `json:"black_name,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ArchivedGameDTO struct {
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name,omitempty"`
	RedID      string    `json:"red_id"`
	RedName    string    `json:"red_name,omitempty"`
	BlackID    string    `json:"black_id"`
	BlackName  string    `json:"black_name,omitempty"`
	Winner     string    `json:"winner"`
	Reason     string    `json:"reason"`
	MoveCount  int       `json:"move_count"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
}

func FromArchived(g *session.ArchivedGame) ArchivedGameDTO {
	return ArchivedGameDTO{
		SessionID:  g.SessionID,
		Name:       g.Name,
		RedID:      g.RedID,
		RedName:    g.RedName,
		BlackID:    g.BlackID,
		BlackName:  g.BlackName,
		Winner:     g.Winner,
		Reason:     string(g.Reason),
		MoveCount:  len(g.Moves),
		StartedAt:  g.StartedAt,
		EndedAt:    g.EndedAt,
		DurationMS: g.Duration.Milliseconds(),
	}
}

func FromPos(p engine.Pos) PosDTO {
	return PosDTO{File: p.File, Rank: p.Rank}
}

func (p PosDTO) Pos() engine.Pos {
	return engine.Pos{File: p.File, Rank: p.Rank}
}

func FromPieces(b engine.Board) []PieceDTO {
	out := make([]PieceDTO, 0, len(b))
	for _, pc := range b {
		out = append(out, PieceDTO{
			ID:    pc.ID,
			Type:  string(pc.Type),
			Color: string(pc.Color),
			Pos:   FromPos(pc.Pos),
		})
	}
	return out
}

func FromMoves(moves []engine.Move) []MoveDTO {
	out := make([]MoveDTO, 0, len(moves))
	for _, mv := range moves {
		out = append(out, MoveDTO{
			PieceID:    mv.PieceID,
			From:       FromPos(mv.From),
			To:         FromPos(mv.To),
			CapturedID: mv.CapturedID,
			At:         mv.At,
			Notation:   mv.Notation,
		})
	}
	return out
}

func FromSession(s *session.Session) *SessionDTO {
	if s == nil {
		return nil
	}
	inCheck := false
	if s.Status == session.StatusActive {
		inCheck = engine.IsInCheck(s.Pieces, s.Turn)
	}
	return &SessionDTO{
		ID:        s.ID,
		Name:      s.Name,
		Status:    string(s.Status),
		Winner:    s.Winner,
		Reason:    string(s.Reason),
		Turn:      string(s.Turn),
		InCheck:   inCheck,
		Pieces:    FromPieces(s.Pieces),
		Moves:     FromMoves(s.Moves),
		MoveCount: len(s.Moves),
		RedID:     s.RedID,
		RedName:   s.RedName,
		BlackID:   s.BlackID,
		BlackName: s.BlackName,
		StartedAt: s.StartedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
