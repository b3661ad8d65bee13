package xiangqidto

type CreateSessionRequest struct {
	Name      string `json:"name,omitempty"`
	RedID     string `json:"red_id"`
	RedName   string `json:"red_name,omitempty"`
	BlackID   string `json:"black_id"`
	BlackName string `json:"black_name,omitempty"`
}

type SubmitMoveRequest struct {
	PlayerID string `json:"player_id"`
	PieceID  string `json:"piece_id"`
	To       PosDTO `json:"to"`
}

type PlayerRequest struct {
	PlayerID string `json:"player_id"`
}

type LegalMovesResponse struct {
	PieceID string   `json:"piece_id"`
	Moves   []PosDTO `json:"moves"`
}

type BoardResponse struct {
	Ply    int        `json:"ply"`
	Pieces []PieceDTO `json:"pieces"`
}

type DescribeResponse struct {
	Description string `json:"description"`
	LastMove    string `json:"last_move,omitempty"`
}
