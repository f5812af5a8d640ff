package xqdto

// HealthResponse reports which optional backends are wired.
type HealthResponse struct {
	Status   string `json:"status"`
	Engine   bool   `json:"engine"`
	Resolver bool   `json:"resolver"`
}

type FENResponse struct {
	FEN string `json:"fen"`
}

type LegalMovesRequest struct {
	FEN string `json:"fen"`
}

type LegalMovesResponse struct {
	FEN      string   `json:"fen"`
	Moves    []string `json:"moves"`
	InCheck  bool     `json:"in_check"`
	Terminal bool     `json:"terminal"`
	Result   string   `json:"result,omitempty"`
}

type MoveRequest struct {
	FEN  string `json:"fen"`
	Move string `json:"move"`
}

type MoveResponse struct {
	FEN      string `json:"fen"`
	Move     string `json:"move"`
	Notation string `json:"notation"`
	InCheck  bool   `json:"in_check"`
	Terminal bool   `json:"terminal"`
	Result   string `json:"result,omitempty"`
}

type ParseMoveRequest struct {
	FEN        string   `json:"fen"`
	Text       string   `json:"text"`
	LegalMoves []string `json:"legal_moves,omitempty"`
}

type ParseMoveResponse struct {
	Move     string `json:"move"`
	Notation string `json:"notation"`
	Method   string `json:"method"`
}
