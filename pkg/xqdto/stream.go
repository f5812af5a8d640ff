package xqdto

// Frame types on the analysis websocket.
const (
	FrameInfo     = "info"
	FrameBestMove = "bestmove"
	FrameError    = "error"
)

// StreamRequest is a client frame. Position is accepted as an alias of FEN.
type StreamRequest struct {
	FEN      string `json:"fen,omitempty"`
	Position string `json:"position,omitempty"`
	Depth    int    `json:"depth,omitempty"`
}

// FrameHeader is decoded first to route a server frame by Type.
type FrameHeader struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
}

// InfoFrame is one search iteration of request Seq.
type InfoFrame struct {
	Type       string   `json:"type"`
	Seq        uint64   `json:"seq"`
	Depth      int      `json:"depth"`
	ScoreCP    int      `json:"score_cp"`
	ScoreMate  *int     `json:"score_mate"`
	WDL        *WDL     `json:"wdl"`
	PV         []string `json:"pv"`
	PVNotation []string `json:"pv_notation,omitempty"`
	Nodes      int64    `json:"nodes"`
	NPS        int64    `json:"nodes_per_second"`
}

// BestMoveFrame closes out request Seq.
type BestMoveFrame struct {
	Type         string  `json:"type"`
	Seq          uint64  `json:"seq"`
	FEN          string  `json:"fen"`
	BestMove     string  `json:"best_move"`
	BestNotation string  `json:"best_notation,omitempty"`
	Ponder       *string `json:"ponder"`
	Depth        int     `json:"depth"`
}

// ErrorFrame reports a rejected or failed request. Seq is zero when the
// frame could not be attached to a request.
type ErrorFrame struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
