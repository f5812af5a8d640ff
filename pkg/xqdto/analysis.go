package xqdto

// WDL is the engine's win/draw/loss estimate in permille.
type WDL struct {
	Win  int `json:"win"`
	Draw int `json:"draw"`
	Loss int `json:"loss"`
}

// Line is one principal variation. Scores are for the side to move.
type Line struct {
	MultiPV    int      `json:"multipv,omitempty"`
	Depth      int      `json:"depth"`
	ScoreCP    int      `json:"score_cp"`
	ScoreMate  *int     `json:"score_mate,omitempty"`
	WDL        *WDL     `json:"wdl,omitempty"`
	PV         []string `json:"pv"`
	PVNotation []string `json:"pv_notation,omitempty"`
	Nodes      int64    `json:"nodes,omitempty"`
	NPS        int64    `json:"nodes_per_second,omitempty"`
}

type AnalysisRequest struct {
	FEN     string `json:"fen"`
	Depth   int    `json:"depth,omitempty"`
	MultiPV int    `json:"multipv,omitempty"`
}

type AnalysisResponse struct {
	FEN          string `json:"fen"`
	BestMove     string `json:"best_move"`
	BestNotation string `json:"best_notation,omitempty"`
	Ponder       string `json:"ponder,omitempty"`
	Depth        int    `json:"depth"`
	Lines        []Line `json:"lines"`
}

type ReviewRequest struct {
	FEN   string   `json:"fen,omitempty"`
	Moves []string `json:"moves"`
	Depth int      `json:"depth,omitempty"`
}

type MoveAssessment struct {
	Ply          int      `json:"ply"`
	Side         string   `json:"side"`
	FENBefore    string   `json:"fen_before"`
	FENAfter     string   `json:"fen_after"`
	Move         string   `json:"move"`
	Notation     string   `json:"notation"`
	BestMove     string   `json:"best_move,omitempty"`
	BestNotation string   `json:"best_notation,omitempty"`
	ScoreBefore  int      `json:"score_before"`
	ScoreAfter   int      `json:"score_after"`
	Loss         int      `json:"loss"`
	PV           []string `json:"pv,omitempty"`
}

type ReviewResponse struct {
	Moves         []MoveAssessment `json:"moves"`
	RedLoss       float64          `json:"red_loss"`
	BlackLoss     float64          `json:"black_loss"`
	RedAccuracy   float64          `json:"red_accuracy"`
	BlackAccuracy float64          `json:"black_accuracy"`
	Result        string           `json:"result,omitempty"`
}
