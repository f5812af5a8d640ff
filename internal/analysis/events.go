package analysis

import (
	"github.com/park285/xiangqi-tutor/internal/engine/uci"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

type EventKind string

const (
	KindProgress EventKind = "progress"
	KindResult   EventKind = "result"
	KindFailed   EventKind = "failed"
)

// Event is what a Dispatcher relays to its client. Exactly one of
// Progress, Result or Err is set, according to Kind.
type Event struct {
	Seq      uint64
	Kind     EventKind
	FEN      string
	Progress *Progress
	Result   *Result
	Err      error
}

// Progress is one search iteration. Scores are for the side to move.
type Progress struct {
	Depth      int
	ScoreCP    int
	Mate       *int
	WDL        *uci.WDL
	PV         []string
	PVNotation []string
	Nodes      int64
	NPS        int64
}

// Result closes out one request. BestMove is empty when the position has
// no legal move.
type Result struct {
	BestMove     string
	BestNotation string
	Ponder       string
	Depth        int
}

func progressFrom(pos xiangqi.Position, info uci.Info) *Progress {
	return &Progress{
		Depth:      info.Depth,
		ScoreCP:    info.ScoreCP,
		Mate:       info.Mate,
		WDL:        info.WDL,
		PV:         info.PV,
		PVNotation: xiangqi.NotationLine(pos, info.PV),
		Nodes:      info.Nodes,
		NPS:        info.NPS,
	}
}

func resultFrom(pos xiangqi.Position, res uci.Result) *Result {
	out := &Result{BestMove: res.BestMove, Ponder: res.Ponder, Depth: res.Depth}
	if m, err := xiangqi.ParseMove(res.BestMove); err == nil && xiangqi.IsLegal(pos, m) {
		out.BestNotation = xiangqi.Notation(m, pos)
	}
	return out
}
