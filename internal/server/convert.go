package server

import (
	"github.com/park285/xiangqi-tutor/internal/analysis"
	"github.com/park285/xiangqi-tutor/internal/engine/uci"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
	"github.com/park285/xiangqi-tutor/pkg/xqdto"
)

func wdlDTO(w *uci.WDL) *xqdto.WDL {
	if w == nil {
		return nil
	}
	return &xqdto.WDL{Win: w.Win, Draw: w.Draw, Loss: w.Loss}
}

func lineDTO(pos xiangqi.Position, info uci.Info) xqdto.Line {
	return xqdto.Line{
		MultiPV:    info.MultiPV,
		Depth:      info.Depth,
		ScoreCP:    info.ScoreCP,
		ScoreMate:  info.Mate,
		WDL:        wdlDTO(info.WDL),
		PV:         info.PV,
		PVNotation: xiangqi.NotationLine(pos, info.PV),
		Nodes:      info.Nodes,
		NPS:        info.NPS,
	}
}

// AnalysisResponse converts an engine result for pos to its wire form.
func AnalysisResponse(pos xiangqi.Position, res uci.AnalysisResult) xqdto.AnalysisResponse {
	out := xqdto.AnalysisResponse{
		FEN:      res.FEN,
		BestMove: res.BestMove,
		Ponder:   res.Ponder,
		Depth:    res.Depth,
		Lines:    make([]xqdto.Line, 0, len(res.Lines)),
	}
	if out.FEN == "" {
		out.FEN = pos.FEN()
	}
	if m, err := xiangqi.ParseMove(res.BestMove); err == nil && xiangqi.IsLegal(pos, m) {
		out.BestNotation = xiangqi.Notation(m, pos)
	}
	for _, info := range res.Lines {
		out.Lines = append(out.Lines, lineDTO(pos, info))
	}
	return out
}

// ReviewResponse converts a game review to its wire form.
func ReviewResponse(r analysis.Review) xqdto.ReviewResponse {
	out := xqdto.ReviewResponse{
		Moves:         make([]xqdto.MoveAssessment, 0, len(r.Moves)),
		RedLoss:       r.RedLoss,
		BlackLoss:     r.BlackLoss,
		RedAccuracy:   r.RedAccuracy,
		BlackAccuracy: r.BlackAccuracy,
		Result:        r.Outcome.Label(),
	}
	for _, m := range r.Moves {
		out.Moves = append(out.Moves, xqdto.MoveAssessment{
			Ply:          m.Ply,
			Side:         m.Side.String(),
			FENBefore:    m.FENBefore,
			FENAfter:     m.FENAfter,
			Move:         m.Move,
			Notation:     m.Notation,
			BestMove:     m.BestMove,
			BestNotation: m.BestNotation,
			ScoreBefore:  m.ScoreBefore,
			ScoreAfter:   m.ScoreAfter,
			Loss:         m.Loss,
			PV:           m.PV,
		})
	}
	return out
}

func infoFrame(ev analysis.Event) xqdto.InfoFrame {
	p := ev.Progress
	return xqdto.InfoFrame{
		Type:       xqdto.FrameInfo,
		Seq:        ev.Seq,
		Depth:      p.Depth,
		ScoreCP:    p.ScoreCP,
		ScoreMate:  p.Mate,
		WDL:        wdlDTO(p.WDL),
		PV:         p.PV,
		PVNotation: p.PVNotation,
		Nodes:      p.Nodes,
		NPS:        p.NPS,
	}
}

func bestMoveFrame(ev analysis.Event) xqdto.BestMoveFrame {
	r := ev.Result
	f := xqdto.BestMoveFrame{
		Type:         xqdto.FrameBestMove,
		Seq:          ev.Seq,
		FEN:          ev.FEN,
		BestMove:     r.BestMove,
		BestNotation: r.BestNotation,
		Depth:        r.Depth,
	}
	if r.Ponder != "" {
		ponder := r.Ponder
		f.Ponder = &ponder
	}
	return f
}
