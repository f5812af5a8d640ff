package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/park285/xiangqi-tutor/internal/engine/uci"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

// lossCap bounds a single move's loss in the per-side average, so one
// missed mate does not swamp every other move.
const lossCap = 1000

// PositionAnalyzer is satisfied by *Analyzer.
type PositionAnalyzer interface {
	Analyse(ctx context.Context, pos xiangqi.Position, depth, multipv int) (uci.AnalysisResult, error)
}

// MoveAssessment is the data a teaching collaborator receives about one
// move. Both scores are from the mover's perspective: ScoreBefore is the
// engine's best line before the move and ScoreAfter is the negated score
// of the position the move produced.
type MoveAssessment struct {
	Ply          int
	Side         xiangqi.Side
	FENBefore    string
	FENAfter     string
	Move         string
	Notation     string
	BestMove     string
	BestNotation string
	ScoreBefore  int
	ScoreAfter   int
	Loss         int
	PV           []string
}

type Review struct {
	Moves         []MoveAssessment
	RedLoss       float64
	BlackLoss     float64
	RedAccuracy   float64
	BlackAccuracy float64
	Outcome       xiangqi.Outcome
}

type Reviewer struct {
	analyzer PositionAnalyzer
}

func NewReviewer(a PositionAnalyzer) *Reviewer {
	return &Reviewer{analyzer: a}
}

// Review replays tokens from start and analyses every position once; the
// score after a move is the next position's score with its sign flipped.
// An illegal or malformed token fails the whole review.
func (r *Reviewer) Review(ctx context.Context, start xiangqi.Position, tokens []string, depth int) (Review, error) {
	g := xiangqi.NewGame(start)
	if _, err := g.LoadTokens(tokens, start); err != nil {
		return Review{}, err
	}
	plies := g.Plies()

	positions := make([]xiangqi.Position, 0, len(plies)+1)
	positions = append(positions, start)
	for _, p := range plies {
		positions = append(positions, p.Position)
	}

	scores := make([]int, len(positions))
	best := make([]uci.AnalysisResult, len(positions))
	for i, pos := range positions {
		if out := xiangqi.Evaluate(pos); out.Terminal() {
			scores[i] = terminalScore(out)
			continue
		}
		res, err := r.analyzer.Analyse(ctx, pos, depth, 1)
		if err != nil {
			return Review{}, fmt.Errorf("analyse ply %d: %w", i, err)
		}
		best[i] = res
		if len(res.Lines) > 0 {
			scores[i] = clampScore(res.Lines[0].ScoreCP)
		}
	}

	out := Review{Outcome: g.Outcome()}
	var redLoss, blackLoss []int
	for i, ply := range plies {
		before := positions[i]
		a := MoveAssessment{
			Ply:         i,
			Side:        before.SideToMove(),
			FENBefore:   before.FEN(),
			FENAfter:    ply.Position.FEN(),
			Move:        ply.Move.String(),
			Notation:    ply.Notation,
			BestMove:    best[i].BestMove,
			ScoreBefore: scores[i],
			ScoreAfter:  -scores[i+1],
		}
		if len(best[i].Lines) > 0 {
			a.PV = best[i].Lines[0].PV
		}
		if m, err := xiangqi.ParseMove(a.BestMove); err == nil && xiangqi.IsLegal(before, m) {
			a.BestNotation = xiangqi.Notation(m, before)
		}
		a.Loss = max(0, a.ScoreBefore-a.ScoreAfter)
		out.Moves = append(out.Moves, a)

		if a.Side == xiangqi.Red {
			redLoss = append(redLoss, min(a.Loss, lossCap))
		} else {
			blackLoss = append(blackLoss, min(a.Loss, lossCap))
		}
	}
	out.RedLoss, out.RedAccuracy = summarize(redLoss)
	out.BlackLoss, out.BlackAccuracy = summarize(blackLoss)
	return out, nil
}

// terminalScore scores a finished position for its side to move, on the
// same scale the engine uses for a reported mate.
func terminalScore(o xiangqi.Outcome) int {
	if o.Status == xiangqi.Checkmate {
		return -uci.MateScore
	}
	return 0
}

func clampScore(cp int) int {
	return min(max(cp, -uci.MateScore), uci.MateScore)
}

func summarize(losses []int) (avg, accuracy float64) {
	if len(losses) == 0 {
		return 0, 100
	}
	sum := 0
	for _, l := range losses {
		sum += l
	}
	avg = float64(sum) / float64(len(losses))
	accuracy = math.Max(0, math.Min(100, 100-avg/3))
	return math.Round(avg*10) / 10, math.Round(accuracy*10) / 10
}
