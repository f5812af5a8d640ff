package xqpresenter

import (
	"fmt"
	"strings"

	"github.com/park285/xiangqi-tutor/internal/xiangqi"
	"github.com/park285/xiangqi-tutor/pkg/xqdto"
)

const (
	analysisHeading = "♜ 局面分析"
	reviewHeading   = "♜ 复盘"
	movesHeading    = "♞ 合法着法"

	pvPreview = 6
)

// Formatter renders analysis DTOs into terminal text blocks.
type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

// Board draws pos with rank numbers on the left and file letters below.
func (f *Formatter) Board(pos xiangqi.Position) string {
	var sb strings.Builder
	for r := 0; r < xiangqi.Rows; r++ {
		sb.WriteString(fmt.Sprintf("%d ", xiangqi.Rows-1-r))
		for c := 0; c < xiangqi.Cols; c++ {
			p := pos.At(xiangqi.Sq(r, c))
			if p.Empty() {
				sb.WriteString(" .")
			} else {
				sb.WriteString(" " + string(p.Letter()))
			}
		}
		sb.WriteString("\n")
		if r == 4 {
			sb.WriteString("  ~~~~~~~~~~~~~~~~~~\n")
		}
	}
	sb.WriteString("   a b c d e f g h i\n")
	sb.WriteString(fmt.Sprintf("• 轮到: %s", sideLabel(pos.SideToMove())))
	if xiangqi.InCheck(pos) {
		sb.WriteString(" (将军)")
	}
	return sb.String()
}

// Moves lists every legal move of pos with its notation.
func (f *Formatter) Moves(pos xiangqi.Position) string {
	moves := xiangqi.LegalMoves(pos)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%d)\n", movesHeading, len(moves)))
	if len(moves) == 0 {
		sb.WriteString("• " + formatOutcome(xiangqi.Evaluate(pos).Label()))
		return sb.String()
	}
	for i, m := range moves {
		sb.WriteString(fmt.Sprintf("%s %s", m, xiangqi.Notation(m, pos)))
		if (i+1)%4 == 0 || i == len(moves)-1 {
			sb.WriteString("\n")
		} else {
			sb.WriteString("   ")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Analysis(res xqdto.AnalysisResponse) string {
	var sb strings.Builder
	sb.WriteString(analysisHeading + "\n")
	if res.BestMove == "" {
		sb.WriteString("• 无着可走")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("• 最佳: %s (%s)", displayMove(res.BestNotation, res.BestMove), res.BestMove))
	sb.WriteString(fmt.Sprintf(" | 深度 %d\n", res.Depth))
	for _, line := range res.Lines {
		sb.WriteString(fmt.Sprintf("%d. %s", max(line.MultiPV, 1), formatScore(line.ScoreCP, line.ScoreMate)))
		if line.WDL != nil {
			sb.WriteString(fmt.Sprintf(" [胜%d 和%d 负%d]", line.WDL.Win, line.WDL.Draw, line.WDL.Loss))
		}
		pv := line.PVNotation
		if len(pv) == 0 {
			pv = line.PV
		}
		if len(pv) > 0 {
			sb.WriteString(" " + formatLine(pv))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Review(res xqdto.ReviewResponse) string {
	var sb strings.Builder
	sb.WriteString(reviewHeading + "\n")
	for _, m := range res.Moves {
		num := m.Ply/2 + 1
		sep := "."
		if m.Side == "black" {
			sep = "..."
		}
		sb.WriteString(fmt.Sprintf("%d%s %s  %s → %s", num, sep, displayMove(m.Notation, m.Move),
			formatScore(m.ScoreBefore, nil), formatScore(m.ScoreAfter, nil)))
		if m.Loss > 0 {
			sb.WriteString(fmt.Sprintf("  (-%d)", m.Loss))
		}
		if m.BestMove != "" && m.BestMove != m.Move {
			sb.WriteString("  最佳 " + displayMove(m.BestNotation, m.BestMove))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("• 红方 平均损失 %.1f | 准确率 %.1f%%\n", res.RedLoss, res.RedAccuracy))
	sb.WriteString(fmt.Sprintf("• 黑方 平均损失 %.1f | 准确率 %.1f%%\n", res.BlackLoss, res.BlackAccuracy))
	sb.WriteString("• " + formatOutcome(res.Result))
	return sb.String()
}

func displayMove(notation, token string) string {
	if notation != "" {
		return notation
	}
	return token
}

func formatScore(cp int, mate *int) string {
	if mate != nil {
		if *mate < 0 {
			return fmt.Sprintf("-M%d", -*mate)
		}
		return fmt.Sprintf("M%d", *mate)
	}
	return fmt.Sprintf("%+.2f", float64(cp)/100)
}

func formatLine(moves []string) string {
	if len(moves) <= pvPreview {
		return strings.Join(moves, " ")
	}
	return strings.Join(moves[:pvPreview], " ") + " …"
}

func sideLabel(s xiangqi.Side) string {
	if s == xiangqi.Red {
		return "红方"
	}
	return "黑方"
}

func formatOutcome(label string) string {
	switch label {
	case "red_wins":
		return "红方胜"
	case "black_wins":
		return "黑方胜"
	case "draw":
		return "和棋"
	default:
		return "对局进行中"
	}
}
