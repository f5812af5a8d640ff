package xiangqi

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	redNames   = [...]string{General: "帅", Advisor: "仕", Elephant: "相", Horse: "马", Chariot: "车", Cannon: "炮", Soldier: "兵"}
	blackNames = [...]string{General: "将", Advisor: "士", Elephant: "象", Horse: "马", Chariot: "车", Cannon: "炮", Soldier: "卒"}

	// Red writes files and distances with ideographic digits, Black with numerals.
	redDigits   = [...]string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九"}
	blackDigits = [...]string{"", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
)

const (
	glyphAdvance = "进"
	glyphRetreat = "退"
	glyphLateral = "平"
)

// fileNumber is the side-relative file index 1-9. Each side counts from its
// own right hand: column 8 for Red, column 0 for Black.
func fileNumber(side Side, col int) int {
	if side == Red {
		return Cols - col
	}
	return col + 1
}

func colFromFile(side Side, n int) int {
	if side == Red {
		return Cols - n
	}
	return n - 1
}

func digit(side Side, n int) string {
	if n < 1 || n > 9 {
		return fmt.Sprint(n)
	}
	if side == Red {
		return redDigits[n]
	}
	return blackDigits[n]
}

// movesStraight reports kinds whose vertical moves are written as a rank
// count rather than a destination file.
func movesStraight(k Kind) bool {
	return k == Chariot || k == Cannon || k == General || k == Soldier
}

// Notation renders m, interpreted in p, in traditional positional notation:
// piece, file, action and quantity, e.g. "炮二平五" or "马8进7". A move
// from an empty square falls back to its machine token.
func Notation(m Move, p Position) string {
	pc := p.At(m.From)
	if pc.Empty() {
		return m.String()
	}
	side := pc.Side
	name := redNames[pc.Kind]
	if side == Black {
		name = blackNames[pc.Kind]
	}

	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString(digit(side, fileNumber(side, m.From.Col)))

	dr := m.To.Row - m.From.Row
	switch {
	case dr == 0:
		sb.WriteString(glyphLateral)
		sb.WriteString(digit(side, fileNumber(side, m.To.Col)))
		return sb.String()
	case dr*forward(side) > 0:
		sb.WriteString(glyphAdvance)
	default:
		sb.WriteString(glyphRetreat)
	}

	if movesStraight(pc.Kind) && m.From.Col == m.To.Col {
		if dr < 0 {
			dr = -dr
		}
		sb.WriteString(digit(side, dr))
	} else {
		sb.WriteString(digit(side, fileNumber(side, m.To.Col)))
	}
	return sb.String()
}

// NotationLine renders a sequence of tokens played from p, stopping at the
// first token that is malformed or illegal in its position.
func NotationLine(p Position, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		m, err := ParseMove(tok)
		if err != nil || !IsLegal(p, m) {
			break
		}
		out = append(out, Notation(m, p))
		p = p.Apply(m)
	}
	return out
}

var ErrNotation = errors.New("unrecognized positional notation")

var (
	glyphKinds = map[string]Kind{
		"车": Chariot, "車": Chariot,
		"马": Horse, "馬": Horse,
		"象": Elephant, "相": Elephant,
		"士": Advisor, "仕": Advisor,
		"将": General, "帅": General, "帥": General, "將": General,
		"炮": Cannon, "砲": Cannon, "包": Cannon,
		"兵": Soldier, "卒": Soldier,
	}
	glyphDigits = map[string]int{
		"一": 1, "二": 2, "三": 3, "四": 4, "五": 5, "六": 6, "七": 7, "八": 8, "九": 9,
		"１": 1, "２": 2, "３": 3, "４": 4, "５": 5, "６": 6, "７": 7, "８": 8, "９": 9,
		"1": 1, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9,
	}

	pieceClass  = `[车車马馬象相士仕将帅帥將炮砲包兵卒]`
	digitClass  = `[一二三四五六七八九１-９1-9]`
	actionClass = `[进進退平]`

	fileForm   = regexp.MustCompile(`(` + pieceClass + `)(` + digitClass + `)(` + actionClass + `)(` + digitClass + `)`)
	tandemForm = regexp.MustCompile(`([前后後])(` + pieceClass + `)(` + actionClass + `)(` + digitClass + `)`)
)

// ParseNotation resolves traditional notation such as "炮二平五", "马8进7" or
// "前车进一" against p. Only a move legal in p is returned.
func ParseNotation(text string, p Position) (Move, error) {
	side := p.SideToMove()
	if g := fileForm.FindStringSubmatch(text); g != nil {
		kind := glyphKinds[g[1]]
		col := colFromFile(side, glyphDigits[g[2]])
		var from []Square
		for r := 0; r < Rows; r++ {
			sq := Square{Row: r, Col: col}
			if p.At(sq) == (Piece{Kind: kind, Side: side}) {
				from = append(from, sq)
			}
		}
		return pickCandidate(p, kind, from, g[3], glyphDigits[g[4]], text)
	}
	if g := tandemForm.FindStringSubmatch(text); g != nil {
		kind := glyphKinds[g[2]]
		front := g[1] == "前"
		sq, ok := tandemPiece(p, kind, front)
		if !ok {
			return Move{}, fmt.Errorf("%w: %q: no two pieces share a file", ErrNotation, text)
		}
		return pickCandidate(p, kind, []Square{sq}, g[3], glyphDigits[g[4]], text)
	}
	return Move{}, fmt.Errorf("%w: %q", ErrNotation, text)
}

// tandemPiece finds the front or rear piece of a file holding two or more
// pieces of kind for the side to move.
func tandemPiece(p Position, kind Kind, front bool) (Square, bool) {
	side := p.SideToMove()
	want := Piece{Kind: kind, Side: side}
	for c := 0; c < Cols; c++ {
		var on []Square
		for r := 0; r < Rows; r++ {
			if p.At(Square{Row: r, Col: c}) == want {
				on = append(on, Square{Row: r, Col: c})
			}
		}
		if len(on) < 2 {
			continue
		}
		// on is ordered by row; Red advances toward row 0
		first, last := on[0], on[len(on)-1]
		if side == Black {
			first, last = last, first
		}
		if front {
			return first, true
		}
		return last, true
	}
	return Square{}, false
}

func pickCandidate(p Position, kind Kind, from []Square, action string, n int, text string) (Move, error) {
	side := p.SideToMove()
	for _, sq := range from {
		to, ok := destination(side, kind, sq, action, n)
		if !ok {
			continue
		}
		m := Move{From: sq, To: to}
		if IsLegal(p, m) {
			return m, nil
		}
	}
	return Move{}, fmt.Errorf("%w: %q: %w", ErrNotation, text, ErrIllegalMove)
}

func destination(side Side, kind Kind, from Square, action string, n int) (Square, bool) {
	if action == glyphLateral {
		to := Square{Row: from.Row, Col: colFromFile(side, n)}
		return to, to.Valid() && to != from
	}
	dir := forward(side)
	if action == glyphRetreat {
		dir = -dir
	}
	if movesStraight(kind) {
		to := from.add(dir*n, 0)
		return to, to.Valid()
	}
	col := colFromFile(side, n)
	dc := col - from.Col
	if dc < 0 {
		dc = -dc
	}
	var dr int
	switch kind {
	case Horse:
		if dc != 1 && dc != 2 {
			return Square{}, false
		}
		dr = 3 - dc
	case Elephant:
		if dc != 2 {
			return Square{}, false
		}
		dr = 2
	case Advisor:
		if dc != 1 {
			return Square{}, false
		}
		dr = 1
	default:
		return Square{}, false
	}
	to := Square{Row: from.Row + dir*dr, Col: col}
	return to, to.Valid()
}
