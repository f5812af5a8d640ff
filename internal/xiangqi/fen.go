package xiangqi

import (
	"errors"
	"fmt"
	"strings"
)

// StartFEN is the standard opening position.
const StartFEN = "rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w - - 0 1"

// ErrMalformedPosition is matched by every MalformedPositionError.
var ErrMalformedPosition = errors.New("malformed position")

// MalformedPositionError reports position text that does not describe a
// 10x9 grid with a valid side-to-move token.
type MalformedPositionError struct {
	Input  string
	Reason string
}

func (e *MalformedPositionError) Error() string {
	return fmt.Sprintf("malformed position %q: %s", e.Input, e.Reason)
}

func (e *MalformedPositionError) Unwrap() error { return ErrMalformedPosition }

func malformed(input, format string, args ...any) error {
	return &MalformedPositionError{Input: input, Reason: fmt.Sprintf(format, args...)}
}

// StartPosition returns the standard opening position.
func StartPosition() Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseFEN decodes "<placement> <side> ..." text. Fields after the side token
// are accepted and ignored.
func ParseFEN(text string) (Position, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Position{}, malformed(text, "want placement and side to move, got %d field(s)", len(fields))
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != Rows {
		return Position{}, malformed(text, "want %d ranks, got %d", Rows, len(ranks))
	}

	var b Board
	for r, rank := range ranks {
		c := 0
		for i := 0; i < len(rank); i++ {
			ch := rank[i]
			if ch >= '0' && ch <= '9' {
				n := int(ch - '0')
				if n == 0 {
					return Position{}, malformed(text, "rank %d: zero-length gap", r)
				}
				c += n
				if c > Cols {
					return Position{}, malformed(text, "rank %d: more than %d columns", r, Cols)
				}
				continue
			}
			p, ok := pieceFromLetter(ch)
			if !ok {
				return Position{}, malformed(text, "rank %d: unknown symbol %q", r, ch)
			}
			if c >= Cols {
				return Position{}, malformed(text, "rank %d: more than %d columns", r, Cols)
			}
			b[r][c] = p
			c++
		}
		if c != Cols {
			return Position{}, malformed(text, "rank %d: want %d columns, got %d", r, Cols, c)
		}
	}

	var side Side
	switch fields[1] {
	case "w":
		side = Red
	case "b":
		side = Black
	default:
		return Position{}, malformed(text, "unknown side to move %q", fields[1])
	}
	return Position{board: b, side: side}, nil
}

// Placement encodes only the piece-placement field. Empty runs are merged
// into a single digit, so the output is canonical.
func (p Position) Placement() string {
	var sb strings.Builder
	for r := 0; r < Rows; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for c := 0; c < Cols; c++ {
			pc := p.board[r][c]
			if pc.Empty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(pc.Letter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
	}
	return sb.String()
}

// FEN encodes the position in canonical form.
func (p Position) FEN() string {
	return p.Placement() + " " + p.side.Token() + " - - 0 1"
}

// CanonicalFEN re-encodes text so equal positions share one spelling.
func CanonicalFEN(text string) (string, error) {
	p, err := ParseFEN(text)
	if err != nil {
		return "", err
	}
	return p.FEN(), nil
}
