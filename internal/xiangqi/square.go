package xiangqi

import (
	"errors"
	"fmt"
)

// Board dimensions. Row 0 is Black's back rank, row 9 is Red's.
const (
	Rows = 10
	Cols = 9
)

// Square is a (row, column) coordinate on the 10x9 grid.
type Square struct {
	Row int
	Col int
}

// Sq builds a square from row and column.
func Sq(row, col int) Square { return Square{Row: row, Col: col} }

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < Rows && s.Col >= 0 && s.Col < Cols
}

func (s Square) add(dr, dc int) Square { return Square{Row: s.Row + dr, Col: s.Col + dc} }

// String renders the square as a file letter a-i plus rank digit 0-9 (rank = 9 - row).
func (s Square) String() string {
	if !s.Valid() {
		return "--"
	}
	return string([]byte{byte('a' + s.Col), byte('0' + (Rows - 1 - s.Row))})
}

// ParseSquare parses the two-character "<file><rank>" form.
func ParseSquare(text string) (Square, error) {
	if len(text) != 2 {
		return Square{}, fmt.Errorf("square %q: want 2 characters", text)
	}
	f, r := text[0], text[1]
	if f < 'a' || f > 'i' || r < '0' || r > '9' {
		return Square{}, fmt.Errorf("square %q: out of range", text)
	}
	return Square{Row: Rows - 1 - int(r-'0'), Col: int(f - 'a')}, nil
}

// Move is an origin/destination pair. It carries no position context.
type Move struct {
	From Square
	To   Square
}

// String renders the four-character machine token, e.g. "b2e2".
func (m Move) String() string { return m.From.String() + m.To.String() }

var ErrBadMoveToken = errors.New("malformed move token")

// ParseMove parses a four-character machine move token.
func ParseMove(token string) (Move, error) {
	if len(token) != 4 {
		return Move{}, fmt.Errorf("%w: %q", ErrBadMoveToken, token)
	}
	from, err := ParseSquare(token[:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrBadMoveToken, err)
	}
	to, err := ParseSquare(token[2:])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrBadMoveToken, err)
	}
	return Move{From: from, To: to}, nil
}

// MoveStrings renders a move list as machine tokens.
func MoveStrings(moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}
