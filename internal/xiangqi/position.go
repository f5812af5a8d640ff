package xiangqi

// Board is a 10x9 grid of optional pieces. It is a value type: copying a
// Board copies every square.
type Board [Rows][Cols]Piece

// At returns the piece on sq, or the empty piece when sq is off the board.
func (b *Board) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return b[sq.Row][sq.Col]
}

// Put places p on sq.
func (b *Board) Put(sq Square, p Piece) {
	b[sq.Row][sq.Col] = p
}

// Position is an immutable snapshot of a board plus the side to move.
// Positions are comparable with == and safe to share between goroutines.
type Position struct {
	board Board
	side  Side
}

// NewPosition builds a position from a board and side to move.
func NewPosition(b Board, side Side) Position {
	return Position{board: b, side: side}
}

// Board returns a copy of the grid.
func (p Position) Board() Board { return p.board }

// SideToMove returns the side whose turn it is.
func (p Position) SideToMove() Side { return p.side }

// At returns the piece on sq.
func (p Position) At(sq Square) Piece { return p.board.At(sq) }

// Apply moves the piece on m.From to m.To and passes the turn. Legality is
// not checked; use LegalMoves or IsLegal first.
func (p Position) Apply(m Move) Position {
	next := p
	next.board.Put(m.To, next.board.At(m.From))
	next.board.Put(m.From, Piece{})
	next.side = p.side.Opponent()
	return next
}

// GeneralSquare locates the general of side.
func (p Position) GeneralSquare(side Side) (Square, bool) {
	return generalSquare(&p.board, side)
}

func generalSquare(b *Board, side Side) (Square, bool) {
	want := Piece{Kind: General, Side: side}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if b[r][c] == want {
				return Square{Row: r, Col: c}, true
			}
		}
	}
	return Square{}, false
}

// String renders the grid for debugging, one rank per line.
func (p Position) String() string {
	buf := make([]byte, 0, Rows*(Cols+1)+2)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			buf = append(buf, p.board[r][c].Letter())
		}
		buf = append(buf, '\n')
	}
	buf = append(buf, p.side.Token()...)
	return string(buf)
}
