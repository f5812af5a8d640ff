package xiangqi

var (
	orthogonal = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	diagonal   = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	// horse offsets paired with the orthogonal leg that must be empty
	horseJumps = [8][4]int{
		{-2, -1, -1, 0}, {-2, 1, -1, 0},
		{2, -1, 1, 0}, {2, 1, 1, 0},
		{-1, -2, 0, -1}, {1, -2, 0, -1},
		{-1, 2, 0, 1}, {1, 2, 0, 1},
	}
)

// forward is the row delta of one step toward the opponent.
func forward(side Side) int {
	if side == Red {
		return -1
	}
	return 1
}

// inPalace reports whether sq lies in side's 3x3 palace.
func inPalace(side Side, sq Square) bool {
	if sq.Col < 3 || sq.Col > 5 {
		return false
	}
	if side == Red {
		return sq.Row >= 7 && sq.Row <= 9
	}
	return sq.Row >= 0 && sq.Row <= 2
}

// ownHalf reports whether row is on side's half of the river.
func ownHalf(side Side, row int) bool {
	if side == Red {
		return row >= 5
	}
	return row <= 4
}

// PseudoMoves returns every destination the piece on sq can reach,
// ignoring whether its own general is left attacked. Destinations are
// either empty or hold an opposing piece. An empty sq yields nil.
func PseudoMoves(b *Board, sq Square) []Square {
	pc := b.At(sq)
	if pc.Empty() {
		return nil
	}
	dst := make([]Square, 0, 17)
	// target reports whether to may be landed on.
	target := func(to Square) bool {
		if !to.Valid() {
			return false
		}
		occ := b.At(to)
		return occ.Empty() || occ.Side != pc.Side
	}

	switch pc.Kind {
	case Chariot:
		for _, d := range orthogonal {
			for to := sq.add(d[0], d[1]); to.Valid(); to = to.add(d[0], d[1]) {
				occ := b.At(to)
				if occ.Empty() {
					dst = append(dst, to)
					continue
				}
				if occ.Side != pc.Side {
					dst = append(dst, to)
				}
				break
			}
		}

	case Cannon:
		for _, d := range orthogonal {
			to := sq.add(d[0], d[1])
			for ; to.Valid() && b.At(to).Empty(); to = to.add(d[0], d[1]) {
				dst = append(dst, to)
			}
			// to is now the screen (or off the board)
			if !to.Valid() {
				continue
			}
			for to = to.add(d[0], d[1]); to.Valid(); to = to.add(d[0], d[1]) {
				occ := b.At(to)
				if occ.Empty() {
					continue
				}
				if occ.Side != pc.Side {
					dst = append(dst, to)
				}
				break
			}
		}

	case Horse:
		for _, j := range horseJumps {
			to := sq.add(j[0], j[1])
			if !target(to) {
				continue
			}
			if !b.At(sq.add(j[2], j[3])).Empty() {
				continue
			}
			dst = append(dst, to)
		}

	case Elephant:
		for _, d := range diagonal {
			to := sq.add(2*d[0], 2*d[1])
			if !target(to) || !ownHalf(pc.Side, to.Row) {
				continue
			}
			if !b.At(sq.add(d[0], d[1])).Empty() {
				continue
			}
			dst = append(dst, to)
		}

	case Advisor:
		for _, d := range diagonal {
			to := sq.add(d[0], d[1])
			if target(to) && inPalace(pc.Side, to) {
				dst = append(dst, to)
			}
		}

	case General:
		for _, d := range orthogonal {
			to := sq.add(d[0], d[1])
			if target(to) && inPalace(pc.Side, to) {
				dst = append(dst, to)
			}
		}
		// flying general: the first piece along the file is the enemy general
		for _, dr := range [2]int{-1, 1} {
			for to := sq.add(dr, 0); to.Valid(); to = to.add(dr, 0) {
				occ := b.At(to)
				if occ.Empty() {
					continue
				}
				if occ.Kind == General && occ.Side != pc.Side && !containsSquare(dst, to) {
					dst = append(dst, to)
				}
				break
			}
		}

	case Soldier:
		fwd := forward(pc.Side)
		if to := sq.add(fwd, 0); target(to) {
			dst = append(dst, to)
		}
		if !ownHalf(pc.Side, sq.Row) {
			for _, dc := range [2]int{-1, 1} {
				if to := sq.add(0, dc); target(to) {
					dst = append(dst, to)
				}
			}
		}
	}
	return dst
}

func containsSquare(list []Square, sq Square) bool {
	for _, s := range list {
		if s == sq {
			return true
		}
	}
	return false
}

// Attacked reports whether any piece of side by can move onto sq.
func Attacked(b *Board, sq Square, by Side) bool {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			pc := b[r][c]
			if pc.Empty() || pc.Side != by {
				continue
			}
			if containsSquare(PseudoMoves(b, Square{Row: r, Col: c}), sq) {
				return true
			}
		}
	}
	return false
}

// generalExposed reports whether side's general is attacked on b. A board
// without that general is never exposed.
func generalExposed(b *Board, side Side) bool {
	g, ok := generalSquare(b, side)
	if !ok {
		return false
	}
	return Attacked(b, g, side.Opponent())
}

// LegalMoves returns every move for the side to move that does not leave
// its own general attacked. Moves are ordered by origin square (row-major)
// and then by generation order.
func LegalMoves(p Position) []Move {
	var moves []Move
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			from := Square{Row: r, Col: c}
			pc := p.board.At(from)
			if pc.Empty() || pc.Side != p.side {
				continue
			}
			for _, to := range PseudoMoves(&p.board, from) {
				m := Move{From: from, To: to}
				next := p.Apply(m)
				if !generalExposed(&next.board, p.side) {
					moves = append(moves, m)
				}
			}
		}
	}
	return moves
}

// LegalMovesFrom returns the legal moves of the piece on from.
func LegalMovesFrom(p Position, from Square) []Move {
	pc := p.board.At(from)
	if pc.Empty() || pc.Side != p.side {
		return nil
	}
	var moves []Move
	for _, to := range PseudoMoves(&p.board, from) {
		m := Move{From: from, To: to}
		next := p.Apply(m)
		if !generalExposed(&next.board, p.side) {
			moves = append(moves, m)
		}
	}
	return moves
}

// IsLegal reports whether m is legal in p. It only generates moves for the
// piece on m.From, so it is cheap enough for drag previews.
func IsLegal(p Position, m Move) bool {
	if !m.From.Valid() || !m.To.Valid() {
		return false
	}
	pc := p.board.At(m.From)
	if pc.Empty() || pc.Side != p.side {
		return false
	}
	if !containsSquare(PseudoMoves(&p.board, m.From), m.To) {
		return false
	}
	next := p.Apply(m)
	return !generalExposed(&next.board, p.side)
}

// InCheck reports whether the side to move has its general attacked.
func InCheck(p Position) bool {
	return generalExposed(&p.board, p.side)
}

// HasLegalMoves reports whether the side to move has at least one legal move.
func HasLegalMoves(p Position) bool {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if len(LegalMovesFrom(p, Square{Row: r, Col: c})) > 0 {
				return true
			}
		}
	}
	return false
}

// IsCheckmate reports check with no legal reply.
func IsCheckmate(p Position) bool { return InCheck(p) && !HasLegalMoves(p) }

// IsStalemate reports no legal move while not in check.
func IsStalemate(p Position) bool { return !InCheck(p) && !HasLegalMoves(p) }
