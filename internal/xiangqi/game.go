package xiangqi

import (
	"errors"
	"fmt"
)

// Status is the terminal state of a game.
type Status uint8

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
)

func (s Status) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	default:
		return "ongoing"
	}
}

// Outcome is a Status plus the winner when the status is Checkmate.
type Outcome struct {
	Status Status
	Winner Side
}

// Terminal reports whether the game is over.
func (o Outcome) Terminal() bool { return o.Status != Ongoing }

// Label is the wire form: "ongoing", "red_wins", "black_wins" or "draw".
func (o Outcome) Label() string {
	switch o.Status {
	case Checkmate:
		return o.Winner.String() + "_wins"
	case Stalemate:
		return "draw"
	default:
		return "ongoing"
	}
}

// Evaluate computes the terminal state of p.
func Evaluate(p Position) Outcome {
	if HasLegalMoves(p) {
		return Outcome{Status: Ongoing}
	}
	if InCheck(p) {
		return Outcome{Status: Checkmate, Winner: p.side.Opponent()}
	}
	return Outcome{Status: Stalemate}
}

var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrIndexOutOfRange = errors.New("history index out of range")
)

// IllegalMoveError reports the first move of a batch replay that was not
// legal in the position it was applied to.
type IllegalMoveError struct {
	Index int
	Move  Move
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("move %d (%s): illegal in its position", e.Index, e.Move)
}

func (e *IllegalMoveError) Unwrap() error { return ErrIllegalMove }

// Ply is one applied move together with the position it produced.
type Ply struct {
	Move     Move
	Notation string
	Position Position
}

// Game is a move history over a base position plus a cursor into it.
// Index -1 means the base position. A Game is owned by a single session
// and is not safe for concurrent use.
type Game struct {
	start   Position
	plies   []Ply
	index   int
	outcome Outcome
}

// NewGame starts a game from start.
func NewGame(start Position) *Game {
	return &Game{start: start, index: -1}
}

// Start returns the base position.
func (g *Game) Start() Position { return g.start }

// Position returns the position at the cursor.
func (g *Game) Position() Position {
	if g.index < 0 {
		return g.start
	}
	return g.plies[g.index].Position
}

// Index returns the cursor, -1 for the base position.
func (g *Game) Index() int { return g.index }

// Len returns the number of recorded plies.
func (g *Game) Len() int { return len(g.plies) }

// Plies returns a copy of the full history, including plies beyond the cursor.
func (g *Game) Plies() []Ply { return append([]Ply(nil), g.plies...) }

// Moves returns the recorded moves as machine tokens.
func (g *Game) Moves() []string {
	out := make([]string, len(g.plies))
	for i, p := range g.plies {
		out[i] = p.Move.String()
	}
	return out
}

// Notations returns the recorded moves in positional notation.
func (g *Game) Notations() []string {
	out := make([]string, len(g.plies))
	for i, p := range g.plies {
		out[i] = p.Notation
	}
	return out
}

// Outcome returns the terminal state computed after the last applied move.
// Navigation does not recompute it.
func (g *Game) Outcome() Outcome { return g.outcome }

// TryMove applies from->to if it is legal at the cursor. History beyond the
// cursor is discarded. It returns false, leaving the game untouched, when
// the move is illegal.
func (g *Game) TryMove(from, to Square) bool {
	return g.Play(Move{From: from, To: to})
}

// Play is TryMove for a Move value.
func (g *Game) Play(m Move) bool {
	cur := g.Position()
	if !IsLegal(cur, m) {
		return false
	}
	next := cur.Apply(m)
	g.plies = append(g.plies[:g.index+1], Ply{Move: m, Notation: Notation(m, cur), Position: next})
	g.index++
	g.outcome = Evaluate(next)
	return true
}

// GoToIndex moves the cursor to i in [-1, Len()-1] without touching history.
func (g *Game) GoToIndex(i int) error {
	if i < -1 || i > len(g.plies)-1 {
		return fmt.Errorf("%w: %d not in [-1, %d]", ErrIndexOutOfRange, i, len(g.plies)-1)
	}
	g.index = i
	return nil
}

// Undo steps the cursor back by one ply.
func (g *Game) Undo() bool {
	if g.index < 0 {
		return false
	}
	g.index--
	return true
}

// Reset clears history and terminal state and sets a new base position.
func (g *Game) Reset(start Position) {
	g.start = start
	g.plies = nil
	g.index = -1
	g.outcome = Outcome{}
}

// LoadMoves resets to start and replays moves. Replay stops at the first
// illegal move; the legal prefix is kept and an *IllegalMoveError is
// returned. The returned count is the number of moves applied.
func (g *Game) LoadMoves(moves []Move, start Position) (int, error) {
	g.Reset(start)
	for i, m := range moves {
		if !g.Play(m) {
			return i, &IllegalMoveError{Index: i, Move: m}
		}
	}
	return len(moves), nil
}

// LoadTokens is LoadMoves for machine tokens. A malformed token stops the
// replay like an illegal move does.
func (g *Game) LoadTokens(tokens []string, start Position) (int, error) {
	g.Reset(start)
	for i, tok := range tokens {
		m, err := ParseMove(tok)
		if err != nil {
			return i, fmt.Errorf("move %d: %w", i, err)
		}
		if !g.Play(m) {
			return i, &IllegalMoveError{Index: i, Move: m}
		}
	}
	return len(tokens), nil
}
