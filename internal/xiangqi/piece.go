package xiangqi

import "strings"

// Side identifies a player. Red moves first and is written in upper case.
type Side uint8

const (
	Red Side = iota
	Black
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Red {
		return Black
	}
	return Red
}

func (s Side) String() string {
	if s == Red {
		return "red"
	}
	return "black"
}

// Token is the side-to-move token used in position text.
func (s Side) Token() string {
	if s == Red {
		return "w"
	}
	return "b"
}

// Kind is a piece type. The zero value marks an empty square.
type Kind uint8

const (
	NoKind Kind = iota
	General
	Advisor
	Elephant
	Horse
	Chariot
	Cannon
	Soldier
)

var kindLetters = [...]byte{NoKind: '.', General: 'k', Advisor: 'a', Elephant: 'b', Horse: 'n', Chariot: 'r', Cannon: 'c', Soldier: 'p'}

var kindNames = [...]string{NoKind: "none", General: "general", Advisor: "advisor", Elephant: "elephant", Horse: "horse", Chariot: "chariot", Cannon: "cannon", Soldier: "soldier"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Piece is a (kind, side) pair. The zero value is an empty square.
type Piece struct {
	Kind Kind
	Side Side
}

// Empty reports whether p denotes no piece.
func (p Piece) Empty() bool { return p.Kind == NoKind }

// Letter returns the position-text symbol: upper case for Red, lower case for Black.
func (p Piece) Letter() byte {
	if p.Empty() {
		return '.'
	}
	l := kindLetters[p.Kind]
	if p.Side == Red {
		return l - 'a' + 'A'
	}
	return l
}

func (p Piece) String() string {
	if p.Empty() {
		return "empty"
	}
	return p.Side.String() + " " + p.Kind.String()
}

// pieceFromLetter maps a position-text symbol to a piece.
func pieceFromLetter(ch byte) (Piece, bool) {
	side := Black
	lower := ch
	if ch >= 'A' && ch <= 'Z' {
		side = Red
		lower = ch - 'A' + 'a'
	}
	idx := strings.IndexByte("kabnrcp", lower)
	if idx < 0 {
		return Piece{}, false
	}
	return Piece{Kind: Kind(idx + 1), Side: side}, true
}
