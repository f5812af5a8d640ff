package xiangqi

import "testing"

func mustFEN(t *testing.T, text string) Position {
	t.Helper()
	p, err := ParseFEN(text)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", text, err)
	}
	return p
}

func mustMove(t *testing.T, token string) Move {
	t.Helper()
	m, err := ParseMove(token)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", token, err)
	}
	return m
}

func hasMove(moves []Move, m Move) bool {
	for _, x := range moves {
		if x == m {
			return true
		}
	}
	return false
}

func TestLegalMoves_StartPosition(t *testing.T) {
	p := StartPosition()
	moves := LegalMoves(p)
	if len(moves) != 44 {
		t.Fatalf("start position: %d legal moves, want 44", len(moves))
	}
	if !hasMove(moves, mustMove(t, "b2e2")) {
		t.Fatalf("b2e2 missing from red's legal moves")
	}

	black := NewPosition(p.Board(), Black)
	if hasMove(LegalMoves(black), mustMove(t, "b2e2")) {
		t.Fatalf("b2e2 must not be legal for black")
	}
	if !hasMove(LegalMoves(black), mustMove(t, "h7e7")) {
		t.Fatalf("h7e7 missing from black's legal moves")
	}
}

func TestLegalMoves_NeverExposeOwnGeneral(t *testing.T) {
	p := StartPosition()
	for ply := 0; ply < 60; ply++ {
		moves := LegalMoves(p)
		if len(moves) == 0 {
			break
		}
		for _, m := range moves {
			next := p.Apply(m)
			if generalExposed(&next.board, p.side) {
				t.Fatalf("ply %d: %s leaves %v general attacked in %q", ply, m, p.side, p.FEN())
			}
			if next.SideToMove() != p.SideToMove().Opponent() {
				t.Fatalf("ply %d: side to move not flipped after %s", ply, m)
			}
		}
		p = p.Apply(moves[(ply*11)%len(moves)])
	}
}

func TestFlyingGeneral(t *testing.T) {
	red := mustFEN(t, "4k4/9/9/9/9/9/9/9/9/4K4 w")
	if !hasMove(LegalMoves(red), mustMove(t, "e0e9")) {
		t.Fatalf("red general should capture across the open file")
	}
	black := mustFEN(t, "4k4/9/9/9/9/9/9/9/9/4K4 b")
	if !hasMove(LegalMoves(black), mustMove(t, "e9e0")) {
		t.Fatalf("black general should capture across the open file")
	}

	blocked := mustFEN(t, "4k4/9/9/9/4p4/9/9/9/9/4K4 w")
	if hasMove(LegalMoves(blocked), mustMove(t, "e0e9")) {
		t.Fatalf("generals with a piece between them must not capture")
	}
	// stepping aside would face the other general
	facing := mustFEN(t, "3k5/9/9/9/9/9/9/9/9/4K4 w")
	if hasMove(LegalMoves(facing), mustMove(t, "e0d0")) {
		t.Fatalf("e0d0 exposes the red general to the flying general")
	}
}

func TestCannonCaptureNeedsOneScreen(t *testing.T) {
	capture := mustMove(t, "a4i4")
	cases := []struct {
		fen  string
		want bool
	}{
		{"4k4/9/9/9/9/C7r/9/9/9/3K5 w", false},
		{"4k4/9/9/9/9/C3P3r/9/9/9/3K5 w", true},
		{"4k4/9/9/9/9/C3p3r/9/9/9/3K5 w", true},
		{"4k4/9/9/9/9/C2PP3r/9/9/9/3K5 w", false},
	}
	for _, tc := range cases {
		p := mustFEN(t, tc.fen)
		if got := hasMove(LegalMoves(p), capture); got != tc.want {
			t.Fatalf("%s: a4i4 legal = %v, want %v", tc.fen, got, tc.want)
		}
	}
	// without a screen the cannon slides up to the target but not onto it
	p := mustFEN(t, "4k4/9/9/9/9/C7r/9/9/9/3K5 w")
	if !hasMove(LegalMoves(p), mustMove(t, "a4h4")) {
		t.Fatalf("a4h4 should be a quiet slide")
	}
}

func TestHorseLegAndElephantEye(t *testing.T) {
	// red horse on h0 with its leg on h1 blocked
	p := mustFEN(t, "4k4/9/9/9/9/9/9/9/7P1/3K3N1 w")
	from := Sq(9, 7)
	for _, m := range LegalMovesFrom(p, from) {
		if m.To == Sq(7, 6) || m.To == Sq(7, 8) {
			t.Fatalf("hobbled horse produced %s", m)
		}
	}
	// elephant eye on d1 is blocked and the c4 elephant cannot cross the river
	p = mustFEN(t, "4k4/9/9/9/9/2B6/9/9/3P5/2B2K3 w")
	if IsLegal(p, mustMove(t, "c0e2")) {
		t.Fatalf("elephant eye at d1 is blocked")
	}
	if !IsLegal(p, mustMove(t, "c0a2")) {
		t.Fatalf("c0a2 should be legal")
	}
	for _, m := range LegalMovesFrom(p, Sq(5, 2)) {
		if m.To.Row < 5 {
			t.Fatalf("elephant crossed the river: %s", m)
		}
	}
}

func TestSoldierSidewaysAfterRiver(t *testing.T) {
	p := mustFEN(t, "4k4/9/9/9/4P4/9/2P6/9/9/3K5 w")
	crossed := LegalMovesFrom(p, Sq(4, 4))
	if len(crossed) != 3 {
		t.Fatalf("crossed soldier has %d moves, want 3", len(crossed))
	}
	home := LegalMovesFrom(p, Sq(6, 2))
	if len(home) != 1 || home[0].To != Sq(5, 2) {
		t.Fatalf("soldier before the river should only advance, got %v", home)
	}
}

func TestPalaceConfinement(t *testing.T) {
	p := mustFEN(t, "4k4/9/9/9/9/9/9/3A5/9/5K3 w")
	for _, m := range LegalMovesFrom(p, Sq(7, 3)) {
		if !inPalace(Red, m.To) {
			t.Fatalf("advisor left the palace: %s", m)
		}
	}
	for _, m := range LegalMovesFrom(p, Sq(9, 5)) {
		if !inPalace(Red, m.To) {
			t.Fatalf("general left the palace: %s", m)
		}
	}
}

func TestCheckmateAndStalemateExclusive(t *testing.T) {
	mate := mustFEN(t, "R3k4/R8/9/9/9/9/9/9/9/3K5 b")
	if !IsCheckmate(mate) || IsStalemate(mate) {
		t.Fatalf("expected checkmate: check=%v moves=%d", InCheck(mate), len(LegalMoves(mate)))
	}
	// black general boxed in by the flying general and a chariot, but not in check
	stale := mustFEN(t, "3k5/R8/9/9/9/9/9/9/9/4K4 b")
	if !IsStalemate(stale) || IsCheckmate(stale) {
		t.Fatalf("expected stalemate: check=%v moves=%d", InCheck(stale), len(LegalMoves(stale)))
	}
	if got := Evaluate(stale).Label(); got != "draw" {
		t.Fatalf("stalemate label = %q, want draw", got)
	}
	if got := Evaluate(mate).Label(); got != "red_wins" {
		t.Fatalf("checkmate label = %q, want red_wins", got)
	}
}
