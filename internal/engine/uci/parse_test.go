package uci

import "testing"

func TestParseInfo(t *testing.T) {
	info, ok := ParseInfo("info depth 12 seldepth 18 multipv 2 score cp 35 wdl 400 400 200 nodes 12345 nps 67890 hashfull 10 time 100 pv h2e2 h9g7 h0g2")
	if !ok {
		t.Fatalf("ParseInfo rejected a full line")
	}
	if info.Depth != 12 || info.MultiPV != 2 || info.ScoreCP != 35 || info.Mate != nil {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.WDL == nil || *info.WDL != (WDL{Win: 400, Draw: 400, Loss: 200}) {
		t.Fatalf("wdl = %+v", info.WDL)
	}
	if info.Nodes != 12345 || info.NPS != 67890 {
		t.Fatalf("nodes/nps = %d/%d", info.Nodes, info.NPS)
	}
	if len(info.PV) != 3 || info.PV[0] != "h2e2" || info.PV[2] != "h0g2" {
		t.Fatalf("pv = %v", info.PV)
	}
}

func TestParseInfo_Mate(t *testing.T) {
	info, ok := ParseInfo("info depth 20 score mate -3 nodes 10 pv a0a1")
	if !ok {
		t.Fatalf("ParseInfo rejected a mate line")
	}
	if info.Mate == nil || *info.Mate != -3 || info.ScoreCP != -MateScore {
		t.Fatalf("mate info = %+v", info)
	}
	if info.MultiPV != 1 || info.WDL != nil {
		t.Fatalf("defaults not applied: %+v", info)
	}
}

func TestParseInfo_Ignored(t *testing.T) {
	for _, line := range []string{
		"info string NNUE evaluation using pikafish.nnue",
		"info depth 5 currmove h2e2 currmovenumber 1",
		"bestmove h2e2",
		"",
	} {
		if _, ok := ParseInfo(line); ok {
			t.Fatalf("ParseInfo(%q) should be ignored", line)
		}
	}
}

func TestParseBestMove(t *testing.T) {
	bm, err := ParseBestMove("bestmove h2e2 ponder h9g7")
	if err != nil || bm.Move != "h2e2" || bm.Ponder != "h9g7" {
		t.Fatalf("ParseBestMove = %+v, %v", bm, err)
	}
	bm, err = ParseBestMove("bestmove (none)")
	if err != nil || bm.Move != "" || bm.Ponder != "" {
		t.Fatalf("ParseBestMove(none) = %+v, %v", bm, err)
	}
	if _, err := ParseBestMove("bestmove"); err == nil {
		t.Fatalf("expected error for bare bestmove")
	}
}

func TestBuildCommands(t *testing.T) {
	if got := buildPositionCommand("4k4/9/9/9/9/9/9/9/9/3K5 w - - 0 1"); got != "position fen 4k4/9/9/9/9/9/9/9/9/3K5 w - - 0 1\n" {
		t.Fatalf("position = %q", got)
	}
	if got := buildGoCommand(18); got != "go depth 18\n" {
		t.Fatalf("go = %q", got)
	}
	if got := buildGoCommand(0); got != "go infinite\n" {
		t.Fatalf("go = %q", got)
	}
}
