package uci

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// WDL is the engine's win/draw/loss estimate in permille for the side to move.
type WDL struct {
	Win  int `json:"win"`
	Draw int `json:"draw"`
	Loss int `json:"loss"`
}

// Info is one progress line of a running search. Scores are from the side
// to move's perspective. Mate is nil unless the engine reported a mate
// distance, in which case ScoreCP is a saturated stand-in.
type Info struct {
	Depth   int      `json:"depth"`
	MultiPV int      `json:"multipv"`
	ScoreCP int      `json:"score_cp"`
	Mate    *int     `json:"score_mate"`
	WDL     *WDL     `json:"wdl"`
	Nodes   int64    `json:"nodes"`
	NPS     int64    `json:"nps"`
	PV      []string `json:"pv"`
}

// BestMove is the terminal line of a search. Ponder is empty when absent.
type BestMove struct {
	Move   string
	Ponder string
}

// MateScore is the centipawn stand-in for a reported mate distance.
const MateScore = 30000

// ParseInfo parses an "info" line. Lines without both a depth and a score
// (currmove updates, "info string" chatter) are reported as not ok.
func ParseInfo(line string) (Info, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 || parts[0] != "info" {
		return Info{}, false
	}
	info := Info{MultiPV: 1}
	var depthSet, scoreSet bool

	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "string":
			return Info{}, false
		case "depth":
			if v, ok := intAt(parts, i+1); ok {
				info.Depth = v
				depthSet = true
				i++
			}
		case "multipv":
			if v, ok := intAt(parts, i+1); ok {
				info.MultiPV = v
				i++
			}
		case "score":
			if i+2 >= len(parts) {
				continue
			}
			v, err := strconv.Atoi(parts[i+2])
			if err != nil {
				continue
			}
			switch parts[i+1] {
			case "cp":
				info.ScoreCP = v
				scoreSet = true
			case "mate":
				mate := v
				info.Mate = &mate
				if v >= 0 {
					info.ScoreCP = MateScore
				} else {
					info.ScoreCP = -MateScore
				}
				scoreSet = true
			}
			i += 2
		case "wdl":
			w, ok1 := intAt(parts, i+1)
			d, ok2 := intAt(parts, i+2)
			l, ok3 := intAt(parts, i+3)
			if ok1 && ok2 && ok3 {
				info.WDL = &WDL{Win: w, Draw: d, Loss: l}
				i += 3
			}
		case "nodes":
			if v, err := int64At(parts, i+1); err == nil {
				info.Nodes = v
				i++
			}
		case "nps":
			if v, err := int64At(parts, i+1); err == nil {
				info.NPS = v
				i++
			}
		case "pv":
			info.PV = append([]string(nil), parts[i+1:]...)
			i = len(parts)
		}
	}
	if !depthSet || !scoreSet {
		return Info{}, false
	}
	return info, true
}

// ParseBestMove parses "bestmove <move> [ponder <move>]". "(none)" and
// "0000" mean the engine had no move and yield an empty Move.
func ParseBestMove(line string) (BestMove, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[0] != "bestmove" {
		return BestMove{}, fmt.Errorf("want \"bestmove <move>\", got %q", line)
	}
	var bm BestMove
	if parts[1] != "(none)" && parts[1] != "0000" {
		bm.Move = parts[1]
	}
	for i := 2; i+1 < len(parts); i++ {
		if parts[i] == "ponder" {
			bm.Ponder = parts[i+1]
			break
		}
	}
	return bm, nil
}

func intAt(parts []string, i int) (int, bool) {
	if i >= len(parts) {
		return 0, false
	}
	v, err := strconv.Atoi(parts[i])
	return v, err == nil
}

func int64At(parts []string, i int) (int64, error) {
	if i >= len(parts) {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(parts[i], 10, 64)
}

// collapseLines keeps the latest info per multipv index, ordered by index.
func collapseLines(m map[int]Info) []Info {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]Info, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func buildPositionCommand(fen string) string {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + fen + "\n"
}

func buildGoCommand(depth int) string {
	if depth <= 0 {
		return "go infinite\n"
	}
	return "go depth " + strconv.Itoa(depth) + "\n"
}
