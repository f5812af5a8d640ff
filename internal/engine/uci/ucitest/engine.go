// Package ucitest provides an in-process engine that speaks enough of the
// UCI protocol for session and dispatcher tests.
package ucitest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Config struct {
	// Delay is slept between depth iterations.
	Delay time.Duration
	// BestMove picks the reply for a position; "h2e2" when nil.
	BestMove func(fen string) string
	// Score is the centipawn score at a depth; 10*depth when nil.
	Score func(fen string, depth int) int
	// IgnoreStop keeps searching after "stop" until the depth is reached.
	IgnoreStop bool
	// SkipHandshake never answers "uci".
	SkipHandshake bool
}

// Engine is a fake engine wired to a pair of pipes.
type Engine struct {
	cfg Config

	cmdR *io.PipeReader
	cmdW *io.PipeWriter
	outR *io.PipeReader
	outW *io.PipeWriter

	wmu sync.Mutex

	mu       sync.Mutex
	commands []string
	fen      string
	wdl      bool
	multipv  int
	stop     chan struct{}
}

func New(cfg Config) *Engine {
	e := &Engine{cfg: cfg, multipv: 1}
	e.cmdR, e.cmdW = io.Pipe()
	e.outR, e.outW = io.Pipe()
	go e.serve()
	return e
}

// Stdout is what the session reads.
func (e *Engine) Stdout() io.Reader { return e.outR }

// Stdin is what the session writes.
func (e *Engine) Stdin() io.WriteCloser { return e.cmdW }

// Commands returns every line received so far.
func (e *Engine) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

// Count returns how many received lines start with prefix.
func (e *Engine) Count(prefix string) int {
	n := 0
	for _, c := range e.Commands() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Crash closes the output stream as if the process died.
func (e *Engine) Crash() {
	_ = e.outW.CloseWithError(io.ErrUnexpectedEOF)
	_ = e.cmdR.Close()
}

func (e *Engine) serve() {
	defer e.outW.Close()
	sc := bufio.NewScanner(e.cmdR)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		e.mu.Lock()
		e.commands = append(e.commands, line)
		e.mu.Unlock()

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "uci":
			if e.cfg.SkipHandshake {
				continue
			}
			e.write("id name ucitest")
			e.write("option name MultiPV type spin default 1 min 1 max 8")
			e.write("uciok")
		case "isready":
			e.write("readyok")
		case "setoption":
			e.setOption(fields)
		case "position":
			if len(fields) > 2 && fields[1] == "fen" {
				e.mu.Lock()
				e.fen = strings.Join(fields[2:], " ")
				e.mu.Unlock()
			}
		case "go":
			depth := 1000
			if len(fields) >= 3 && fields[1] == "depth" {
				if v, err := strconv.Atoi(fields[2]); err == nil {
					depth = v
				}
			}
			e.startSearch(depth)
		case "stop":
			e.mu.Lock()
			if e.stop != nil && !e.cfg.IgnoreStop {
				close(e.stop)
				e.stop = nil
			}
			e.mu.Unlock()
		case "quit":
			return
		}
	}
}

func (e *Engine) setOption(fields []string) {
	// setoption name <name> value <value>
	if len(fields) < 5 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch fields[2] {
	case "UCI_ShowWDL":
		e.wdl = fields[4] == "true"
	case "MultiPV":
		if v, err := strconv.Atoi(fields[4]); err == nil && v > 0 {
			e.multipv = v
		}
	}
}

func (e *Engine) startSearch(depth int) {
	stop := make(chan struct{})
	e.mu.Lock()
	e.stop = stop
	fen, wdl, multipv := e.fen, e.wdl, e.multipv
	e.mu.Unlock()

	best := "h2e2"
	if e.cfg.BestMove != nil {
		best = e.cfg.BestMove(fen)
	}
	score := func(d int) int { return 10 * d }
	if e.cfg.Score != nil {
		score = func(d int) int { return e.cfg.Score(fen, d) }
	}

	go func() {
	loop:
		for d := 1; d <= depth; d++ {
			for k := 1; k <= multipv; k++ {
				line := fmt.Sprintf("info depth %d seldepth %d multipv %d score cp %d", d, d+2, k, score(d)-k+1)
				if wdl {
					line += " wdl 500 300 200"
				}
				line += fmt.Sprintf(" nodes %d nps %d pv %s h9g7", d*1000, 100000, best)
				e.write(line)
			}
			select {
			case <-stop:
				break loop
			case <-time.After(e.cfg.Delay):
			}
		}
		e.write("bestmove " + best + " ponder h9g7")
	}()
}

func (e *Engine) write(line string) {
	e.wmu.Lock()
	defer e.wmu.Unlock()
	_, _ = io.WriteString(e.outW, line+"\n")
}
