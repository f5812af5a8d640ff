package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	defaultStopTimeout   = 3 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
	lineBuffer           = 256
	eventBuffer          = 64
)

type Options struct {
	Threads      int
	HashMB       int
	ShowWDL      bool
	StopTimeout  time.Duration
	ReadyTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if o.HashMB <= 0 {
		o.HashMB = 16
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = defaultStopTimeout
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = defaultReadyTimeout
	}
	return o
}

// State is the protocol state of a Session.
type State int32

const (
	StateIdle State = iota
	StateSearching
	StateStopping
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateStopping:
		return "stopping"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type EventKind uint8

const (
	EventProgress EventKind = iota + 1
	EventResult
)

// Event is either a Progress (Info set) or the single terminal Result.
type Event struct {
	Kind   EventKind
	Info   Info
	Result Result
}

// Result closes a search. Depth is the deepest iteration reported.
type Result struct {
	BestMove string
	Ponder   string
	Depth    int
}

// Session owns one engine process and serializes access to it. Only one
// search runs at a time; calls that do not fit the current state are
// rejected rather than queued.
type Session struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string
	done  chan struct{}
	log   *zap.Logger
	opt   Options

	// readErr is written before lines is closed.
	readErr error

	wmu sync.Mutex

	mu       sync.Mutex
	state    State
	position string
	broken   error
	active   *Search

	closeOnce sync.Once
	closeErr  error
}

// Start launches the engine binary at path and completes the handshake.
func Start(ctx context.Context, path string, opt Options, logger *zap.Logger) (*Session, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &EngineLaunchError{Path: path, Err: fmt.Errorf("create stdin pipe: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, &EngineLaunchError{Path: path, Err: fmt.Errorf("create stdout pipe: %w", err)}
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, &EngineLaunchError{Path: path, Err: err}
	}

	s := newSession(path, stdout, stdin, opt, logger)
	s.cmd = cmd
	if err := s.initialize(ctx); err != nil {
		_ = s.Close()
		return nil, &EngineLaunchError{Path: path, Err: err}
	}
	s.log.Info("engine_start", zap.String("path", path), zap.Int("pid", cmd.Process.Pid))
	return s, nil
}

// NewSessionIO runs the handshake over an already connected engine, for
// engines that are not local processes.
func NewSessionIO(ctx context.Context, stdout io.Reader, stdin io.WriteCloser, opt Options, logger *zap.Logger) (*Session, error) {
	s := newSession("pipe", stdout, stdin, opt, logger)
	if err := s.initialize(ctx); err != nil {
		_ = s.Close()
		return nil, &EngineLaunchError{Path: s.name, Err: err}
	}
	return s, nil
}

func newSession(name string, stdout io.Reader, stdin io.WriteCloser, opt Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		name:  name,
		stdin: stdin,
		lines: make(chan string, lineBuffer),
		done:  make(chan struct{}),
		log:   logger.With(zap.String("engine", name)),
		opt:   opt.withDefaults(),
	}
	go s.readLoop(stdout)
	return s
}

func (s *Session) readLoop(r io.Reader) {
	defer close(s.lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case s.lines <- line:
		case <-s.done:
			s.readErr = ErrClosed
			return
		}
	}
	s.readErr = sc.Err()
	if s.readErr == nil {
		s.readErr = io.EOF
	}
}

func (s *Session) initialize(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, s.opt.ReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return err
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return err
	}

	cmds := []string{
		"setoption name Threads value " + strconv.Itoa(s.opt.Threads) + "\n",
		"setoption name Hash value " + strconv.Itoa(s.opt.HashMB) + "\n",
	}
	if s.opt.ShowWDL {
		cmds = append(cmds, "setoption name UCI_ShowWDL value true\n")
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return err
		}
	}

	if err := s.send("isready\n"); err != nil {
		return err
	}
	return s.awaitToken(initCtx, "readyok")
}

// State reports the current protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that broke the session, if any. A broken session
// stays idle but rejects every further command; the owner decides whether
// to relaunch.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken
}

func (s *Session) checkIdleLocked() error {
	if s.broken != nil {
		return s.broken
	}
	switch s.state {
	case StateIdle:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotIdle
	}
}

func (s *Session) breakLocked(err error) {
	if s.broken == nil {
		s.broken = err
		s.log.Warn("engine_protocol_error", zap.Error(err))
	}
}

// SetPosition sends the position for the next search. Valid only when idle.
func (s *Session) SetPosition(pos xiangqi.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(); err != nil {
		return err
	}
	fen := pos.FEN()
	if err := s.send(buildPositionCommand(fen)); err != nil {
		s.breakLocked(err)
		return err
	}
	s.position = fen
	return nil
}

// Search starts a depth-limited search of the last position set. Events
// arrive on the returned handle; depth <= 0 searches until cancelled.
// Cancelling ctx has the same effect as Cancel.
func (s *Session) Search(ctx context.Context, depth int) (*Search, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken != nil {
		return nil, s.broken
	}
	switch s.state {
	case StateClosed:
		return nil, ErrClosed
	case StateSearching, StateStopping:
		return nil, ErrBusy
	}
	if s.position == "" {
		return nil, ErrNoPosition
	}
	if err := s.send(buildGoCommand(depth)); err != nil {
		s.breakLocked(err)
		return nil, err
	}

	sr := &Search{
		FEN:    s.position,
		Depth:  depth,
		events: make(chan Event, eventBuffer),
		stop:   make(chan struct{}),
	}
	s.position = ""
	s.state = StateSearching
	s.active = sr
	s.log.Debug("engine_search", zap.String("fen", sr.FEN), zap.Int("depth", depth))

	go s.pump(ctx, sr)
	return sr, nil
}

// Cancel asks the running search to stop. The search still ends with its
// Result event.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSearching || s.active == nil {
		return ErrNotSearching
	}
	return s.stopLocked()
}

func (s *Session) stopLocked() error {
	s.state = StateStopping
	close(s.active.stop)
	s.log.Debug("engine_stop", zap.String("fen", s.active.FEN))
	// a failed write surfaces through the pump as a closed stream
	return s.send("stop\n")
}

func (s *Session) pump(ctx context.Context, sr *Search) {
	defer close(sr.events)

	var (
		stopCh  = sr.stop
		ctxDone = ctx.Done()
		timer   *time.Timer
		timeout <-chan time.Time
		depth   int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.finish(sr, &EngineProtocolError{Op: "search", Err: s.readErr})
				return
			}
			switch {
			case strings.HasPrefix(line, "info"):
				if info, ok := ParseInfo(line); ok {
					if info.Depth > depth {
						depth = info.Depth
					}
					sr.events <- Event{Kind: EventProgress, Info: info}
				}
			case strings.HasPrefix(line, "bestmove"):
				bm, err := ParseBestMove(line)
				if err != nil {
					s.finish(sr, &EngineProtocolError{Op: "search", Line: line, Err: err})
					return
				}
				s.finish(sr, nil)
				sr.events <- Event{Kind: EventResult, Result: Result{BestMove: bm.Move, Ponder: bm.Ponder, Depth: depth}}
				return
			}
		case <-stopCh:
			stopCh = nil
			timer = time.NewTimer(s.opt.StopTimeout)
			timeout = timer.C
		case <-ctxDone:
			ctxDone = nil
			s.mu.Lock()
			if s.state == StateSearching && s.active == sr {
				_ = s.stopLocked()
			}
			s.mu.Unlock()
		case <-timeout:
			s.finish(sr, &EngineProtocolError{Op: "stop", Err: ErrStopTimeout})
			return
		case <-s.done:
			s.finish(sr, &EngineProtocolError{Op: "search", Err: ErrClosed})
			return
		}
	}
}

// finish returns the session to idle before the terminal event is
// delivered, so a caller that saw Result may issue the next command.
func (s *Session) finish(sr *Search, err error) {
	s.mu.Lock()
	if s.active == sr {
		s.active = nil
	}
	if s.state != StateClosed {
		s.state = StateIdle
	}
	if err != nil {
		s.breakLocked(err)
	}
	s.mu.Unlock()
	sr.err = err
}

// Analyse runs a blocking search and returns the final line for each
// principal variation. multipv > 1 is applied for this search only.
func (s *Session) Analyse(ctx context.Context, pos xiangqi.Position, depth, multipv int) (AnalysisResult, error) {
	if multipv > 1 {
		if err := s.setOption("MultiPV", strconv.Itoa(multipv)); err != nil {
			return AnalysisResult{}, err
		}
		defer func() { _ = s.setOption("MultiPV", "1") }()
	}
	if err := s.SetPosition(pos); err != nil {
		return AnalysisResult{}, err
	}
	sr, err := s.Search(ctx, depth)
	if err != nil {
		return AnalysisResult{}, err
	}

	lines := make(map[int]Info)
	var res Result
	for ev := range sr.Events() {
		switch ev.Kind {
		case EventProgress:
			lines[ev.Info.MultiPV] = ev.Info
		case EventResult:
			res = ev.Result
		}
	}
	if err := sr.Err(); err != nil {
		return AnalysisResult{}, err
	}
	return AnalysisResult{
		FEN:      sr.FEN,
		BestMove: res.BestMove,
		Ponder:   res.Ponder,
		Depth:    res.Depth,
		Lines:    collapseLines(lines),
	}, nil
}

func (s *Session) setOption(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(); err != nil {
		return err
	}
	if err := s.send("setoption name " + name + " value " + value + "\n"); err != nil {
		s.breakLocked(err)
		return err
	}
	return nil
}

// EnsureReady round-trips isready/readyok. The session lock is held for the
// exchange, so concurrent callers wait for it.
func (s *Session) EnsureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureReadyLocked(ctx)
}

func (s *Session) ensureReadyLocked(ctx context.Context) error {
	if err := s.checkIdleLocked(); err != nil {
		return err
	}
	readyCtx, cancel := context.WithTimeout(ctx, s.opt.ReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		s.breakLocked(err)
		return err
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		s.breakLocked(err)
		return err
	}
	return nil
}

// NewGame clears engine-side game state and forgets any pending position.
func (s *Session) NewGame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdleLocked(); err != nil {
		return err
	}
	if err := s.send("ucinewgame\n"); err != nil {
		s.breakLocked(err)
		return err
	}
	s.position = ""

	for attempt := 1; ; attempt++ {
		if err := s.send("isready\n"); err != nil {
			s.breakLocked(err)
			return err
		}
		readyCtx, cancel := context.WithTimeout(ctx, s.opt.ReadyTimeout)
		err := s.awaitToken(readyCtx, "readyok")
		cancel()
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts || errors.Is(err, io.EOF) {
			s.breakLocked(err)
			return err
		}
		s.log.Warn("engine_ready_retry", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
}

// Close stops the engine. A running search ends with ErrClosed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		close(s.done)

		s.wmu.Lock()
		_ = s.stdin.Close()
		s.wmu.Unlock()

		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
			err := s.cmd.Wait()
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				s.closeErr = err
			}
		}
		s.log.Debug("engine_close")
	})
	return s.closeErr
}

func (s *Session) send(msg string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := io.WriteString(s.stdin, msg); err != nil {
		return &EngineProtocolError{Op: "write", Line: strings.TrimSpace(msg), Err: err}
	}
	return nil
}

// awaitToken consumes lines until one starts with token.
func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return &EngineProtocolError{Op: "await " + token, Err: s.readErr}
			}
			if f := strings.Fields(line); len(f) > 0 && f[0] == token {
				return nil
			}
		case <-ctx.Done():
			return &EngineProtocolError{Op: "await " + token, Err: ctx.Err()}
		case <-s.done:
			return &EngineProtocolError{Op: "await " + token, Err: ErrClosed}
		}
	}
}

// Search is the handle of one running search. Events is closed after the
// Result event or after a failure; Err is valid once it is closed.
type Search struct {
	FEN   string
	Depth int

	events chan Event
	stop   chan struct{}
	err    error
}

func (sr *Search) Events() <-chan Event { return sr.events }

func (sr *Search) Err() error { return sr.err }

// Drain discards the remaining events and returns Err.
func (sr *Search) Drain() error {
	for range sr.events {
	}
	return sr.err
}

// AnalysisResult is the outcome of a blocking Analyse call.
type AnalysisResult struct {
	FEN      string `json:"fen"`
	BestMove string `json:"best_move"`
	Ponder   string `json:"ponder,omitempty"`
	Depth    int    `json:"depth"`
	Lines    []Info `json:"lines"`
}
