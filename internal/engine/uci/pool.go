package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Launcher starts a ready-to-use session.
type Launcher func(ctx context.Context) (*Session, error)

type PoolConfig struct {
	BinaryPath string
	Options    Options
	Capacity   int
	Logger     *zap.Logger
	// Launch overrides process startup; BinaryPath is not checked when set.
	Launch Launcher
}

// Pool hands out at most Capacity sessions. A session returned with an
// error, or one that broke while leased, is closed and replaced by a fresh
// launch on a later Acquire.
type Pool struct {
	launch   Launcher
	capacity int
	log      *zap.Logger

	// slots holds one token per live session.
	slots chan struct{}
	idle  chan *Session

	mu     sync.Mutex
	leased map[*Session]struct{}
	closed bool
}

var ErrPoolClosed = errors.New("uci: pool closed")

func NewPool(cfg PoolConfig) (*Pool, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	launch := cfg.Launch
	if launch == nil {
		if cfg.BinaryPath == "" {
			return nil, fmt.Errorf("binary path required")
		}
		if _, err := os.Stat(cfg.BinaryPath); err != nil {
			return nil, &EngineLaunchError{Path: cfg.BinaryPath, Err: err}
		}
		path, opt := cfg.BinaryPath, cfg.Options
		launch = func(ctx context.Context) (*Session, error) {
			return Start(ctx, path, opt, logger)
		}
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	return &Pool{
		launch:   launch,
		capacity: capacity,
		log:      logger,
		slots:    make(chan struct{}, capacity),
		idle:     make(chan *Session, capacity),
		leased:   make(map[*Session]struct{}),
	}, nil
}

func (p *Pool) Capacity() int { return p.capacity }

// Acquire leases an idle session, launching one while under capacity and
// otherwise waiting for a Release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}
		// prefer a warm session over launching a new one
		select {
		case s := <-p.idle:
			if p.ready(ctx, s) {
				return s, nil
			}
			continue
		default:
		}

		select {
		case s := <-p.idle:
			if p.ready(ctx, s) {
				return s, nil
			}
		case p.slots <- struct{}{}:
			s, err := p.launch(ctx)
			if err != nil {
				<-p.slots
				return nil, err
			}
			p.lease(s)
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) lease(s *Session) {
	p.mu.Lock()
	p.leased[s] = struct{}{}
	p.mu.Unlock()
}

func (p *Pool) ready(ctx context.Context, s *Session) bool {
	if err := s.EnsureReady(ctx); err != nil {
		p.log.Warn("engine_pool_discard", zap.Error(err))
		p.drop(s)
		return false
	}
	p.lease(s)
	return true
}

// Release returns a leased session. A non-nil err, a broken session or one
// left mid-search is closed instead of reused.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	_, ok := p.leased[s]
	delete(p.leased, s)
	closed := p.closed
	p.mu.Unlock()
	if !ok {
		_ = s.Close()
		return
	}

	if err != nil || closed || s.Err() != nil || s.State() != StateIdle {
		p.drop(s)
		return
	}
	select {
	case p.idle <- s:
	default:
		p.drop(s)
	}
}

func (p *Pool) drop(s *Session) {
	_ = s.Close()
	<-p.slots
}

// Close shuts down idle sessions. Leased sessions are closed as they are
// released.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case s := <-p.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			<-p.slots
		default:
			return errors.Join(errs...)
		}
	}
}

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}
