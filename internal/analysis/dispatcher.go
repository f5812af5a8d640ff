package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-tutor/internal/engine/uci"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

var ErrDispatcherClosed = errors.New("analysis: dispatcher closed")

const outBuffer = 64

// EnginePool is the lease interface a Dispatcher needs; *uci.Pool
// satisfies it.
type EnginePool interface {
	Acquire(ctx context.Context) (*uci.Session, error)
	Release(s *uci.Session, err error)
}

type request struct {
	seq   uint64
	pos   xiangqi.Position
	depth int
}

// Dispatcher serializes analysis requests for one client. Every Submit
// supersedes the previous request: its search is stopped and drained, and
// only events tagged with the latest sequence number reach Events.
type Dispatcher struct {
	ID string

	pool EnginePool
	log  *zap.Logger

	seq atomic.Uint64

	mu      sync.Mutex
	pending *request
	closed  bool

	wake chan struct{}
	raw  chan Event
	out  chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewDispatcher(pool EnginePool, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	d := &Dispatcher{
		ID:     id,
		pool:   pool,
		log:    logger.With(zap.String("dispatcher", id)),
		wake:   make(chan struct{}, 1),
		raw:    make(chan Event),
		out:    make(chan Event, outBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	d.wg.Add(2)
	go d.work()
	go d.relay()
	return d
}

// Events is closed after Close.
func (d *Dispatcher) Events() <-chan Event { return d.out }

// Latest returns the sequence number of the newest request.
func (d *Dispatcher) Latest() uint64 { return d.seq.Load() }

// Submit queues pos for analysis and returns the request's sequence number.
// It never blocks on the engine.
func (d *Dispatcher) Submit(pos xiangqi.Position, depth int) (uint64, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, ErrDispatcherClosed
	}
	seq := d.seq.Add(1)
	d.pending = &request{seq: seq, pos: pos, depth: depth}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	d.log.Debug("dispatch_submit", zap.Uint64("seq", seq), zap.String("fen", pos.FEN()), zap.Int("depth", depth))
	return seq, nil
}

// Close stops any running search, waits for it to wind down and closes
// Events.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		d.cancel()
		d.wg.Wait()
		close(d.out)
	})
}

func (d *Dispatcher) takePending() *request {
	d.mu.Lock()
	defer d.mu.Unlock()
	req := d.pending
	d.pending = nil
	return req
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		req := d.takePending()
		if req == nil {
			select {
			case <-d.ctx.Done():
				return
			case <-d.wake:
				continue
			}
		}
		if req.seq != d.seq.Load() {
			continue
		}
		d.serve(req)
	}
}

// serve runs one request to completion or until it is superseded.
func (d *Dispatcher) serve(req *request) {
	sess, err := d.pool.Acquire(d.ctx)
	if err != nil {
		if d.ctx.Err() == nil {
			d.forward(Event{Seq: req.seq, Kind: KindFailed, FEN: req.pos.FEN(), Err: err})
		}
		return
	}
	if req.seq != d.seq.Load() {
		d.pool.Release(sess, nil)
		return
	}

	sr, err := d.start(sess, req)
	if err != nil {
		d.pool.Release(sess, err)
		d.forward(Event{Seq: req.seq, Kind: KindFailed, FEN: req.pos.FEN(), Err: err})
		return
	}

	fen := req.pos.FEN()
	for {
		select {
		case ev, ok := <-sr.Events():
			if !ok {
				err := sr.Err()
				d.pool.Release(sess, err)
				if err != nil {
					d.log.Warn("dispatch_search_failed", zap.Uint64("seq", req.seq), zap.Error(err))
					d.forward(Event{Seq: req.seq, Kind: KindFailed, FEN: fen, Err: err})
				}
				return
			}
			switch ev.Kind {
			case uci.EventProgress:
				d.forward(Event{Seq: req.seq, Kind: KindProgress, FEN: fen, Progress: progressFrom(req.pos, ev.Info)})
			case uci.EventResult:
				d.forward(Event{Seq: req.seq, Kind: KindResult, FEN: fen, Result: resultFrom(req.pos, ev.Result)})
			}
		case <-d.wake:
			if req.seq == d.seq.Load() {
				// token left over from this request's own Submit
				continue
			}
			d.abandon(sess, sr, req.seq)
			return
		case <-d.ctx.Done():
			d.abandon(sess, sr, req.seq)
			return
		}
	}
}

func (d *Dispatcher) start(sess *uci.Session, req *request) (*uci.Search, error) {
	if err := sess.SetPosition(req.pos); err != nil {
		return nil, err
	}
	return sess.Search(d.ctx, req.depth)
}

// abandon stops a superseded search and waits for its terminal event, so
// the engine is idle before the next position is sent.
func (d *Dispatcher) abandon(sess *uci.Session, sr *uci.Search, seq uint64) {
	_ = sess.Cancel()
	err := sr.Drain()
	d.pool.Release(sess, err)
	d.log.Debug("dispatch_superseded", zap.Uint64("seq", seq), zap.Error(err))
}

func (d *Dispatcher) forward(ev Event) {
	select {
	case d.raw <- ev:
	case <-d.ctx.Done():
	}
}

// relay is the single point where stale events are dropped.
func (d *Dispatcher) relay() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.raw:
			if ev.Seq != d.seq.Load() {
				d.log.Debug("dispatch_drop_stale", zap.Uint64("seq", ev.Seq), zap.String("kind", string(ev.Kind)))
				continue
			}
			select {
			case d.out <- ev:
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			return
		}
	}
}
