package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/xiangqi-tutor/internal/engine/uci"
	"github.com/park285/xiangqi-tutor/internal/engine/uci/ucitest"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

type testEngines struct {
	mu      sync.Mutex
	engines []*ucitest.Engine
}

func (te *testEngines) last() *ucitest.Engine {
	te.mu.Lock()
	defer te.mu.Unlock()
	if len(te.engines) == 0 {
		return nil
	}
	return te.engines[len(te.engines)-1]
}

func newTestPool(t *testing.T, cfg ucitest.Config) (*uci.Pool, *testEngines) {
	t.Helper()
	te := &testEngines{}
	p, err := uci.NewPool(uci.PoolConfig{
		Capacity: 1,
		Launch: func(ctx context.Context) (*uci.Session, error) {
			eng := ucitest.New(cfg)
			te.mu.Lock()
			te.engines = append(te.engines, eng)
			te.mu.Unlock()
			return uci.NewSessionIO(ctx, eng.Stdout(), eng.Stdin(), uci.Options{ShowWDL: true}, nil)
		},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, te
}

func nextEvent(t *testing.T, d *Dispatcher) Event {
	t.Helper()
	select {
	case ev, ok := <-d.Events():
		if !ok {
			t.Fatalf("events closed")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for an event")
	}
	return Event{}
}

// untilResult collects events until the result or failure for seq.
func untilResult(t *testing.T, d *Dispatcher, seq uint64) []Event {
	t.Helper()
	var out []Event
	for {
		ev := nextEvent(t, d)
		out = append(out, ev)
		if ev.Seq == seq && (ev.Kind == KindResult || ev.Kind == KindFailed) {
			return out
		}
	}
}

func TestDispatcher_SingleRequest(t *testing.T) {
	pool, _ := newTestPool(t, ucitest.Config{})
	d := NewDispatcher(pool, nil)
	defer d.Close()

	seq, err := d.Submit(xiangqi.StartPosition(), 3)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	events := untilResult(t, d, seq)
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	for i, ev := range events[:3] {
		if ev.Seq != seq || ev.Kind != KindProgress || ev.Progress.Depth != i+1 {
			t.Fatalf("event %d = %+v", i, ev)
		}
	}
	p := events[0].Progress
	if len(p.PVNotation) != 2 || p.PVNotation[0] != "炮二平五" || p.PVNotation[1] != "马8进7" {
		t.Fatalf("pv notation = %v", p.PVNotation)
	}
	if p.WDL == nil {
		t.Fatalf("wdl missing")
	}
	res := events[3].Result
	if res.BestMove != "h2e2" || res.BestNotation != "炮二平五" || res.Ponder != "h9g7" || res.Depth != 3 {
		t.Fatalf("result = %+v", res)
	}
}

func TestDispatcher_SupersededEventsNeverFollowNewer(t *testing.T) {
	pool, te := newTestPool(t, ucitest.Config{Delay: 20 * time.Millisecond})
	d := NewDispatcher(pool, nil)
	defer d.Close()

	first, _ := d.Submit(xiangqi.StartPosition(), 1000)
	if ev := nextEvent(t, d); ev.Seq != first || ev.Kind != KindProgress {
		t.Fatalf("first event = %+v", ev)
	}

	next := xiangqi.StartPosition().Apply(xiangqi.Move{From: xiangqi.Sq(7, 7), To: xiangqi.Sq(7, 4)})
	second, _ := d.Submit(next, 2)
	if second != first+1 || d.Latest() != second {
		t.Fatalf("sequence numbers %d then %d", first, second)
	}

	events := untilResult(t, d, second)
	seenSecond := false
	for _, ev := range events {
		if ev.Seq == second {
			seenSecond = true
			continue
		}
		if seenSecond {
			t.Fatalf("event from request %d after request %d began: %+v", ev.Seq, second, ev)
		}
		if ev.Kind == KindResult {
			t.Fatalf("superseded request delivered its result")
		}
	}
	if last := events[len(events)-1]; last.Kind != KindResult || last.FEN != next.FEN() {
		t.Fatalf("last event = %+v", last)
	}
	if n := te.last().Count("stop"); n != 1 {
		t.Fatalf("stop sent %d times, want 1", n)
	}
}

func TestDispatcher_BurstOnlyLatestCompletes(t *testing.T) {
	pool, _ := newTestPool(t, ucitest.Config{Delay: 10 * time.Millisecond})
	d := NewDispatcher(pool, nil)
	defer d.Close()

	var last uint64
	for i := 0; i < 5; i++ {
		depth := 1000
		if i == 4 {
			depth = 2
		}
		last, _ = d.Submit(xiangqi.StartPosition(), depth)
	}
	events := untilResult(t, d, last)
	seenLast := false
	for _, ev := range events {
		if ev.Seq == last {
			seenLast = true
		} else if seenLast {
			t.Fatalf("stale event %d after %d", ev.Seq, last)
		}
		if ev.Kind == KindResult && ev.Seq != last {
			t.Fatalf("result from superseded request %d", ev.Seq)
		}
	}
}

func TestDispatcher_EngineFailureIsReported(t *testing.T) {
	pool, err := uci.NewPool(uci.PoolConfig{
		Capacity: 1,
		Launch: func(ctx context.Context) (*uci.Session, error) {
			return nil, &uci.EngineLaunchError{Path: "pikafish", Err: errors.New("exec format error")}
		},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	d := NewDispatcher(pool, nil)
	defer d.Close()

	seq, _ := d.Submit(xiangqi.StartPosition(), 5)
	ev := nextEvent(t, d)
	var le *uci.EngineLaunchError
	if ev.Seq != seq || ev.Kind != KindFailed || !errors.As(ev.Err, &le) {
		t.Fatalf("event = %+v, want launch failure", ev)
	}
}

func TestDispatcher_CrashIsReportedAndEngineRelaunched(t *testing.T) {
	pool, te := newTestPool(t, ucitest.Config{Delay: 10 * time.Millisecond})
	d := NewDispatcher(pool, nil)
	defer d.Close()

	seq, _ := d.Submit(xiangqi.StartPosition(), 1000)
	nextEvent(t, d)
	te.last().Crash()
	events := untilResult(t, d, seq)
	if last := events[len(events)-1]; last.Kind != KindFailed {
		t.Fatalf("last event = %+v, want failure", last)
	}

	seq, _ = d.Submit(xiangqi.StartPosition(), 2)
	events = untilResult(t, d, seq)
	if last := events[len(events)-1]; last.Kind != KindResult {
		t.Fatalf("relaunched engine did not answer: %+v", last)
	}
	te.mu.Lock()
	launched := len(te.engines)
	te.mu.Unlock()
	if launched != 2 {
		t.Fatalf("engines launched = %d, want 2", launched)
	}
}

func TestDispatcher_Close(t *testing.T) {
	pool, _ := newTestPool(t, ucitest.Config{Delay: 10 * time.Millisecond})
	d := NewDispatcher(pool, nil)
	if _, err := d.Submit(xiangqi.StartPosition(), 1000); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	nextEvent(t, d)
	d.Close()
	for range d.Events() {
	}
	if _, err := d.Submit(xiangqi.StartPosition(), 1); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("Submit after Close: %v", err)
	}

	// the engine went back to the pool idle and is reusable
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after Close: %v", err)
	}
	pool.Release(s, nil)
}
