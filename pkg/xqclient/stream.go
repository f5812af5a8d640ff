// Package xqclient is a Go client for the analysis websocket.
package xqclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/xiangqi-tutor/pkg/xqdto"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

var ErrNotConnected = errors.New("xqclient: not connected")

// Frame is one decoded server frame; exactly one of Info, BestMove and
// Error is set.
type Frame struct {
	Type     string
	Seq      uint64
	Info     *xqdto.InfoFrame
	BestMove *xqdto.BestMoveFrame
	Error    *xqdto.ErrorFrame
}

type (
	FrameCallback  func(Frame)
	StateCallback  func(State)
	HeaderProvider func() map[string]string
)

type frameEntry struct {
	id int
	cb FrameCallback
}

type stateEntry struct {
	id int
	cb StateCallback
}

// Stream keeps one analysis connection open, reconnecting with backoff up
// to maxReconnect times after it drops.
type Stream struct {
	url string

	mu    sync.RWMutex
	conn  *websocket.Conn
	state State

	cbM      sync.RWMutex
	nextID   int
	frameCbs []frameEntry
	stateCbs []stateEntry

	maxReconnect   int
	reconnectDelay time.Duration
	pingInterval   time.Duration
	headers        HeaderProvider

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewStream(url string, maxReconnect int, reconnectDelay time.Duration) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{
		url:            url,
		state:          StateDisconnected,
		maxReconnect:   maxReconnect,
		reconnectDelay: reconnectDelay,
		pingInterval:   30 * time.Second,
		stopCh:         make(chan struct{}),
		rootCtx:        ctx,
		rootCancel:     cancel,
	}
}

// SetHeaderProvider injects headers into every handshake.
func (s *Stream) SetHeaderProvider(h HeaderProvider) { s.headers = h }

func (s *Stream) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Stream) Connect(ctx context.Context) error {
	if st := s.State(); st == StateConnected || st == StateConnecting {
		return nil
	}
	s.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := s.dial(dialCtx)
	if err != nil {
		s.setState(StateFailed)
		s.scheduleReconnect()
		return err
	}
	s.attach(conn)
	return nil
}

// Analyse asks for fen to be searched to depth, superseding any request
// still running on this connection.
func (s *Stream) Analyse(ctx context.Context, fen string, depth int) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, xqdto.StreamRequest{FEN: fen, Depth: depth})
}

func (s *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, s.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      s.buildHeaders(),
	})
	return conn, err
}

func (s *Stream) attach(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(StateConnected)

	s.wg.Add(2)
	go s.listen(conn)
	go s.pingLoop(conn)
}

func (s *Stream) listen(conn *websocket.Conn) {
	defer s.wg.Done()
	for {
		var raw json.RawMessage
		if err := wsjson.Read(s.rootCtx, conn, &raw); err != nil {
			if s.isStopping() {
				return
			}
			s.drop(conn, "reconnect")
			return
		}
		f, err := DecodeFrame(raw)
		if err != nil {
			continue
		}

		s.cbM.RLock()
		callbacks := append([]frameEntry(nil), s.frameCbs...)
		s.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.cb(f)
		}
	}
}

func (s *Stream) pingLoop(conn *websocket.Conn) {
	defer s.wg.Done()
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			if s.currentConn() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(s.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			if failures++; failures >= 2 {
				if !s.isStopping() {
					s.drop(conn, "ping failure")
				}
				return
			}
		}
	}
}

func (s *Stream) currentConn() *websocket.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// drop closes conn if it is still current and starts reconnecting.
func (s *Stream) drop(conn *websocket.Conn, reason string) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.mu.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	s.setState(StateDisconnected)
	s.scheduleReconnect()
}

func (s *Stream) scheduleReconnect() {
	if s.maxReconnect <= 0 || s.isStopping() {
		return
	}
	s.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= s.maxReconnect; attempt++ {
			select {
			case <-s.stopCh:
				return
			case <-time.After(s.backoff(attempt)):
			}
			dialCtx, cancel := context.WithTimeout(s.rootCtx, 10*time.Second)
			conn, err := s.dial(dialCtx)
			cancel()
			if err != nil {
				continue
			}
			if s.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			s.attach(conn)
			return
		}
		s.setState(StateFailed)
	}()
}

func (s *Stream) backoff(attempt int) time.Duration {
	d := s.reconnectDelay << (attempt - 1)
	if d <= 0 || d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

func (s *Stream) OnFrame(cb FrameCallback) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextID++
	s.frameCbs = append(s.frameCbs, frameEntry{id: s.nextID, cb: cb})
	return s.nextID
}

func (s *Stream) RemoveFrameCallback(id int) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	for i, e := range s.frameCbs {
		if e.id == id {
			s.frameCbs = append(s.frameCbs[:i], s.frameCbs[i+1:]...)
			return
		}
	}
}

func (s *Stream) OnStateChange(cb StateCallback) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextID++
	s.stateCbs = append(s.stateCbs, stateEntry{id: s.nextID, cb: cb})
	return s.nextID
}

func (s *Stream) RemoveStateCallback(id int) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	for i, e := range s.stateCbs {
		if e.id == id {
			s.stateCbs = append(s.stateCbs[:i], s.stateCbs[i+1:]...)
			return
		}
	}
}

func (s *Stream) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.cbM.RLock()
	callbacks := append([]stateEntry(nil), s.stateCbs...)
	s.cbM.RUnlock()
	for _, e := range callbacks {
		e.cb(state)
	}
}

func (s *Stream) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	s.rootCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		s.setState(StateDisconnected)
		return nil
	}
}

func (s *Stream) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Stream) buildHeaders() http.Header {
	if s.headers == nil {
		return nil
	}
	h := http.Header{}
	for k, v := range s.headers() {
		if k != "" && v != "" {
			h.Set(k, v)
		}
	}
	return h
}

// DecodeFrame routes a raw server frame by its type.
func DecodeFrame(raw []byte) (Frame, error) {
	var h xqdto.FrameHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return Frame{}, err
	}
	f := Frame{Type: h.Type, Seq: h.Seq}
	var err error
	switch h.Type {
	case xqdto.FrameInfo:
		f.Info = &xqdto.InfoFrame{}
		err = json.Unmarshal(raw, f.Info)
	case xqdto.FrameBestMove:
		f.BestMove = &xqdto.BestMoveFrame{}
		err = json.Unmarshal(raw, f.BestMove)
	case xqdto.FrameError:
		f.Error = &xqdto.ErrorFrame{}
		err = json.Unmarshal(raw, f.Error)
	default:
		return Frame{}, fmt.Errorf("unknown frame type %q", h.Type)
	}
	if err != nil {
		return Frame{}, err
	}
	return f, nil
}
