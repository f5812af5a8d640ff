package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/park285/xiangqi-tutor/internal/analysis"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
	"github.com/park285/xiangqi-tutor/pkg/xqdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const streamWriteTimeout = 10 * time.Second

// StreamHandler serves the analysis websocket at /ws/analysis.
func (s *Server) StreamHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/analysis", s.serveStream)
	return mux
}

// ServeStream serves StreamHandler on addr until ctx is done.
func (s *Server) ServeStream(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.StreamHandler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()
	s.log.Info("ws_listen", zap.String("addr", addr))
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) serveStream(w http.ResponseWriter, r *http.Request) {
	if s.pool == nil {
		http.Error(w, "engine unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Warn("ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	d := analysis.NewDispatcher(s.pool, s.log)
	log := s.log.With(zap.String("client", d.ID))
	log.Info("ws_client_open", zap.String("remote", r.RemoteAddr))

	relayed := make(chan struct{})
	go func() {
		defer close(relayed)
		s.relay(ctx, conn, d, log)
	}()

	err = s.readRequests(ctx, conn, d, log)
	cancel()
	d.Close()
	<-relayed

	status := websocket.CloseStatus(err)
	log.Info("ws_client_close", zap.Int("status", int(status)), zap.Error(err))
	if status == -1 {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

// readRequests submits every client frame to d until the connection ends.
// A rejected frame gets an error frame and leaves the live request alone.
func (s *Server) readRequests(ctx context.Context, conn *websocket.Conn, d *analysis.Dispatcher, log *zap.Logger) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var req xqdto.StreamRequest
		if typ != websocket.MessageText {
			s.sendError(ctx, conn, 0, badRequest("expected a text frame"))
			continue
		}
		if err := json.Unmarshal(data, &req); err != nil {
			s.sendError(ctx, conn, 0, badRequest(err.Error()))
			continue
		}

		fen := req.FEN
		if fen == "" {
			fen = req.Position
		}
		if strings.TrimSpace(fen) == "" {
			s.sendError(ctx, conn, 0, badRequest("missing position"))
			continue
		}
		pos, err := xiangqi.ParseFEN(fen)
		if err != nil {
			s.sendError(ctx, conn, 0, err)
			continue
		}
		seq, err := d.Submit(pos, s.clampDepth(req.Depth))
		if err != nil {
			return err
		}
		log.Debug("ws_request", zap.Uint64("seq", seq), zap.String("fen", pos.FEN()))
	}
}

func (s *Server) relay(ctx context.Context, conn *websocket.Conn, d *analysis.Dispatcher, log *zap.Logger) {
	for ev := range d.Events() {
		var frame any
		switch ev.Kind {
		case analysis.KindProgress:
			frame = infoFrame(ev)
		case analysis.KindResult:
			frame = bestMoveFrame(ev)
		case analysis.KindFailed:
			log.Warn("ws_request_failed", zap.Uint64("seq", ev.Seq), zap.Error(ev.Err))
			s.sendError(ctx, conn, ev.Seq, ev.Err)
			continue
		default:
			continue
		}
		if err := write(ctx, conn, frame); err != nil {
			log.Debug("ws_write_failed", zap.Error(err))
		}
	}
}

func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, seq uint64, err error) {
	body := s.describe(classify(err))
	_ = write(ctx, conn, xqdto.ErrorFrame{Type: xqdto.FrameError, Seq: seq, Code: body.Code, Message: body.Message})
}

func write(ctx context.Context, conn *websocket.Conn, v any) error {
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, v)
}
