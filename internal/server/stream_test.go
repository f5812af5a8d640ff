package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/xiangqi-tutor/internal/xiangqi"
	"github.com/park285/xiangqi-tutor/pkg/xqdto"
)

func dialStream(t *testing.T, s *Server) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(s.StreamHandler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analysis"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) (xqdto.FrameHeader, json.RawMessage) {
	t.Helper()
	var raw json.RawMessage
	if err := wsjson.Read(ctx, conn, &raw); err != nil {
		t.Fatalf("read: %v", err)
	}
	var h xqdto.FrameHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		t.Fatalf("header %s: %v", raw, err)
	}
	return h, raw
}

func TestStream_InfoThenBestMove(t *testing.T) {
	pool, _ := newTestPool(t)
	s := newTestServer(t, Deps{Pool: pool})
	conn, ctx := dialStream(t, s)

	if err := wsjson.Write(ctx, conn, xqdto.StreamRequest{Position: xiangqi.StartPosition().FEN(), Depth: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var infos []xqdto.InfoFrame
	for {
		h, raw := readFrame(t, ctx, conn)
		if h.Seq != 1 {
			t.Fatalf("frame seq = %d, want 1: %s", h.Seq, raw)
		}
		if h.Type == xqdto.FrameInfo {
			var f xqdto.InfoFrame
			_ = json.Unmarshal(raw, &f)
			infos = append(infos, f)
			continue
		}
		if h.Type != xqdto.FrameBestMove {
			t.Fatalf("unexpected frame %s", raw)
		}
		var bm xqdto.BestMoveFrame
		_ = json.Unmarshal(raw, &bm)
		if bm.BestMove != "h2e2" || bm.BestNotation != "炮二平五" || bm.Ponder == nil || *bm.Ponder != "h9g7" {
			t.Fatalf("bestmove = %+v", bm)
		}
		if !strings.Contains(string(raw), `"ponder":"h9g7"`) {
			t.Fatalf("raw bestmove = %s", raw)
		}
		break
	}
	if len(infos) != 3 || infos[2].Depth != 3 || infos[0].WDL == nil {
		t.Fatalf("infos = %+v", infos)
	}
	if len(infos[0].PVNotation) == 0 || infos[0].PVNotation[0] != "炮二平五" {
		t.Fatalf("pv notation = %v", infos[0].PVNotation)
	}
}

func TestStream_RejectedFrames(t *testing.T) {
	pool, _ := newTestPool(t)
	s := newTestServer(t, Deps{Pool: pool})
	conn, ctx := dialStream(t, s)

	if err := wsjson.Write(ctx, conn, xqdto.StreamRequest{FEN: "bogus w"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, raw := readFrame(t, ctx, conn)
	var ef xqdto.ErrorFrame
	_ = json.Unmarshal(raw, &ef)
	if h.Type != xqdto.FrameError || h.Seq != 0 || ef.Code != xqdto.CodeMalformedPosition {
		t.Fatalf("frame = %s", raw)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, raw = readFrame(t, ctx, conn)
	_ = json.Unmarshal(raw, &ef)
	if ef.Code != xqdto.CodeBadRequest {
		t.Fatalf("frame = %s", raw)
	}

	// the connection still serves requests afterwards
	if err := wsjson.Write(ctx, conn, xqdto.StreamRequest{FEN: xiangqi.StartPosition().FEN(), Depth: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		h, raw := readFrame(t, ctx, conn)
		if h.Type == xqdto.FrameBestMove {
			if h.Seq != 1 {
				t.Fatalf("bestmove seq = %d: %s", h.Seq, raw)
			}
			return
		}
	}
}

func TestStream_SupersededRequestIsSilenced(t *testing.T) {
	pool, _ := newTestPool(t)
	s := newTestServer(t, Deps{Pool: pool})
	s.opt.MaxDepth = 1000
	conn, ctx := dialStream(t, s)

	start := xiangqi.StartPosition()
	after := start.Apply(xiangqi.Move{From: xiangqi.Sq(7, 7), To: xiangqi.Sq(7, 4)})
	if err := wsjson.Write(ctx, conn, xqdto.StreamRequest{FEN: start.FEN(), Depth: 900}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := wsjson.Write(ctx, conn, xqdto.StreamRequest{FEN: after.FEN(), Depth: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}

	sawSecond := false
	for {
		h, raw := readFrame(t, ctx, conn)
		if h.Seq == 2 {
			sawSecond = true
		} else if sawSecond {
			t.Fatalf("frame of superseded request after the new one: %s", raw)
		}
		if h.Seq == 2 && h.Type == xqdto.FrameBestMove {
			return
		}
		if h.Type == xqdto.FrameError {
			t.Fatalf("unexpected error frame %s", raw)
		}
	}
}
