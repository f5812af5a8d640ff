package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

type fixedInterpreter struct {
	answer string
	err    error
	calls  int
}

func (f *fixedInterpreter) Interpret(context.Context, string, string, []string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func TestResolve_TokenAndNotation(t *testing.T) {
	remote := &fixedInterpreter{answer: "a0a1"}
	r := New(remote, nil)
	ctx := context.Background()
	start := xiangqi.StartPosition()

	res, err := r.Resolve(ctx, start, " H2E2 ", nil)
	if err != nil || res.Move != "h2e2" || res.Method != MethodToken {
		t.Fatalf("token: %+v, %v", res, err)
	}
	res, err = r.Resolve(ctx, start, "我走炮二平五", nil)
	if err != nil || res.Move != "h2e2" || res.Method != MethodStandard {
		t.Fatalf("notation: %+v, %v", res, err)
	}
	if remote.calls != 0 {
		t.Fatalf("remote consulted for parseable input")
	}
}

func TestResolve_RemoteAnswerMustBeLegal(t *testing.T) {
	start := xiangqi.StartPosition()
	ctx := context.Background()

	ok := New(&fixedInterpreter{answer: "h0g2"}, nil)
	res, err := ok.Resolve(ctx, start, "跳右边的马", nil)
	if err != nil || res.Move != "h0g2" || res.Method != MethodLLM {
		t.Fatalf("remote: %+v, %v", res, err)
	}

	// legal in the position but not in the caller's list
	restricted := New(&fixedInterpreter{answer: "h0g2"}, nil)
	if _, err := restricted.Resolve(ctx, start, "跳右边的马", []string{"b0c2"}); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("answer outside the supplied list: %v", err)
	}

	bad := New(&fixedInterpreter{answer: "none"}, nil)
	if _, err := bad.Resolve(ctx, start, "随便走", nil); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("none answer: %v", err)
	}

	failing := New(&fixedInterpreter{err: errors.New("connection refused")}, nil)
	if _, err := failing.Resolve(ctx, start, "随便走", nil); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("remote error: %v", err)
	}

	none := New(nil, nil)
	if _, err := none.Resolve(ctx, start, "随便走", nil); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("no remote: %v", err)
	}
	if _, err := none.Resolve(ctx, start, "   ", nil); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("empty text: %v", err)
	}
}

func TestClient_Interpret(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "h2e2, b2e2") {
			t.Errorf("request = %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" \"H2E2\" "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1", WithAPIKey("sk-test"), WithModel("test-model"), WithTimeout(2*time.Second), WithRetry(2))
	got, err := c.Interpret(context.Background(), xiangqi.StartFEN, "中炮", []string{"h2e2", "b2e2"})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if got != "h2e2" {
		t.Fatalf("answer = %q", got)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected one retry, got %d requests", hits.Load())
	}
}

func TestClient_NonRetryableStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(3))
	if _, err := c.Interpret(context.Background(), xiangqi.StartFEN, "中炮", nil); err == nil {
		t.Fatalf("expected error on 401")
	}
	if hits.Load() != 1 {
		t.Fatalf("401 should not be retried, got %d requests", hits.Load())
	}
}
