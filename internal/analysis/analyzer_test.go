package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/park285/xiangqi-tutor/internal/engine/uci"
	"github.com/park285/xiangqi-tutor/internal/engine/uci/ucitest"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string]uci.AnalysisResult
	fail bool
}

func (c *memoryCache) key(fen string, depth, multipv int) string {
	return fmt.Sprintf("%s|%d|%d", fen, depth, multipv)
}

func (c *memoryCache) Get(_ context.Context, fen string, depth, multipv int) (uci.AnalysisResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return uci.AnalysisResult{}, false, errors.New("cache down")
	}
	res, ok := c.data[c.key(fen, depth, multipv)]
	return res, ok, nil
}

func (c *memoryCache) Set(_ context.Context, fen string, depth, multipv int, res uci.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]uci.AnalysisResult)
	}
	c.data[c.key(fen, depth, multipv)] = res
	return nil
}

func TestAnalyzer_UsesCache(t *testing.T) {
	pool, te := newTestPool(t, ucitest.Config{})
	cache := &memoryCache{}
	a := NewAnalyzer(pool, cache, nil)
	ctx := context.Background()

	res, err := a.Analyse(ctx, xiangqi.StartPosition(), 4, 2)
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}
	if res.BestMove != "h2e2" || len(res.Lines) != 2 {
		t.Fatalf("result = %+v", res)
	}
	again, err := a.Analyse(ctx, xiangqi.StartPosition(), 4, 2)
	if err != nil {
		t.Fatalf("Analyse (cached): %v", err)
	}
	if again.BestMove != res.BestMove || again.Depth != res.Depth {
		t.Fatalf("cached result differs: %+v vs %+v", again, res)
	}
	if n := te.last().Count("go "); n != 1 {
		t.Fatalf("engine searched %d times, want 1", n)
	}
}

func TestAnalyzer_CacheFailureFallsBackToEngine(t *testing.T) {
	pool, _ := newTestPool(t, ucitest.Config{})
	a := NewAnalyzer(pool, &memoryCache{fail: true}, nil)
	if _, err := a.Analyse(context.Background(), xiangqi.StartPosition(), 2, 1); err != nil {
		t.Fatalf("Analyse with a failing cache: %v", err)
	}
}
