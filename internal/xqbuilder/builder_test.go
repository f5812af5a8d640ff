package xqbuilder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/xiangqi-tutor/internal/config"
)

func TestNew_RequiresEngine(t *testing.T) {
	if _, err := New(context.Background(), &config.AppConfig{}, nil); err == nil {
		t.Fatalf("expected error without ENGINE_PATH")
	}
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestNew_MissingBinary(t *testing.T) {
	cfg := &config.AppConfig{EnginePath: filepath.Join(t.TempDir(), "missing"), EngineThreads: 1, EngineHashMB: 16}
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected launch error for a missing binary")
	}
}

func TestNew_WiresOptionalParts(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	// the pool only stats the binary until the first Acquire
	bin := filepath.Join(t.TempDir(), "engine")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := &config.AppConfig{
		EnginePath:           bin,
		EngineThreads:        1,
		EngineHashMB:         16,
		EnginePoolSize:       2,
		AnalysisDefaultDepth: 10,
		AnalysisMaxDepth:     20,
		RedisURL:             fmt.Sprintf("redis://%s/0", mr.Addr()),
		ResolverURL:          "http://127.0.0.1:1/v1",
	}
	deps, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer deps.Close()

	if deps.Pool.Capacity() != 2 || deps.Cache == nil || deps.Remote == nil || deps.Server == nil || deps.Analyzer == nil {
		t.Fatalf("deps = %+v", deps)
	}
}
