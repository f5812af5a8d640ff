package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_EmbeddedMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, key := range []string{"error.illegal_move", "error.unresolved", "error.engine_unavailable", "game.red_wins"} {
		if !c.Has(key) {
			t.Fatalf("missing key %s", key)
		}
	}
	got, err := c.Render("error.illegal_move", map[string]any{"Move": "b2b8"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "b2b8") {
		t.Fatalf("rendered = %q", got)
	}
}

func TestRender_MissingField(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("error.illegal_move", map[string]any{}); err == nil {
		t.Fatalf("expected error for missing template field")
	}
	if got := c.Text("error.illegal_move", map[string]any{}, "fallback"); got != "fallback" {
		t.Fatalf("Text fallback = %q", got)
	}
	if _, err := c.Render("error.nope", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestNew_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("error:\n  engine_failed: \"engine down\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("error.engine_failed", nil, ""); got != "engine down" {
		t.Fatalf("override not applied: %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("error:\n  engine_failed: \"again\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNew_RejectsNonStringLeaf(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("error:\n  code: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected error for integer leaf")
	}
}
