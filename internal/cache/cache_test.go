package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestFingerprintDeterminism(t *testing.T) {
	if Fingerprint("hello") != Fingerprint("hello") {
		t.Fatal("same input must produce same fingerprint")
	}
	if Fingerprint("hello") == Fingerprint("hello!") {
		t.Fatal("different input must produce different fingerprint")
	}
	if Fingerprint("hello") != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Fatal("fingerprint must be stable across builds")
	}
}

func TestKeyString(t *testing.T) {
	key := NewKey("some jd text", "E2", "SKILL")
	want := "E2_SKILL_" + Fingerprint("some jd text")
	if key.String() != want {
		t.Fatalf("got %q, want %q", key.String(), want)
	}
}

func newFileCache(t *testing.T) (*Cache, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	return New(store, zap.NewNop()), dir
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newFileCache(t)
	entry := map[string]any{"match_score": 87, "note": "must"}

	if err := c.Save("jd text", "E1", "SKILL", entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, ok := c.Get("jd text", "E1", "SKILL")
	if !ok {
		t.Fatal("expected cache hit")
	}

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["note"] != "must" || got["match_score"] != float64(87) {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestCacheKeyIsolation(t *testing.T) {
	c, _ := newFileCache(t)

	if err := c.Save("jd text", "E1", "SKILL", map[string]any{"a": 1}); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("jd text", "E2", "SKILL"); ok {
		t.Fatal("expected miss for different expert")
	}
	if _, ok := c.Get("jd text", "E1", "GAP"); ok {
		t.Fatal("expected miss for different mode")
	}
	if _, ok := c.Get("other text", "E1", "SKILL"); ok {
		t.Fatal("expected miss for different text")
	}
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	c, dir := newFileCache(t)

	key := NewKey("jd text", "E1", "SKILL").String()
	if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("jd text", "E1", "SKILL"); ok {
		t.Fatal("corrupt entry must read as a miss")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c, _ := newFileCache(t)

	if err := c.Save("jd", "E1", "SKILL", map[string]any{"v": 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Save("jd", "E1", "SKILL", map[string]any{"v": 2}); err != nil {
		t.Fatal(err)
	}

	raw, ok := c.Get("jd", "E1", "SKILL")
	if !ok {
		t.Fatal("expected hit")
	}
	var got map[string]float64
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got["v"] != 2 {
		t.Fatalf("expected last write to win, got %v", got["v"])
	}
}

type failingStore struct{ writeErr error }

func (f *failingStore) Read(string) ([]byte, bool, error) { return nil, false, errors.New("io down") }
func (f *failingStore) Write(string, []byte) error        { return f.writeErr }

func TestCacheReadFailureIsMiss(t *testing.T) {
	c := New(&failingStore{}, zap.NewNop())
	if _, ok := c.Get("jd", "E1", "SKILL"); ok {
		t.Fatal("read failure must degrade to a miss")
	}
}

func TestCacheWriteFailureIsSurfaced(t *testing.T) {
	c := New(&failingStore{writeErr: errors.New("disk full")}, zap.NewNop())
	if err := c.Save("jd", "E1", "SKILL", map[string]any{}); err == nil {
		t.Fatal("write failure must be returned, not swallowed")
	}
}
