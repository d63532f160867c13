package store

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryNotifiesSubscribers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory([]byte(`{}`))

	var got []string
	cancel := m.Subscribe(func(b []byte) { got = append(got, string(b)) })

	if err := m.SetContents(ctx, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("SetContents: %v", err)
	}
	cancel()
	if err := m.SetContents(ctx, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("SetContents: %v", err)
	}

	if len(got) != 1 || got[0] != `{"a":1}` {
		t.Fatalf("unexpected notifications %q", got)
	}
	cur, _ := m.Contents(ctx)
	if string(cur) != `{"a":2}` {
		t.Fatalf("Contents = %s", cur)
	}
}

func TestMemoryContentsIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory([]byte(`[1]`))
	b, _ := m.Contents(ctx)
	b[1] = '9'
	again, _ := m.Contents(ctx)
	if string(again) != `[1]` {
		t.Fatalf("store text was aliased: %s", again)
	}
}

func TestMemoryHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory(nil)
	if _, err := m.Contents(ctx); err == nil {
		t.Fatalf("expected context error")
	}
	if err := m.SetContents(ctx, []byte(`1`)); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestFileSetContentsAtomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(path, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f := NewFile(path)
	got, err := f.Contents(ctx)
	if err != nil {
		t.Fatalf("Contents() error = %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("Contents() = %q", got)
	}

	if err := f.SetContents(ctx, []byte("{\n  \"a\": 2\n}")); err != nil {
		t.Fatalf("SetContents() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "{\n  \"a\": 2\n}" {
		t.Fatalf("file = %q", data)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want existing 0600 kept", st.Mode().Perm())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestFileModeOption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.json")
	f := NewFile(path, WithFileMode(0o640))
	if err := f.SetContents(context.Background(), []byte(`null`)); err != nil {
		t.Fatalf("SetContents() error = %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if st.Mode().Perm() != 0o640 {
		t.Fatalf("mode = %v, want 0640", st.Mode().Perm())
	}
}

func TestFileContentsMissing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	if _, err := f.Contents(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFileWatchSeesOutOfBandWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hits atomic.Int32
	f := NewFile(path)
	if err := f.Watch(ctx, func() { hits.Add(1) }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`1`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := f.SetContents(ctx, []byte(`{"changed":true}`)); err != nil {
		t.Fatalf("SetContents() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for hits.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hits.Load() == 0 {
		t.Fatalf("no change notification received")
	}
}
