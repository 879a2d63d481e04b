package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func loadFirstLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	if line == "bad" {
		return "", errors.New("bad content")
	}
	return line, nil
}

func startWatcher(t *testing.T, w *Watcher[string]) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Run(ctx); err != nil {
		t.Fatal(err)
	}
	// let the watch settle before writing
	time.Sleep(50 * time.Millisecond)
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	os.WriteFile(path, []byte("one\n"), 0o644)

	got := make(chan string, 4)
	w := NewWatcher(path, loadFirstLine, WithDebounce[string](30*time.Millisecond))
	w.OnReload(func(s string) { got <- s })
	startWatcher(t, w)

	os.WriteFile(path, []byte("two\n"), 0o644)
	select {
	case s := <-got:
		if s != "two" {
			t.Errorf("reloaded %q, want two", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload")
	}
}

func TestWatcherFollowsRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.toml")
	os.WriteFile(path, []byte("one\n"), 0o644)

	got := make(chan string, 4)
	w := NewWatcher(path, loadFirstLine, WithDebounce[string](30*time.Millisecond))
	w.OnReload(func(s string) { got <- s })
	startWatcher(t, w)

	tmp := filepath.Join(dir, "c.toml.tmp")
	os.WriteFile(tmp, []byte("replaced\n"), 0o644)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-got:
		if s != "replaced" {
			t.Errorf("reloaded %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after rename")
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.toml")
	os.WriteFile(path, []byte("one\n"), 0o644)

	var calls atomic.Int32
	w := NewWatcher(path, loadFirstLine, WithDebounce[string](20*time.Millisecond))
	w.OnReload(func(string) { calls.Add(1) })
	startWatcher(t, w)

	os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x\n"), 0o644)
	time.Sleep(200 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("reloaded %d times for an unrelated file", calls.Load())
	}
}

func TestWatcherDebounces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	os.WriteFile(path, []byte("0\n"), 0o644)

	var calls atomic.Int32
	last := make(chan string, 8)
	w := NewWatcher(path, loadFirstLine, WithDebounce[string](150*time.Millisecond))
	w.OnReload(func(s string) {
		calls.Add(1)
		last <- s
	})
	startWatcher(t, w)

	for _, s := range []string{"1", "2", "3", "4"} {
		os.WriteFile(path, []byte(s+"\n"), 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case s := <-last:
		if s != "4" {
			t.Errorf("reloaded %q, want 4", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload")
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("handler called %d times, want 1", n)
	}
}

func TestWatcherLoaderError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	os.WriteFile(path, []byte("ok\n"), 0o644)

	errs := make(chan error, 1)
	var calls atomic.Int32
	w := NewWatcher(path, loadFirstLine,
		WithDebounce[string](20*time.Millisecond),
		WithErrorHandler[string](func(err error) { errs <- err }))
	w.OnReload(func(string) { calls.Add(1) })
	startWatcher(t, w)

	os.WriteFile(path, []byte("bad\n"), 0o644)
	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not called")
	}
	if calls.Load() != 0 {
		t.Error("handler called with a failed load")
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	os.WriteFile(path, []byte("a\n"), 0o644)

	var removed atomic.Int32
	kept := make(chan string, 2)
	w := NewWatcher(path, loadFirstLine, WithDebounce[string](20*time.Millisecond))
	unsub := w.OnReload(func(string) { removed.Add(1) })
	w.OnReload(func(s string) { kept <- s })
	unsub()
	startWatcher(t, w)

	os.WriteFile(path, []byte("b\n"), 0o644)
	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		t.Fatal("no reload")
	}
	if removed.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "nope", "c.toml"), loadFirstLine)
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}
