package backupwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func write(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestScanMovesByOutcome(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.json")
	write(t, dir, "b.json")
	write(t, dir, "notes.txt")
	write(t, dir, ".hidden.json")

	var seen []string
	imp := func(_ context.Context, path string) error {
		seen = append(seen, filepath.Base(path))
		if filepath.Base(path) == "b.json" {
			return errors.New("invalid backup")
		}
		return nil
	}
	n, err := Scan(context.Background(), dir, imp)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("imported = %d, want 1", n)
	}
	if len(seen) != 2 || seen[0] != "a.json" || seen[1] != "b.json" {
		t.Fatalf("seen = %v", seen)
	}
	if !exists(filepath.Join(dir, DoneDir, "a.json")) {
		t.Fatal("a.json not in done/")
	}
	if !exists(filepath.Join(dir, FailedDir, "b.json")) {
		t.Fatal("b.json not in failed/")
	}
	if !exists(filepath.Join(dir, "notes.txt")) || !exists(filepath.Join(dir, ".hidden.json")) {
		t.Fatal("non-backup files were touched")
	}

	left, err := Pending(dir)
	if err != nil || len(left) != 0 {
		t.Fatalf("pending after scan = %v, %v", left, err)
	}
}

func TestWatchPicksUpNewFiles(t *testing.T) {
	old := settle
	settle = 50 * time.Millisecond
	t.Cleanup(func() { settle = old })

	dir := t.TempDir()
	write(t, dir, "existing.json")

	var mu sync.Mutex
	var seen []string
	imp := func(_ context.Context, path string) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, filepath.Base(path))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, dir, imp) }()

	deadline := time.Now().Add(5 * time.Second)
	for !exists(filepath.Join(dir, DoneDir, "existing.json")) {
		if time.Now().After(deadline) {
			t.Fatal("existing backup was not imported")
		}
		time.Sleep(20 * time.Millisecond)
	}

	write(t, dir, "dropped.json")
	for !exists(filepath.Join(dir, DoneDir, "dropped.json")) {
		if time.Now().After(deadline) {
			t.Fatal("dropped backup was not imported")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("seen = %v", seen)
	}
}
