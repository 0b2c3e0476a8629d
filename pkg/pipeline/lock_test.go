package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLockExcludesSecondRun(t *testing.T) {
	dir := t.TempDir()

	first := NewLock(dir)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	second := NewLock(dir)
	if err := second.Acquire(); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := second.Acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestLockReclaimsStaleFile(t *testing.T) {
	dir := t.TempDir()

	// A lock held by a PID that cannot exist is stale.
	stale := filepath.Join(dir, "stackup.lock")
	if err := os.WriteFile(stale, []byte("4194399\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLock(dir)
	if err := l.Acquire(); err != nil {
		t.Fatalf("stale lock not reclaimed: %v", err)
	}
}

func TestLockReclaimsMangledFile(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "stackup.lock"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLock(dir)
	if err := l.Acquire(); err != nil {
		t.Fatalf("mangled lock not reclaimed: %v", err)
	}
}

func TestReleaseWithoutLockIsNoop(t *testing.T) {
	l := NewLock(t.TempDir())
	if err := l.Release(); err != nil {
		t.Fatalf("release without acquire: %v", err)
	}
}
