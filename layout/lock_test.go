package layout

import (
	"os"
	"path/filepath"
	"testing"
)

// flock needs a real inode, so these tests use the OS filesystem
// directly rather than afero.MemMapFs.

func TestAcquireLockAndRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LOCK")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading lock file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected lock file to be stamped with pid")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestAcquireLockFailsWhenHeldByLiveProcess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LOCK")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	if _, err := AcquireLock(path); err == nil {
		t.Fatal("expected second AcquireLock on a held lock to fail")
	}
}

func TestAcquireLockSucceedsAfterRelease(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LOCK")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	lock2, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("expected re-acquire to succeed after release, got %v", err)
	}
	lock2.Release()
}
