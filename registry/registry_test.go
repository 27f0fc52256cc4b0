package registry

import (
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/layout"
	"github.com/arangodb/vocserver/logging"
	"github.com/arangodb/vocserver/tick"
)

// vocbase.OpenDatabase needs a real filesystem (badger requires real
// inodes), so these tests use afero.NewOsFs rooted at t.TempDir.

func newTestRegistry(t *testing.T) (*Registry, *tick.Generator) {
	t.Helper()
	fs := afero.NewOsFs()
	base := t.TempDir()
	paths := layout.NewPaths(base)
	if err := fs.MkdirAll(paths.DatabasePath, 0o755); err != nil {
		t.Fatal(err)
	}
	return New(fs, paths, nil, nil), tick.NewGenerator()
}

func TestCreateDatabaseThenLookup(t *testing.T) {
	r, ticks := newTestRegistry(t)
	logger := logging.Nop()

	handle, err := r.CreateDatabase(ticks, logger, "mydb", nil)
	if err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	defer r.CloseAll(logger)

	got, ok := r.Lookup("mydb")
	if !ok {
		t.Fatal("expected Lookup to find the created database")
	}
	if got != handle {
		t.Fatal("Lookup returned a different handle than CreateDatabase")
	}

	names := r.Names()
	if len(names) != 1 || names[0] != "mydb" {
		t.Fatalf("expected Names() == [mydb], got %v", names)
	}
}

func TestCreateDatabaseRejectsInvalidName(t *testing.T) {
	r, ticks := newTestRegistry(t)
	if _, err := r.CreateDatabase(ticks, logging.Nop(), "1invalid", nil); err == nil {
		t.Fatal("expected invalid name to be rejected")
	}
}

func TestCreateDatabaseRejectsDuplicateName(t *testing.T) {
	r, ticks := newTestRegistry(t)
	logger := logging.Nop()
	defer r.CloseAll(logger)

	if _, err := r.CreateDatabase(ticks, logger, "mydb", nil); err != nil {
		t.Fatalf("first CreateDatabase: %v", err)
	}
	if _, err := r.CreateDatabase(ticks, logger, "mydb", nil); err == nil {
		t.Fatal("expected second CreateDatabase with the same name to fail")
	}
}

func TestConcurrentCreateDatabaseSameNameExactlyOneWins(t *testing.T) {
	r, ticks := newTestRegistry(t)
	logger := logging.Nop()
	defer r.CloseAll(logger)

	const n = 8
	var wg sync.WaitGroup
	successes := make([]bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.CreateDatabase(ticks, logger, "contested", nil)
			successes[i] = err == nil
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range successes {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one winner, got %d", count)
	}

	names := r.Names()
	occurrences := 0
	for _, name := range names {
		if name == "contested" {
			occurrences++
		}
	}
	if occurrences != 1 {
		t.Fatalf("expected 'contested' to appear exactly once, got %d", occurrences)
	}
}

func TestOpenAllSkipsDeletedAndInvalid(t *testing.T) {
	fs := afero.NewOsFs()
	base := t.TempDir()
	paths := layout.NewPaths(base)
	fs.MkdirAll(paths.DatabasePath, 0o755)

	// a valid, non-deleted database
	t1 := uint64(1 << 16)
	dir1, err := layout.CreateDatabaseDir(fs, paths.DatabasePath, t1, "keep", nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = dir1

	// a deleted database
	t2 := uint64(2 << 16)
	dir2, err := layout.CreateDatabaseDir(fs, paths.DatabasePath, t2, "gone", nil)
	if err != nil {
		t.Fatal(err)
	}
	desc, _, err := layout.ReadDescriptor(fs, paths.DatabasePath+"/"+dir2)
	if err != nil {
		t.Fatal(err)
	}
	desc.Deleted = true
	if err := layout.WriteDescriptor(fs, paths.DatabasePath+"/"+dir2, desc); err != nil {
		t.Fatal(err)
	}

	// a database directory whose descriptor is not valid JSON
	dir3 := paths.DatabasePath + "/" + layout.DatabaseDir(uint64(3<<16))
	if err := fs.MkdirAll(dir3, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, dir3+"/"+layout.ParameterFile, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(fs, paths, nil, nil)
	logger := logging.Nop()
	if err := r.OpenAll(logger, true); err != nil {
		t.Fatalf("OpenAll: %v", err)
	}
	defer r.CloseAll(logger)

	names := r.Names()
	if len(names) != 1 || names[0] != "keep" {
		t.Fatalf("expected only 'keep' to be open, got %v", names)
	}
}
