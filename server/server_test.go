package server

import (
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/layout"
	"github.com/arangodb/vocserver/logging"
)

// the registry's database handles wrap badger, which needs a real
// filesystem, so these tests use afero.NewOsFs rooted at t.TempDir
// rather than an in-memory filesystem.

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	base := t.TempDir()
	s := CreateServer(logging.Nop()).WithFilesystem(afero.NewOsFs())
	if err := s.InitServer(base, nil); err != nil {
		t.Fatal(err)
	}
	return s, base
}

func TestFreshInstall(t *testing.T) {
	s, base := newTestServer(t)

	if err := s.StartServer(); err != nil {
		t.Fatalf("StartServer: %v", err)
	}

	if _, ok := s.LookupDatabaseByName(layout.SystemDatabaseName); !ok {
		t.Fatal("expected the system database to be open after a fresh install")
	}

	fs := afero.NewOsFs()
	if exists, _ := afero.Exists(fs, base+"/LOCK"); !exists {
		t.Fatal("expected LOCK to exist while started")
	}
	if exists, _ := afero.Exists(fs, base+"/SERVER"); !exists {
		t.Fatal("expected SERVER to exist")
	}
	if exists, _ := afero.Exists(fs, base+"/SHUTDOWN"); exists {
		t.Fatal("expected SHUTDOWN to be absent while running")
	}

	if err := s.StopServer(); err != nil {
		t.Fatalf("StopServer: %v", err)
	}

	if exists, _ := afero.Exists(fs, base+"/SHUTDOWN"); !exists {
		t.Fatal("expected SHUTDOWN to exist after a clean stop")
	}
}

func TestStartStopStartPreservesNamesAndServerId(t *testing.T) {
	s, base := newTestServer(t)
	if err := s.StartServer(); err != nil {
		t.Fatalf("first StartServer: %v", err)
	}
	if _, err := s.CreateDatabase("mydb", nil); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	id1 := s.GetServerId()
	names1 := s.ListDatabaseNames()
	if err := s.StopServer(); err != nil {
		t.Fatalf("StopServer: %v", err)
	}

	s2 := CreateServer(logging.Nop()).WithFilesystem(afero.NewOsFs())
	if err := s2.InitServer(base, nil); err != nil {
		t.Fatal(err)
	}
	if err := s2.StartServer(); err != nil {
		t.Fatalf("second StartServer: %v", err)
	}
	defer s2.StopServer()

	if s2.GetServerId() != id1 {
		t.Fatalf("expected stable server id across restarts, got %d then %d", id1, s2.GetServerId())
	}
	if !s2.WasShutdownCleanly() {
		t.Fatal("expected clean shutdown to be observed on restart")
	}

	names2 := s2.ListDatabaseNames()
	if len(names2) != len(names1) {
		t.Fatalf("expected same database count across restart, got %v then %v", names1, names2)
	}
}

func TestCrashRecoveryObservesUncleanShutdown(t *testing.T) {
	s, base := newTestServer(t)
	if err := s.StartServer(); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	s.registry.CloseAll(s.logger) // simulate process death: databases closed, no marker written
	s.started = false

	fs := afero.NewOsFs()
	fs.Remove(base + "/LOCK")

	s2 := CreateServer(logging.Nop()).WithFilesystem(fs)
	if err := s2.InitServer(base, nil); err != nil {
		t.Fatal(err)
	}
	if err := s2.StartServer(); err != nil {
		t.Fatalf("StartServer after simulated crash: %v", err)
	}
	defer s2.StopServer()

	if s2.WasShutdownCleanly() {
		t.Fatal("expected an unclean shutdown to be observed after a simulated crash")
	}
}

func TestConcurrentCreateDatabaseSameName(t *testing.T) {
	s, _ := newTestServer(t)
	if err := s.StartServer(); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	defer s.StopServer()

	const n = 8
	var wg sync.WaitGroup
	successes := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateDatabase("x", nil)
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
		t.Fatalf("expected exactly one CreateDatabase(\"x\") to succeed, got %d", count)
	}

	occurrences := 0
	for _, name := range s.ListDatabaseNames() {
		if name == "x" {
			occurrences++
		}
	}
	if occurrences != 1 {
		t.Fatalf("expected ListDatabaseNames to contain 'x' exactly once, got %d", occurrences)
	}
}

func TestServerDefaultsAreBlendedIntoOpenedDatabases(t *testing.T) {
	base := t.TempDir()
	s := CreateServer(logging.Nop()).WithFilesystem(afero.NewOsFs())
	if err := s.InitServer(base, Defaults{"syncWrites": false}); err != nil {
		t.Fatal(err)
	}
	if err := s.StartServer(); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	defer s.StopServer()

	sysDB, ok := s.LookupDatabaseByName(layout.SystemDatabaseName)
	if !ok {
		t.Fatal("expected the system database to be open")
	}
	if sysDB.Properties["syncWrites"] != false {
		t.Fatalf("expected server-wide defaults blended into the bootstrapped system database, got %v", sysDB.Properties)
	}

	created, err := s.CreateDatabase("mydb", nil)
	if err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if created.Properties["syncWrites"] != false {
		t.Fatalf("expected server-wide defaults blended into a newly created database, got %v", created.Properties)
	}

	overridden, err := s.CreateDatabase("other", []byte(`{"syncWrites":true}`))
	if err != nil {
		t.Fatalf("CreateDatabase with override: %v", err)
	}
	if overridden.Properties["syncWrites"] != true {
		t.Fatalf("expected the database's own properties to win over server defaults, got %v", overridden.Properties)
	}
}

func TestPreVersionedMigrationOnStart(t *testing.T) {
	base := t.TempDir()
	fs := afero.NewOsFs()
	fs.MkdirAll(base+"/collection-1", 0o755)
	fs.MkdirAll(base+"/collection-2", 0o755)

	s := CreateServer(logging.Nop()).WithFilesystem(fs)
	if err := s.InitServer(base, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.StartServer(); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	defer s.StopServer()

	if _, ok := s.LookupDatabaseByName(layout.SystemDatabaseName); !ok {
		t.Fatal("expected the migrated collections to land under a system database")
	}
}
