package layout

import (
	"testing"

	"github.com/spf13/afero"
)

func TestListDatabaseDirsSortedBySuffix(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := "/data/databases"
	for _, name := range []string{"database-30", "database-1", "database-10", "not-a-database", "database-"} {
		if err := fs.MkdirAll(base+"/"+name, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// a file, not a directory, matching the pattern must be ignored
	afero.WriteFile(fs, base+"/database-999", []byte("x"), 0o644)

	got, err := ListDatabaseDirs(fs, base)
	if err != nil {
		t.Fatalf("ListDatabaseDirs: %v", err)
	}

	want := []string{"database-1", "database-10", "database-30"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSuffixOfNoDigitsIsZero(t *testing.T) {
	if suffixOf("database-") != 0 {
		t.Fatal("expected suffix 0 for 'database-'")
	}
	if suffixOf("foo") != 0 {
		t.Fatal("expected suffix 0 for non-matching name")
	}
}

func TestListCollectionDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := "/data"
	fs.MkdirAll(base+"/collection-1", 0o755)
	fs.MkdirAll(base+"/collection-2", 0o755)
	fs.MkdirAll(base+"/databases", 0o755)

	got, err := listCollectionDirs(fs, base)
	if err != nil {
		t.Fatalf("listCollectionDirs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 collection dirs", got)
	}
}
