package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/arangodb/vocserver/layout"
)

func TestInspectPrintsPrettyByDefault(t *testing.T) {
	dataDir := t.TempDir()
	fs := afero.NewOsFs()
	paths := layout.NewPaths(dataDir)
	fs.MkdirAll(paths.DatabasePath, 0o755)

	if _, err := layout.CreateDatabaseDir(fs, paths.DatabasePath, 1<<16, "mydb", nil); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := inspect(dataDir, "mydb", &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d, stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "name:       mydb") {
		t.Fatalf("expected pretty output to contain the database name, got %q", stdout.String())
	}
}

func TestInspectReportsMissingDatabase(t *testing.T) {
	dataDir := t.TempDir()
	fs := afero.NewOsFs()
	paths := layout.NewPaths(dataDir)
	fs.MkdirAll(paths.DatabasePath, 0o755)

	var stdout, stderr bytes.Buffer
	code := inspect(dataDir, "nope", &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit code 1 for a missing database, got %d", code)
	}
	if !strings.Contains(stderr.String(), "nope") {
		t.Fatalf("expected error message to mention the missing name, got %q", stderr.String())
	}
}

func TestInspectJSONFormat(t *testing.T) {
	dataDir := t.TempDir()
	fs := afero.NewOsFs()
	paths := layout.NewPaths(dataDir)
	fs.MkdirAll(paths.DatabasePath, 0o755)
	layout.CreateDatabaseDir(fs, paths.DatabasePath, 1<<16, "mydb", nil)

	inspectParams.format.Set(inspectFormatJSON)
	defer inspectParams.format.Set(inspectFormatPretty)

	var stdout, stderr bytes.Buffer
	code := inspect(dataDir, "mydb", &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), `"name": "mydb"`) {
		t.Fatalf("expected JSON output to contain the database name, got %q", stdout.String())
	}
}
