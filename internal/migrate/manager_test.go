package migrate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCollectSQLOrdersByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_listings.up.sql", "0001_init.up.sql", "0001_init.down.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := collectSQL(dir, ".up.sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %d, want 2", len(files))
	}
	if files[0].base != "0001_init.up.sql" || files[1].base != "0002_listings.up.sql" {
		t.Fatalf("unexpected order: %v", files)
	}
}

func TestCollectSQLMissingDir(t *testing.T) {
	files, err := collectSQL(filepath.Join(t.TempDir(), "absent"), ".sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if files != nil {
		t.Fatalf("expected nil for missing dir, got %v", files)
	}
}

func TestSplitStatementsRespectsStrings(t *testing.T) {
	in := `insert into t(name) values ('semi;colon'); create table x(id int);`
	stmts := splitStatements(in)
	if len(stmts) != 2 {
		t.Fatalf("stmts = %d, want 2: %q", len(stmts), stmts)
	}
}
