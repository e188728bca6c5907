package engine

import (
	"path/filepath"
	"testing"
)

// TestOpenInMemory verifies that we can open an in-memory SQLite database
// using the modernc.org/sqlite driver and execute a trivial statement.
func TestOpenInMemory(t *testing.T) {
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE t(x INTEGER)"); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO t(x) VALUES (1),(2),(3)"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
	var n int
	if err := db.QueryRow("SELECT count(*) FROM t").Scan(&n); err != nil || n != 3 {
		t.Fatalf("count = %d, %v; want 3", n, err)
	}
}

// TestOpenFileUsesWAL verifies file databases are opened in WAL mode.
func TestOpenFileUsesWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "brain.sqlite"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode failed: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
}

func TestWithPragmas(t *testing.T) {
	if got := withPragmas("a.db?mode=ro"); got != "a.db?mode=ro&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" {
		t.Fatalf("withPragmas = %q", got)
	}
	if got := withPragmas(MemoryDSN); got != MemoryDSN {
		t.Fatalf("withPragmas(:memory:) = %q", got)
	}
}
