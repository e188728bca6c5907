package vecsync

import (
	"strings"
	"testing"
)

func TestSQLiteInsertLogTrigger(t *testing.T) {
	trig := SQLiteInsertLogTrigger("main.notes", "", "id", []Column{
		{Name: "id"},
		{Name: "tags", Kind: JSON},
		{Name: "embedding", Kind: Blob},
	})
	if !strings.Contains(trig, "CREATE TRIGGER IF NOT EXISTS main_notes_ai AFTER INSERT ON main.notes") {
		t.Fatalf("unexpected insert trigger: %s", trig)
	}
	if !strings.Contains(trig, "INSERT INTO note_log(") {
		t.Fatalf("trigger not writing default log table: %s", trig)
	}
	if !strings.Contains(trig, "lower(hex(NEW.embedding))") {
		t.Fatalf("payload not hex-encoded: %s", trig)
	}
	if !strings.Contains(trig, "json(NEW.tags)") {
		t.Fatalf("tags not embedded as JSON: %s", trig)
	}
}

func TestSQLiteAppendOnlyTriggers(t *testing.T) {
	trigs := SQLiteAppendOnlyTriggers("notes")
	if len(trigs) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(trigs))
	}
	if !strings.Contains(trigs[0], "BEFORE UPDATE ON notes") || !strings.Contains(trigs[1], "BEFORE DELETE ON notes") {
		t.Fatalf("unexpected guard triggers: %v", trigs)
	}
	if !strings.Contains(trigs[0], "RAISE(ABORT, 'notes are append-only')") {
		t.Fatalf("guard missing RAISE: %s", trigs[0])
	}
}
