package vecsync

import (
	"fmt"
	"strings"
)

const (
	// DefaultLogTable captures row-level insert events with a monotonically increasing SCN.
	DefaultLogTable = "note_log"

	// DefaultStateTable stores relay progress per subject.
	DefaultStateTable = "note_sync_state"

	// DefaultSubject is the NATS subject prefix for note events.
	DefaultSubject = "brain.notes"
)

// ColumnKind controls how a column is rendered in the trigger payload.
type ColumnKind int

const (
	Text ColumnKind = iota
	// JSON columns already hold JSON text and are embedded as values.
	JSON
	// Blob columns are hex-encoded.
	Blob
)

// Column names a source column captured in the payload.
type Column struct {
	Name string
	Kind ColumnKind
}

// LogTableDDL returns the DDL for the change log table.
func LogTableDDL(table string) string {
	if table == "" {
		table = DefaultLogTable
	}
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    scn          INTEGER PRIMARY KEY AUTOINCREMENT,
    source_table TEXT NOT NULL,
    op           TEXT NOT NULL,
    document_id  TEXT NOT NULL,
    payload      TEXT NOT NULL,
    created_at   TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

// StateTableDDL returns the DDL for relay progress tracking.
func StateTableDDL(table string) string {
	if table == "" {
		table = DefaultStateTable
	}
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    subject    TEXT PRIMARY KEY,
    last_scn   INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);`
}

// SQLiteInsertLogTrigger returns an AFTER INSERT trigger on table that
// appends a JSON payload of columns to logTable. idColumn supplies document_id.
func SQLiteInsertLogTrigger(table, logTable, idColumn string, columns []Column) string {
	if logTable == "" {
		logTable = DefaultLogTable
	}
	base := sanitizeIdentifier(table)
	pairs := make([]string, 0, len(columns))
	for _, c := range columns {
		expr := "NEW." + c.Name
		switch c.Kind {
		case JSON:
			expr = "json(" + expr + ")"
		case Blob:
			expr = "lower(hex(" + expr + "))"
		}
		pairs = append(pairs, fmt.Sprintf("'%s', %s", c.Name, expr))
	}
	return fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ai AFTER INSERT ON %s
BEGIN
    INSERT INTO %s(source_table, op, document_id, payload)
    VALUES (
        '%s',
        'insert',
        NEW.%s,
        json_object(
        %s
        )
    );
END;`, base, table, logTable, table, idColumn, strings.Join(pairs, ",\n        "))
}

// SQLiteAppendOnlyTriggers returns BEFORE UPDATE and BEFORE DELETE triggers
// that abort any attempt to modify or remove rows of table.
func SQLiteAppendOnlyTriggers(table string) []string {
	base := sanitizeIdentifier(table)
	msg := strings.ReplaceAll(table, "'", "''") + " are append-only"
	guard := func(suffix, event string) string {
		return fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_%s BEFORE %s ON %s
BEGIN
    SELECT RAISE(ABORT, '%s');
END;`, base, suffix, event, table, msg)
	}
	return []string{guard("bu", "UPDATE"), guard("bd", "DELETE")}
}

func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	replacer := strings.NewReplacer(".", "_", "-", "_")
	return replacer.Replace(name)
}
