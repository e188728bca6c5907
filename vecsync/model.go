package vecsync

import (
	"encoding/json"
	"time"
)

// LogEntry mirrors a single row of the change log. Payload is the JSON
// object captured by the insert trigger, with BLOB columns hex-encoded.
type LogEntry struct {
	SCN        int64           `json:"scn"`
	Table      string          `json:"table"`
	Op         string          `json:"op"`
	DocumentID string          `json:"document_id"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SyncState describes the latest SCN delivered for a subject.
type SyncState struct {
	Subject   string
	LastSCN   int64
	UpdatedAt time.Time
}

// Config captures the settings of a relay.
type Config struct {
	// Subject prefixes published subjects; entries go to <Subject>.<op>.
	Subject string

	// LogTable is the change-log table to tail (default DefaultLogTable).
	LogTable string

	// StateTable stores per-subject progress (default DefaultStateTable).
	StateTable string

	// BatchSize controls how many log entries to fetch per iteration.
	BatchSize int

	// Interval is the polling period of Run.
	Interval time.Duration
}

func (c *Config) init() {
	if c.Subject == "" {
		c.Subject = DefaultSubject
	}
	if c.LogTable == "" {
		c.LogTable = DefaultLogTable
	}
	if c.StateTable == "" {
		c.StateTable = DefaultStateTable
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
}
