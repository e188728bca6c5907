// Package vecsync captures changes to the notes table in an SCN-ordered
// change log (via SQLite triggers) and relays log entries to subscribers
// over NATS. It also provides the triggers that keep the notes table
// append-only.
package vecsync
