// Package realtime relays row changes from PostgreSQL to live subscribers.
//
// A trigger on each table sends a NOTIFY on Channel; Listener receives it,
// decodes a Change and hands it to a Hub, which fans it out to every Sink.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Channel is the NOTIFY channel the change trigger publishes on.
const Channel = "table_changes"

// Tables that emit changes.
const (
	TableRegistrations   = "registrations"
	TableContactMessages = "contact_messages"
)

// Tables lists every table with a change stream.
var Tables = []string{TableRegistrations, TableContactMessages}

// Change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change is a single row change.
type Change struct {
	Table string    `json:"table"`
	Op    string    `json:"op"`
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
}

// IsTable reports whether name has a change stream.
func IsTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}

// DecodeChange parses a trigger payload received at.
func DecodeChange(payload string, at time.Time) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	c.Op = strings.ToLower(c.Op)
	c.At = at.UTC()

	if !IsTable(c.Table) {
		return Change{}, fmt.Errorf("decode change: unknown table %q", c.Table)
	}
	switch c.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return Change{}, fmt.Errorf("decode change: unknown op %q", c.Op)
	}
	if c.ID == "" {
		return Change{}, fmt.Errorf("decode change: missing id")
	}
	return c, nil
}
