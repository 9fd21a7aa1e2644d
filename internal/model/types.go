// Package model holds the persisted document and the transport request types.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// LogStatus is the outcome recorded on an activity log entry.
type LogStatus string

const (
	StatusSuccess LogStatus = "success"
	StatusError   LogStatus = "error"
	StatusPending LogStatus = "pending"
)

// Contact is a single member of a broadcast list.
type Contact struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Phone  string  `json:"phone"`
	Avatar *string `json:"avatar"`
}

// BroadcastList is a named, ordered set of contacts. Duplicate members are kept.
type BroadcastList struct {
	ID              string     `json:"id" validate:"required"`
	Name            string     `json:"name"`
	Members         []Contact  `json:"members" validate:"dive"`
	CreatedAt       Timestamp  `json:"created_at"`
	IsAutoGenerated bool       `json:"is_auto_generated"`
	SyncedFrom      string     `json:"synced_from,omitempty"`
	SyncedAt        *Timestamp `json:"synced_at,omitempty"`
}

// UnmarshalJSON folds the historical camelCase isAutoGenerated flag into the
// canonical field, so callers only ever check IsAutoGenerated.
func (l *BroadcastList) UnmarshalJSON(data []byte) error {
	type plain BroadcastList
	aux := struct {
		*plain
		IsAutoGeneratedCamel *bool `json:"isAutoGenerated"`
	}{plain: (*plain)(l)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.IsAutoGeneratedCamel != nil && *aux.IsAutoGeneratedCamel {
		l.IsAutoGenerated = true
	}
	if l.Members == nil {
		l.Members = []Contact{}
	}
	return nil
}

// MemberCount sums the member counts of lists.
func MemberCount(lists []BroadcastList) int {
	n := 0
	for _, l := range lists {
		n += len(l.Members)
	}
	return n
}

// LogEntry is one activity log record.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp Timestamp `json:"timestamp"`
	Action    string    `json:"action"`
	Status    LogStatus `json:"status"`
	Details   *string   `json:"details"`
}

// NewLogEntry builds an entry stamped at now. An empty details is stored as null.
func NewLogEntry(now time.Time, action string, status LogStatus, details string) LogEntry {
	e := LogEntry{
		ID:        fmt.Sprintf("log-%d.%06d", now.Unix(), now.Nanosecond()/1000),
		Timestamp: NewTimestamp(now),
		Action:    action,
		Status:    status,
	}
	if details != "" {
		e.Details = &details
	}
	return e
}

// Document is the whole persisted state.
type Document struct {
	Lists    []BroadcastList `json:"lists"`
	Logs     []LogEntry      `json:"logs"`
	LastSync *Timestamp      `json:"last_sync"`
}

// EmptyDocument returns the document a fresh store is seeded with.
func EmptyDocument() *Document {
	return &Document{
		Lists: []BroadcastList{},
		Logs:  []LogEntry{},
	}
}

// Normalize replaces nil slices with empty ones so the file never holds null collections.
func (d *Document) Normalize() {
	if d.Lists == nil {
		d.Lists = []BroadcastList{}
	}
	if d.Logs == nil {
		d.Logs = []LogEntry{}
	}
}
