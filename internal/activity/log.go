// Package activity keeps the bounded, most-recent-first activity log stored
// alongside the broadcast lists.
package activity

import (
	"time"

	"github.com/matheus3301/groupweaver/internal/model"
	"github.com/matheus3301/groupweaver/internal/store"
)

// MaxEntries is the ring size. Older entries fall off once it is reached.
const MaxEntries = 100

// Push prepends entry and drops whatever no longer fits.
func Push(logs []model.LogEntry, entry model.LogEntry) []model.LogEntry {
	n := min(len(logs)+1, MaxEntries)
	out := make([]model.LogEntry, n)
	out[0] = entry
	copy(out[1:], logs)
	return out
}

// Log appends to and reads the activity log through the flat store.
type Log struct {
	store *store.FileStore
	now   func() time.Time
}

// NewLog creates an activity log backed by s.
func NewLog(s *store.FileStore) *Log {
	return &Log{store: s, now: time.Now}
}

// Append records an entry and returns it.
func (l *Log) Append(action string, status model.LogStatus, details string) (model.LogEntry, error) {
	entry := model.NewLogEntry(l.now(), action, status, details)
	err := l.store.Update(func(doc *model.Document) error {
		doc.Logs = Push(doc.Logs, entry)
		return nil
	})
	if err != nil {
		return model.LogEntry{}, err
	}
	return entry, nil
}

// All returns every retained entry, most recent first.
func (l *Log) All() ([]model.LogEntry, error) {
	doc, err := l.store.Load()
	if err != nil {
		return nil, err
	}
	return doc.Logs, nil
}

// Clear drops every entry.
func (l *Log) Clear() error {
	return l.store.Update(func(doc *model.Document) error {
		doc.Logs = []model.LogEntry{}
		return nil
	})
}
