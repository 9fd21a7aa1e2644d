// Package sync merges broadcast lists pushed by devices into the store.
package sync

import (
	"fmt"
	"time"

	"github.com/matheus3301/groupweaver/internal/model"
	"github.com/matheus3301/groupweaver/internal/store"
	"go.uber.org/zap"
)

// Result summarizes one device sync.
type Result struct {
	Synced    int             `json:"synced"`
	Total     int             `json:"total"`
	Timestamp model.Timestamp `json:"timestamp"`
}

// Engine applies last-write-wins merges of device lists to the store.
type Engine struct {
	store  *store.FileStore
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates a new sync engine.
func NewEngine(s *store.FileStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// SyncFromDevice merges lists into the stored document and updates last_sync.
// Re-syncing the same ids is idempotent apart from the sync timestamps.
func (e *Engine) SyncFromDevice(deviceID string, lists []model.BroadcastList) (Result, error) {
	now := e.now()
	var result Result

	err := e.store.Update(func(doc *model.Document) error {
		merged, replaced := Reconcile(doc.Lists, lists, deviceID, now)
		for _, r := range replaced {
			e.logger.Warn("list overwritten by another device",
				zap.String("list_id", r.ListID),
				zap.String("previous_device", r.FromDevice),
				zap.String("device", r.ToDevice))
		}
		doc.Lists = merged
		doc.LastSync = model.TimestampPtr(now)

		result = Result{
			Synced:    len(lists),
			Total:     len(merged),
			Timestamp: model.NewTimestamp(now),
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("sync from %q: %w", deviceID, err)
	}

	e.logger.Info("device synced",
		zap.String("device", deviceID),
		zap.Int("synced", result.Synced),
		zap.Int("total", result.Total))
	return result, nil
}
