package sync

import (
	"time"

	"github.com/matheus3301/groupweaver/internal/model"
)

// Replacement describes an incoming list that overwrote one stamped by another device.
type Replacement struct {
	ListID     string
	FromDevice string
	ToDevice   string
}

// Reconcile merges incoming into existing keyed by list id. Every incoming list
// is stamped with deviceID and now, gets now as created_at when it carries
// none, and unconditionally replaces any stored list with the same id. Stored lists keep their position; new ids are appended in
// incoming order.
func Reconcile(existing, incoming []model.BroadcastList, deviceID string, now time.Time) ([]model.BroadcastList, []Replacement) {
	merged := make([]model.BroadcastList, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, l := range merged {
		index[l.ID] = i
	}

	var replaced []Replacement
	for _, l := range incoming {
		l.SyncedFrom = deviceID
		l.SyncedAt = model.TimestampPtr(now)
		if l.CreatedAt.IsZero() {
			l.CreatedAt = model.NewTimestamp(now)
		}
		if l.Members == nil {
			l.Members = []model.Contact{}
		}

		if i, ok := index[l.ID]; ok {
			if prev := merged[i].SyncedFrom; prev != "" && prev != deviceID {
				replaced = append(replaced, Replacement{ListID: l.ID, FromDevice: prev, ToDevice: deviceID})
			}
			merged[i] = l
			continue
		}
		index[l.ID] = len(merged)
		merged = append(merged, l)
	}
	return merged, replaced
}
