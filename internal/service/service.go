// Package service exposes the operations the transport layer may invoke.
// Writes reach the store first, then the activity log, then subscribers.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/groupweaver/internal/activity"
	"github.com/matheus3301/groupweaver/internal/aggregate"
	"github.com/matheus3301/groupweaver/internal/apperror"
	"github.com/matheus3301/groupweaver/internal/hub"
	"github.com/matheus3301/groupweaver/internal/model"
	"github.com/matheus3301/groupweaver/internal/status"
	"github.com/matheus3301/groupweaver/internal/store"
	intsync "github.com/matheus3301/groupweaver/internal/sync"
	"go.uber.org/zap"
)

// Connections describes the live real-time audience.
type Connections struct {
	ActiveConnections int                  `json:"active_connections"`
	ConnectedDevices  map[string]time.Time `json:"connected_devices"`
}

// Service ties the store, merge engine, activity log and hub together.
// Mutations hold writeMu from the store write through the broadcast, so
// subscribers see events in commit order.
type Service struct {
	writeMu sync.Mutex

	store   *store.FileStore
	engine  *intsync.Engine
	log     *activity.Log
	hub     *hub.Hub
	machine *status.Machine
	logger  *zap.Logger
	now     func() time.Time
}

// New creates the service. machine may be nil.
func New(s *store.FileStore, engine *intsync.Engine, log *activity.Log, h *hub.Hub, machine *status.Machine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   s,
		engine:  engine,
		log:     log,
		hub:     h,
		machine: machine,
		logger:  logger,
		now:     time.Now,
	}
}

// SyncFromDevice merges a device's lists, records the outcome and notifies subscribers.
func (s *Service) SyncFromDevice(ctx context.Context, req model.SyncRequest) (intsync.Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.engine.SyncFromDevice(req.DeviceID, req.Lists)
	s.observe(err)
	if err != nil {
		s.record("Android sync failed", model.StatusError, err.Error())
		return intsync.Result{}, err
	}

	s.record(fmt.Sprintf("Synced %d lists from Android", res.Synced), model.StatusSuccess, "Device: "+req.DeviceID)
	s.hub.NotifySync(ctx, req.DeviceID, res.Synced, model.MemberCount(req.Lists))
	return res, nil
}

// GetLists returns every stored list.
func (s *Service) GetLists() ([]model.BroadcastList, error) {
	lists, err := s.store.Lists()
	s.observe(err)
	return lists, err
}

// CreateList stores l, replacing any list with the same id in place.
func (s *Service) CreateList(ctx context.Context, l model.BroadcastList) (model.BroadcastList, error) {
	now := s.now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = model.NewTimestamp(now)
	}
	if l.Members == nil {
		l.Members = []model.Contact{}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.store.Update(func(doc *model.Document) error {
		replaced := false
		for i := range doc.Lists {
			if doc.Lists[i].ID == l.ID {
				doc.Lists[i] = l
				replaced = true
				break
			}
		}
		if !replaced {
			doc.Lists = append(doc.Lists, l)
		}
		doc.LastSync = model.TimestampPtr(now)
		return nil
	})
	s.observe(err)
	if err != nil {
		return model.BroadcastList{}, fmt.Errorf("create list %q: %w", l.ID, err)
	}

	s.record(fmt.Sprintf("Created list '%s'", l.Name), model.StatusSuccess, fmt.Sprintf("%d members", len(l.Members)))
	s.hub.NotifyDataChange(ctx, hub.ActionListCreated, l.Name)
	return l, nil
}

// DeleteList removes the list with id. It returns apperror.ErrNotFound, and
// leaves the store untouched, when no such list exists.
func (s *Service) DeleteList(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var deletedName string
	err := s.store.Update(func(doc *model.Document) error {
		kept := make([]model.BroadcastList, 0, len(doc.Lists))
		found := false
		for _, l := range doc.Lists {
			if l.ID == id {
				if !found {
					deletedName = l.Name
				}
				found = true
				continue
			}
			kept = append(kept, l)
		}
		if !found {
			return fmt.Errorf("list %q: %w", id, apperror.ErrNotFound)
		}
		doc.Lists = kept
		doc.LastSync = model.TimestampPtr(s.now())
		return nil
	})
	if errors.Is(err, apperror.ErrNotFound) {
		s.observe(nil)
		return err
	}
	s.observe(err)
	if err != nil {
		return fmt.Errorf("delete list %q: %w", id, err)
	}

	s.record("Deleted list "+id, model.StatusSuccess, "")
	details := deletedName
	if details == "" {
		details = id
	}
	s.hub.NotifyDataChange(ctx, hub.ActionListDeleted, details)
	return nil
}

// FindCommonMembers aggregates over the current lists without mutating them.
func (s *Service) FindCommonMembers() (aggregate.Result, error) {
	lists, err := s.GetLists()
	if err != nil {
		return aggregate.Result{}, err
	}
	return aggregate.FindCommonMembers(lists), nil
}

// GetLogs returns the activity log, most recent first.
func (s *Service) GetLogs() ([]model.LogEntry, error) {
	logs, err := s.log.All()
	s.observe(err)
	return logs, err
}

// ClearLogs empties the activity log and then records the clear itself, so
// exactly one trace entry remains.
func (s *Service) ClearLogs() error {
	err := s.log.Clear()
	s.observe(err)
	if err != nil {
		return fmt.Errorf("clear logs: %w", err)
	}
	if _, err := s.log.Append("Logs cleared", model.StatusSuccess, ""); err != nil {
		return fmt.Errorf("record logs cleared: %w", err)
	}
	return nil
}

// GetConnections reports the live subscriber count and the devices seen since start.
func (s *Service) GetConnections() Connections {
	return Connections{
		ActiveConnections: s.hub.Count(),
		ConnectedDevices:  s.hub.Devices(),
	}
}

// Record appends an activity entry on behalf of features outside the core,
// such as AI analysis. Failures are logged, not returned.
func (s *Service) Record(action string, st model.LogStatus, details string) {
	s.record(action, st, details)
}

func (s *Service) record(action string, st model.LogStatus, details string) {
	if _, err := s.log.Append(action, st, details); err != nil {
		s.observe(err)
		s.logger.Warn("failed to append activity log", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) observe(err error) {
	if s.machine == nil {
		return
	}
	if err != nil && !errors.Is(err, apperror.ErrStorageUnavailable) {
		return
	}
	s.machine.ReportStorage(err)
}
