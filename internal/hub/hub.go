// Package hub fans change notifications out to live real-time subscribers.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/matheus3301/groupweaver/internal/model"
	"go.uber.org/zap"
)

// Subscriber is one live real-time connection.
type Subscriber interface {
	// ID identifies the subscriber for the lifetime of the connection.
	ID() string
	// Send delivers one event. An error means the subscriber is gone.
	Send(ctx context.Context, evt Event) error
}

// closer is implemented by subscribers that own a transport the hub should
// close when it drops them.
type closer interface {
	Close(reason string) error
}

// ListSource supplies the current lists for init and refresh snapshots.
type ListSource interface {
	Lists() ([]model.BroadcastList, error)
}

// Hub tracks live subscribers and the devices seen since process start.
// Deliveries are serialized so every subscriber observes events in the order
// they were broadcast.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]Subscriber
	devices map[string]time.Time

	deliver sync.Mutex

	source ListSource
	logger *zap.Logger
	now    func() time.Time
}

// New creates an empty hub reading snapshots from source.
func New(source ListSource, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:    make(map[string]Subscriber),
		devices: make(map[string]time.Time),
		source:  source,
		logger:  logger,
		now:     time.Now,
	}
}

// Connect registers sub and sends it, and only it, the init snapshot.
// If the snapshot cannot be built the subscriber stays registered without an
// init event. If the init delivery fails the subscriber is dropped and the
// error returned.
func (h *Hub) Connect(ctx context.Context, sub Subscriber) error {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	h.subs[sub.ID()] = sub
	total := len(h.subs)
	h.mu.Unlock()
	h.logger.Info("subscriber connected", zap.String("subscriber", sub.ID()), zap.Int("total", total))

	lists, err := h.source.Lists()
	if err != nil {
		h.logger.Warn("init snapshot unavailable", zap.String("subscriber", sub.ID()), zap.Error(err))
		return nil
	}

	init := InitEvent{
		Type:             TypeInit,
		EventID:          newEventID(),
		ListsCount:       len(lists),
		MembersCount:     model.MemberCount(lists),
		ConnectedDevices: h.Devices(),
		Timestamp:        h.now(),
	}
	if err := sub.Send(ctx, init); err != nil {
		h.drop(sub, err)
		return fmt.Errorf("send init: %w", err)
	}
	return nil
}

// Disconnect removes sub. Removing an unknown subscriber is a no-op.
func (h *Hub) Disconnect(sub Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub.ID()]
	delete(h.subs, sub.ID())
	total := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.logger.Info("subscriber disconnected", zap.String("subscriber", sub.ID()), zap.Int("total", total))
	}
}

// Broadcast delivers evt to every live subscriber. Subscribers whose delivery
// fails are removed once the sweep finishes; the failure never reaches the caller.
// Cancelling ctx does not abort the sweep: only a subscriber's own write
// timeout or transport error can fail its delivery.
func (h *Hub) Broadcast(ctx context.Context, evt Event) {
	ctx = context.WithoutCancel(ctx)

	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	type failure struct {
		sub Subscriber
		err error
	}
	var failed []failure
	for _, s := range subs {
		if err := s.Send(ctx, evt); err != nil {
			failed = append(failed, failure{sub: s, err: err})
		}
	}
	for _, f := range failed {
		h.drop(f.sub, f.err)
	}
}

// NotifySync records deviceID as seen now and broadcasts a sync event.
func (h *Hub) NotifySync(ctx context.Context, deviceID string, listsCount, membersCount int) {
	now := h.now()
	h.mu.Lock()
	h.devices[deviceID] = now
	h.mu.Unlock()

	h.Broadcast(ctx, SyncEvent{
		Type:         TypeSync,
		EventID:      newEventID(),
		DeviceID:     deviceID,
		ListsCount:   listsCount,
		MembersCount: membersCount,
		Timestamp:    now,
	})
}

// NotifyDataChange broadcasts a data_change event.
func (h *Hub) NotifyDataChange(ctx context.Context, action, details string) {
	h.Broadcast(ctx, DataChangeEvent{
		Type:      TypeDataChange,
		EventID:   newEventID(),
		Action:    action,
		Details:   details,
		Timestamp: h.now(),
	})
}

// HandleMessage answers an inbound frame from sub. A ping gets a pong and a
// refresh gets the current lists; anything else is ignored.
func (h *Hub) HandleMessage(ctx context.Context, sub Subscriber, frame []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "ping":
		h.sendTo(ctx, sub, PongEvent{Type: TypePong})
	case "refresh":
		lists, err := h.source.Lists()
		if err != nil {
			h.logger.Warn("refresh snapshot unavailable", zap.String("subscriber", sub.ID()), zap.Error(err))
			return
		}
		h.sendTo(ctx, sub, DataEvent{
			Type:      TypeData,
			EventID:   newEventID(),
			Lists:     lists,
			Timestamp: h.now(),
		})
	}
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Devices returns each device seen since start with its most recent sync time.
func (h *Hub) Devices() map[string]time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return maps.Clone(h.devices)
}

// Close drops every subscriber, closing those that own a transport.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]Subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		if c, ok := s.(closer); ok {
			_ = c.Close("server shutting down")
		}
	}
	h.logger.Info("hub closed", zap.Int("dropped", len(subs)))
}

func (h *Hub) sendTo(ctx context.Context, sub Subscriber, evt Event) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.RLock()
	_, live := h.subs[sub.ID()]
	h.mu.RUnlock()
	if !live {
		return
	}
	if err := sub.Send(ctx, evt); err != nil {
		h.drop(sub, err)
	}
}

func (h *Hub) drop(sub Subscriber, cause error) {
	h.logger.Debug("dropping subscriber", zap.String("subscriber", sub.ID()), zap.Error(cause))
	h.Disconnect(sub)
	if c, ok := sub.(closer); ok {
		_ = c.Close("delivery failed")
	}
}
