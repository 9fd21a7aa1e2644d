package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/groupweaver/internal/model"
)

// EventType discriminates the JSON events sent to subscribers.
type EventType string

const (
	TypeInit       EventType = "init"
	TypeSync       EventType = "sync"
	TypeDataChange EventType = "data_change"
	TypeData       EventType = "data"
	TypePong       EventType = "pong"
)

// Event is anything the hub can deliver to a subscriber.
type Event interface {
	EventType() EventType
}

// InitEvent is sent once to each new subscriber.
type InitEvent struct {
	Type             EventType            `json:"type"`
	EventID          string               `json:"event_id"`
	ListsCount       int                  `json:"lists_count"`
	MembersCount     int                  `json:"members_count"`
	ConnectedDevices map[string]time.Time `json:"connected_devices"`
	Timestamp        time.Time            `json:"timestamp"`
}

// SyncEvent announces that a device pushed lists.
type SyncEvent struct {
	Type         EventType `json:"type"`
	EventID      string    `json:"event_id"`
	DeviceID     string    `json:"device_id"`
	ListsCount   int       `json:"lists_count"`
	MembersCount int       `json:"members_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// DataChangeEvent announces a list was created or deleted, or the store changed underneath.
type DataChangeEvent struct {
	Type      EventType `json:"type"`
	EventID   string    `json:"event_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// DataEvent answers a refresh request with the full current lists.
type DataEvent struct {
	Type      EventType             `json:"type"`
	EventID   string                `json:"event_id"`
	Lists     []model.BroadcastList `json:"lists"`
	Timestamp time.Time             `json:"timestamp"`
}

// PongEvent answers a ping.
type PongEvent struct {
	Type EventType `json:"type"`
}

func (InitEvent) EventType() EventType       { return TypeInit }
func (SyncEvent) EventType() EventType       { return TypeSync }
func (DataChangeEvent) EventType() EventType { return TypeDataChange }
func (DataEvent) EventType() EventType       { return TypeData }
func (PongEvent) EventType() EventType       { return TypePong }

// Data-change actions.
const (
	ActionListCreated   = "list_created"
	ActionListDeleted   = "list_deleted"
	ActionStoreReloaded = "store_reloaded"
)

func newEventID() string {
	return uuid.New().String()
}
