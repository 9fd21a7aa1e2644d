package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/matheus3301/groupweaver/internal/hub"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 5 * time.Second

// wsSubscriber adapts a WebSocket connection to hub.Subscriber.
type wsSubscriber struct {
	id           string
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (s *wsSubscriber) ID() string { return s.id }

func (s *wsSubscriber) Send(ctx context.Context, evt hub.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", evt.EventType(), err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsSubscriber) Close(reason string) error {
	return s.conn.Close(websocket.StatusGoingAway, reason)
}

// WebSocket upgrades the request and keeps the subscriber registered with the
// hub until the peer goes away.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	timeout := h.writeTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	sub := &wsSubscriber{id: uuid.NewString(), conn: conn, writeTimeout: timeout}

	// The request context ends when the handler returns, so deliveries from
	// other goroutines use a context of their own.
	ctx := context.WithoutCancel(r.Context())
	if err := h.hub.Connect(ctx, sub); err != nil {
		h.log.Warn("websocket init failed", zap.String("subscriber", sub.id), zap.Error(err))
		return
	}
	defer h.hub.Disconnect(sub)

	for {
		typ, frame, err := conn.Read(r.Context())
		if err != nil {
			h.log.Debug("websocket read ended", zap.String("subscriber", sub.id), zap.Error(err))
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		h.hub.HandleMessage(ctx, sub, frame)
	}
}
