// Package client talks to a running gwd over its HTTP API, its WebSocket
// feed and its control socket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/matheus3301/groupweaver/internal/aggregate"
	"github.com/matheus3301/groupweaver/internal/apperror"
	"github.com/matheus3301/groupweaver/internal/model"
	"github.com/matheus3301/groupweaver/internal/service"
	"github.com/matheus3301/groupweaver/internal/status"
	intsync "github.com/matheus3301/groupweaver/internal/sync"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the gwd API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for the daemon at baseURL, e.g. "http://127.0.0.1:3002".
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Health is the response from GET /api/health.
type Health struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	AIConfigured     bool      `json:"ai_configured"`
	WebSocketClients int       `json:"websocket_clients"`
	State            string    `json:"state"`
}

// APIError is a non-2xx answer from the daemon.
type APIError struct {
	StatusCode int
	Detail     json.RawMessage
}

func (e *APIError) Error() string {
	var msg string
	if json.Unmarshal(e.Detail, &msg) == nil {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, string(e.Detail))
}

// Unwrap lets callers match a 404 with apperror.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return apperror.ErrNotFound
	}
	return nil
}

type dataEnvelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type messageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Health reports daemon liveness.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Lists returns every stored list.
func (c *Client) Lists(ctx context.Context) ([]model.BroadcastList, error) {
	var resp dataEnvelope[[]model.BroadcastList]
	if err := c.do(ctx, http.MethodGet, "/api/lists", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CommonMembers returns the members shared by two or more lists.
func (c *Client) CommonMembers(ctx context.Context) (*aggregate.Result, error) {
	var resp dataEnvelope[aggregate.Result]
	if err := c.do(ctx, http.MethodGet, "/api/common-members", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Logs returns the activity log, newest first.
func (c *Client) Logs(ctx context.Context) ([]model.LogEntry, error) {
	var resp dataEnvelope[[]model.LogEntry]
	if err := c.do(ctx, http.MethodGet, "/api/logs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ClearLogs empties the activity log.
func (c *Client) ClearLogs(ctx context.Context) error {
	var resp messageEnvelope
	return c.do(ctx, http.MethodDelete, "/api/logs", nil, &resp)
}

// Connections returns live subscriber and device information.
func (c *Client) Connections(ctx context.Context) (*service.Connections, error) {
	var resp dataEnvelope[service.Connections]
	if err := c.do(ctx, http.MethodGet, "/api/connections", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Sync pushes lists as if deviceID had extracted them.
func (c *Client) Sync(ctx context.Context, deviceID string, lists []model.BroadcastList) (*intsync.Result, error) {
	if lists == nil {
		lists = []model.BroadcastList{}
	}
	body := model.SyncRequest{DeviceID: deviceID, Lists: lists}
	var resp dataEnvelope[intsync.Result]
	if err := c.do(ctx, http.MethodPost, "/api/sync", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Delete removes the list with id.
func (c *Client) Delete(ctx context.Context, id string) error {
	var resp messageEnvelope
	return c.do(ctx, http.MethodDelete, "/api/lists/"+url.PathEscape(id), nil, &resp)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: json.RawMessage(respBody)}
		var envelope struct {
			Detail json.RawMessage `json:"detail"`
		}
		if json.Unmarshal(respBody, &envelope) == nil && len(envelope.Detail) > 0 {
			apiErr.Detail = envelope.Detail
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Event is one message from the WebSocket feed. Raw holds the full JSON.
type Event struct {
	Type string
	Raw  json.RawMessage
}

// Watch subscribes to the daemon's WebSocket feed and calls fn for every
// event until ctx is done, the daemon closes the connection, or fn returns
// an error.
func (c *Client) Watch(ctx context.Context, fn func(Event) error) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) != -1 {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := fn(Event{Type: head.Type, Raw: data}); err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return err
		}
	}
}

// ErrNotRunning means no daemon answered on the control socket.
var ErrNotRunning = errors.New("daemon not running")

// Status asks the control socket for the daemon's serving status.
// It returns ErrNotRunning when nothing listens on socketPath.
func Status(ctx context.Context, socketPath string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("dial daemon: %w", err)
	}
	defer func() { _ = conn.Close() }()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: status.HealthService})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return resp.Status, nil
}
