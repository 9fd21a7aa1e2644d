package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matheus3301/groupweaver/internal/activity"
	"github.com/matheus3301/groupweaver/internal/ai"
	"github.com/matheus3301/groupweaver/internal/hub"
	"github.com/matheus3301/groupweaver/internal/service"
	"github.com/matheus3301/groupweaver/internal/status"
	"github.com/matheus3301/groupweaver/internal/store"
	intsync "github.com/matheus3301/groupweaver/internal/sync"
)

// stubCompleter answers analysis prompts with reply and everything else with
// prose, which exercises the default payloads.
type stubCompleter struct {
	reply string
}

func (s stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "common members") {
		return s.reply, nil
	}
	return "I would need more context.", nil
}

type testEnv struct {
	srv *httptest.Server
	hub *hub.Hub
}

func newTestEnv(t *testing.T, completer ai.Completer) *testEnv {
	t.Helper()
	core, _ := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	s, err := store.Open(filepath.Join(t.TempDir(), "storage.json"))
	require.NoError(t, err)

	h := hub.New(s, logger)
	m := status.NewMachine()
	require.NoError(t, m.Transition(status.Ready))
	svc := service.New(s, intsync.NewEngine(s, logger), activity.NewLog(s), h, m, logger)
	analyst := ai.NewAnalyst(completer, "test-model", time.Second, logger)

	srv := httptest.NewServer(NewRouter(New(logger, svc, analyst, h, m, nil, time.Second)))
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return &testEnv{srv: srv, hub: h}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, strings.TrimSpace(string(b))
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"websocket":"/ws"`)
	assert.Contains(t, body, `"status":"running"`)

	code, body = env.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"ai_configured":false`)
	assert.Contains(t, body, `"state":"READY"`)

	code, body = env.do(t, http.MethodGet, "/api/ai/status", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"configured":false,"model":"test-model","provider":"anthropic"}`, body)
}

func TestSyncAndCommonMembers(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.do(t, http.MethodPost, "/api/sync",
		`{"device_id":"A","lists":[{"id":"L1","name":"Team","members":[{"id":"1","name":"Bob","phone":"5551234567"}]}]}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Contains(t, body, `"synced":1`)

	code, _ = env.do(t, http.MethodPost, "/api/sync",
		`{"device_id":"B","lists":[{"id":"L2","name":"Friends","members":[{"id":"2","name":"Bob","phone":"+15551234567"}]}]}`)
	require.Equal(t, http.StatusOK, code)

	code, body = env.do(t, http.MethodGet, "/api/common-members", "")
	require.Equal(t, http.StatusOK, code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			CommonMembers []struct {
				Name      string   `json:"name"`
				AppearsIn int      `json:"appears_in"`
				ListNames []string `json:"list_names"`
			} `json:"common_members"`
			SourceListsCount int `json:"source_lists_count"`
			TotalCommon      int `json:"total_common"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.SourceListsCount)
	require.Len(t, resp.Data.CommonMembers, 1)
	assert.Equal(t, "Bob", resp.Data.CommonMembers[0].Name)
	assert.Equal(t, 2, resp.Data.CommonMembers[0].AppearsIn)
	assert.ElementsMatch(t, []string{"Team", "Friends"}, resp.Data.CommonMembers[0].ListNames)

	code, body = env.do(t, http.MethodGet, "/api/connections", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"A"`)
	assert.Contains(t, body, `"B"`)
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		expectCode int
		expectBody string
	}{
		{
			name:       "missing device id",
			method:     http.MethodPost,
			path:       "/api/sync",
			body:       `{"lists":[]}`,
			expectCode: http.StatusBadRequest,
			expectBody: `{"detail":[{"DeviceID":"is required"}]}`,
		},
		{
			name:       "list without id",
			method:     http.MethodPost,
			path:       "/api/lists",
			body:       `{"name":"Team","members":[]}`,
			expectCode: http.StatusBadRequest,
			expectBody: `{"detail":[{"ID":"is required"}]}`,
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/api/sync",
			body:       `{not json`,
			expectCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectCode, code)
			if tt.expectBody != "" {
				assert.JSONEq(t, tt.expectBody, body)
			}
		})
	}
}

func TestCreateAndDeleteList(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.do(t, http.MethodPost, "/api/lists", `{"id":"C1","name":"Common","members":[],"isAutoGenerated":true}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Contains(t, body, `"is_auto_generated":true`)

	code, body = env.do(t, http.MethodDelete, "/api/lists/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"detail":"List not found"}`, body)

	code, body = env.do(t, http.MethodDelete, "/api/lists/C1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"success":true,"message":"List deleted"}`, body)

	_, body = env.do(t, http.MethodGet, "/api/lists", "")
	assert.JSONEq(t, `{"success":true,"data":[]}`, body)
}

func TestLogsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/lists", `{"id":"a","name":"A","members":[]}`)

	code, body := env.do(t, http.MethodDelete, "/api/logs", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"success":true,"message":"Logs cleared"}`, body)

	_, body = env.do(t, http.MethodGet, "/api/logs", "")
	var resp struct {
		Data []struct {
			Action string `json:"action"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Logs cleared", resp.Data[0].Action)
}

func TestAIEndpointsNotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/api/analyze", "/api/suggest-name", "/api/insights"} {
		code, body := env.do(t, http.MethodPost, path, `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, code, path)
		assert.Contains(t, body, "AI not configured", path)
	}
}

func TestAIEndpointsConfigured(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: `{"analysis":"Coworkers from the office","suggestedName":"Office","confidence":"high"}`})

	code, body := env.do(t, http.MethodPost, "/api/analyze",
		`{"lists":[{"id":"L1","name":"Team","members":[]}],"common_members":[{"id":"1","name":"Bob","phone":"555"}]}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Contains(t, body, `"suggestedName":"Office"`)

	_, body = env.do(t, http.MethodGet, "/api/logs", "")
	assert.Contains(t, body, "AI analysis complete")
	assert.Contains(t, body, "Coworkers from the office")

	code, body = env.do(t, http.MethodPost, "/api/suggest-name", `{"members":[{"id":"1","name":"Bob"}]}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Contains(t, body, `"bestPick":"New List"`)

	code, body = env.do(t, http.MethodPost, "/api/suggest-name", `{"members":[]}`)
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = env.do(t, http.MethodPost, "/api/insights", `[{"id":"L1","name":"Team","members":[]}]`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Contains(t, body, `"recommendation":"Continue current approach"`)
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var evt map[string]any
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestWebSocketLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + WebSocketPath
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	first := readEvent(t, ctx, conn)
	assert.Equal(t, "init", first["type"])
	assert.EqualValues(t, 0, first["lists_count"])

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readEvent(t, ctx, conn)["type"])

	code, _ := env.do(t, http.MethodPost, "/api/lists", `{"id":"L1","name":"Team","members":[]}`)
	require.Equal(t, http.StatusOK, code)
	change := readEvent(t, ctx, conn)
	assert.Equal(t, "data_change", change["type"])
	assert.Equal(t, "list_created", change["action"])
	assert.Equal(t, "Team", change["details"])

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"refresh"}`)))
	data := readEvent(t, ctx, conn)
	assert.Equal(t, "data", data["type"])
	assert.Len(t, data["lists"], 1)

	assert.Equal(t, 1, env.hub.Count())
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return env.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
