// Package api serves the HTTP and WebSocket transport for the daemon.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/matheus3301/groupweaver/internal/ai"
	"github.com/matheus3301/groupweaver/internal/apperror"
	"github.com/matheus3301/groupweaver/internal/hub"
	"github.com/matheus3301/groupweaver/internal/model"
	"github.com/matheus3301/groupweaver/internal/service"
	"github.com/matheus3301/groupweaver/internal/status"
	"go.uber.org/zap"
)

const (
	// Name is reported by the root endpoint.
	Name = "Group Weaver API"
	// Version is reported by the root endpoint.
	Version = "2.0.0"
	// WebSocketPath is where subscribers connect.
	WebSocketPath = "/ws"
)

// analysisDetailsLen caps how much of an analysis is copied into the activity log.
const analysisDetailsLen = 100

// Handler wraps the core operations with HTTP handlers.
type Handler struct {
	log          *zap.Logger
	svc          *service.Service
	analyst      *ai.Analyst
	hub          *hub.Hub
	machine      *status.Machine
	validate     *validator.Validate
	writeTimeout time.Duration
}

// New creates a new Handler instance. writeTimeout bounds each WebSocket send.
func New(log *zap.Logger, svc *service.Service, analyst *ai.Analyst, h *hub.Hub, machine *status.Machine, v *validator.Validate, writeTimeout time.Duration) *Handler {
	if v == nil {
		v = validator.New()
	}
	return &Handler{
		log:          log,
		svc:          svc,
		analyst:      analyst,
		hub:          h,
		machine:      machine,
		validate:     v,
		writeTimeout: writeTimeout,
	}
}

// Root describes the service.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"name":              Name,
		"version":           Version,
		"status":            "running",
		"websocket":         WebSocketPath,
		"connected_clients": h.hub.Count(),
	})
}

// Health reports liveness along with AI and subscriber status.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"timestamp":         time.Now(),
		"ai_configured":     h.analyst.Configured(),
		"websocket_clients": h.hub.Count(),
		"state":             h.machine.Current(),
	})
}

// AIStatus reports whether the text service is configured.
func (h *Handler) AIStatus(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"configured": h.analyst.Configured(),
		"model":      h.analyst.Model(),
		"provider":   ai.Provider,
	})
}

// Sync receives the lists a phone extracted.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req model.SyncRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.svc.SyncFromDevice(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, res)
}

// Lists returns every stored list.
func (h *Handler) Lists(w http.ResponseWriter, _ *http.Request) {
	lists, err := h.svc.GetLists()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, lists)
}

// CreateList stores a new list.
func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	var l model.BroadcastList
	if err := h.decode(r, &l); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.svc.CreateList(r.Context(), l)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, created)
}

// DeleteList removes the list named in the path.
func (h *Handler) DeleteList(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteList(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeMessage(w, "List deleted")
}

// CommonMembers finds members present in two or more lists.
func (h *Handler) CommonMembers(w http.ResponseWriter, _ *http.Request) {
	res, err := h.svc.FindCommonMembers()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, res)
}

// Analyze asks the AI service to characterize a set of common members.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if !h.analyst.Configured() {
		h.writeError(w, apperror.ErrServiceNotConfigured)
		return
	}
	var req model.AnalysisRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.svc.Record("AI analyzing...", model.StatusPending, "")
	res, err := h.analyst.AnalyzeCommonMembers(r.Context(), req.Lists, req.CommonMembers)
	if err != nil {
		h.svc.Record("AI analysis failed", model.StatusError, err.Error())
		h.writeError(w, err)
		return
	}
	h.svc.Record("AI analysis complete", model.StatusSuccess, truncate(res.Analysis, analysisDetailsLen))
	h.writeData(w, res)
}

// SuggestName asks the AI service for list names.
func (h *Handler) SuggestName(w http.ResponseWriter, r *http.Request) {
	if !h.analyst.Configured() {
		h.writeError(w, apperror.ErrServiceNotConfigured)
		return
	}
	var req model.NameSuggestionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.analyst.SuggestListName(r.Context(), req.Members, req.ExistingNames)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, res)
}

// Insights asks the AI service about how the posted lists are organized.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	if !h.analyst.Configured() {
		h.writeError(w, apperror.ErrServiceNotConfigured)
		return
	}
	lists, err := h.decodeLists(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.analyst.Insights(r.Context(), lists)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, res)
}

// Logs returns the activity log.
func (h *Handler) Logs(w http.ResponseWriter, _ *http.Request) {
	logs, err := h.svc.GetLogs()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, logs)
}

// ClearLogs empties the activity log.
func (h *Handler) ClearLogs(w http.ResponseWriter, _ *http.Request) {
	if err := h.svc.ClearLogs(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeMessage(w, "Logs cleared")
}

// Connections reports live subscribers and the devices seen since start.
func (h *Handler) Connections(w http.ResponseWriter, _ *http.Request) {
	h.writeData(w, h.svc.GetConnections())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
