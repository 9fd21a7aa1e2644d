package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/matheus3301/groupweaver/internal/apperror"
	"github.com/matheus3301/groupweaver/internal/model"
	"go.uber.org/zap"
)

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("unable to write response stream", zap.Error(err))
	}
}

func (h *Handler) writeData(w http.ResponseWriter, data any) {
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: data})
}

func (h *Handler) writeMessage(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: msg})
}

// writeError renders err with the status the taxonomy assigns it. Validation
// failures are listed per field.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := apperror.HTTPStatus(err)

	var detail any = err.Error()
	var validationErr validator.ValidationErrors
	var badRequest *badRequestError
	switch {
	case errors.As(err, &badRequest):
		code = http.StatusBadRequest
	case errors.As(err, &validationErr):
		detail = apperror.ValidationDetails(err)
	case errors.Is(err, apperror.ErrNotFound):
		detail = "List not found"
	case errors.Is(err, apperror.ErrServiceNotConfigured):
		detail = apperror.ErrServiceNotConfigured.Error()
	}

	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		h.log.Error("request failed", zap.Error(err))
	} else {
		h.log.Warn("request rejected", zap.Int("status", code), zap.Error(err))
	}
	h.writeJSON(w, code, errorResponse{Detail: detail})
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &badRequestError{err: err}
	}
	return h.validate.Struct(v)
}

// decodeLists reads a bare JSON array of lists and validates each one.
func (h *Handler) decodeLists(r *http.Request) ([]model.BroadcastList, error) {
	var lists []model.BroadcastList
	if err := json.NewDecoder(r.Body).Decode(&lists); err != nil {
		return nil, &badRequestError{err: err}
	}
	for i := range lists {
		if err := h.validate.Struct(&lists[i]); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

// badRequestError marks an undecodable request body.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "invalid request payload: " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }
