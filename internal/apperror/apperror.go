// Package apperror defines the error taxonomy shared by the core and the
// transport layer, and renders validation failures for clients.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrStorageUnavailable means the persisted document could not be read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound means a delete or update targeted an id absent from the store.
	ErrNotFound = errors.New("not found")
	// ErrServiceNotConfigured means an optional AI feature was invoked without credentials.
	ErrServiceNotConfigured = errors.New("AI not configured. Add ANTHROPIC_API_KEY to the environment or config.toml")
	// ErrMalformedUpstreamResponse means the AI reply could not be parsed into the expected shape.
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")
)

var (
	errRequired    = errors.New("is required")
	errEmptyMember = errors.New("must contain at least one member")
)

var customErrors = map[string]error{
	"SyncRequest.DeviceID.required":     errRequired,
	"BroadcastList.ID.required":         errRequired,
	"NameSuggestionRequest.Members.min": errEmptyMember,
	"AnalysisRequest.CommonMembers.min": errEmptyMember,
}

// ValidationDetails converts validator errors into one {field: message} map per failure.
func ValidationDetails(err error) []map[string]string {
	details := make([]map[string]string, 0)

	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		return details
	}
	for _, e := range validationErr {
		field := e.StructNamespace()
		key := field + "." + e.Tag()

		msg := fmt.Sprintf("%s is invalid", field)
		if v, ok := customErrors[key]; ok {
			msg = v.Error()
		}
		details = append(details, map[string]string{e.Field(): msg})
	}
	return details
}

// HTTPStatus maps an error from the core onto the status code the transport should answer with.
func HTTPStatus(err error) int {
	var validationErr validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrServiceNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
