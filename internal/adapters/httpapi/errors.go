package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	zlog "github.com/rs/zerolog/log"

	"github.com/actilink/actilink-api/internal/app/accounts"
	"github.com/actilink/actilink-api/internal/app/activities"
	"github.com/actilink/actilink-api/internal/app/profiles"
)

// ErrorBody is the payload of every non-2xx JSON response.
type ErrorBody struct {
	Code      string                             `json:"code"`
	Message   string                             `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]          `json:"requestId,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func newErrorResponse(r *http.Request, code string, message string, details map[string]any) ErrorResponse {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	return er
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, newErrorResponse(r, code, message, details))
}

func writeUnauthenticated(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func writeValidation(w http.ResponseWriter, r *http.Request, message string, details map[string]any) {
	writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

// writeServiceError maps application errors to their HTTP status. Anything
// else is logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if ae := (*activities.Error)(nil); errors.As(err, &ae) {
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	if pe := (*profiles.Error)(nil); errors.As(err, &pe) {
		writeError(w, r, pe.Status, pe.Code, pe.Message, pe.Details)
		return
	}
	if ce := (*accounts.Error)(nil); errors.As(err, &ce) {
		writeError(w, r, ce.Status, ce.Code, ce.Message, ce.Details)
		return
	}
	zlog.Error().Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("unhandled error")
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
