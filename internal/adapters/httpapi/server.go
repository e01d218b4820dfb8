package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/actilink/actilink-api/internal/app/accounts"
	"github.com/actilink/actilink-api/internal/app/activities"
	"github.com/actilink/actilink-api/internal/app/profiles"
	"github.com/actilink/actilink-api/internal/ports/out/idempotency"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers. Each handler decodes the request, delegates
// to an application service and maps the result back to JSON.
type Server struct {
	Activities *activities.Service
	Profiles   *profiles.Service
	Accounts   *accounts.Service
	Idem       idempotency.Store
}

func NewServer(activitiesSvc *activities.Service, profilesSvc *profiles.Service, accountsSvc *accounts.Service, idem idempotency.Store) *Server {
	return &Server{
		Activities: activitiesSvc,
		Profiles:   profilesSvc,
		Accounts:   accountsSvc,
		Idem:       idem,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON document into dst. On failure it writes a
// 422 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeValidation(w, r, "missing request body", nil)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeValidation(w, r, "missing request body", nil)
			return false
		}
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large", nil)
			return false
		}
		writeValidation(w, r, "malformed JSON body", map[string]any{"body": err.Error()})
		return false
	}
	return true
}
