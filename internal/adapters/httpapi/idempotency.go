package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/ports/out/idempotency"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replay"
	errCodeIdempotencyReuse = "IDEMPOTENCY_KEY_REUSE"
)

// mutation runs the side effect of a request and returns the status and payload to send.
type mutation func() (int, any, error)

// hashRequest fingerprints the canonical request: path parameter plus decoded body.
func hashRequest(pathID string, body any) (string, error) {
	raw, err := json.Marshal(struct {
		ID   string `json:"id"`
		Body any    `json:"body"`
	}{ID: pathID, Body: body})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// serveIdempotent executes run at most once per (subject, Idempotency-Key, route, body).
//
// A repeat with the same body replays the stored 2xx response. Reusing a key
// on the same route with a different body is rejected with 409. Requests
// without the header run normally.
func (s *Server) serveIdempotent(w http.ResponseWriter, r *http.Request, sub domain.UserID, route string, bodyHash string, run mutation) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" || s.Idem == nil {
		status, payload, err := run()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, status, payload)
		return
	}

	metaFP := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: sub,
		Method:  r.Method,
		Route:   route,
	}
	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ok && string(meta.Body) != bodyHash {
		writeError(w, r, http.StatusConflict, errCodeIdempotencyReuse, "idempotency key reuse with different payload", nil)
		return
	}
	if !ok {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   time.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		writeServiceError(w, r, err)
		return
	} else if ok && rec.StatusCode >= 200 && rec.StatusCode < 300 && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set(IdempotentReplayHeader, "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	status, payload, err := run()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	// Store successful response for replay.
	_ = s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   time.Now().UTC(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}
