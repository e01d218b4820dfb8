package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/actilink/actilink-api/internal/app/activities"
	"github.com/actilink/actilink-api/internal/domain"
)

func (s *Server) ListActivities(w http.ResponseWriter, r *http.Request) {
	if _, ok := SubjectFromContext(r.Context()); !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	as, err := s.Activities.ListActivities(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityListFromDomain(as))
}

func (s *Server) ListMyActivities(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	as, err := s.Activities.ListJoinedActivities(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityListFromDomain(as))
}

func (s *Server) GetActivity(w http.ResponseWriter, r *http.Request) {
	if _, ok := SubjectFromContext(r.Context()); !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	a, err := s.Activities.GetActivity(r.Context(), activityIDParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Activity: activityFromDomain(a)})
}

func (s *Server) CreateActivity(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	var body ActivityRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	bodyHash, err := hashRequest("", body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.serveIdempotent(w, r, sub, "POST /activities", bodyHash, func() (int, any, error) {
		a, err := s.Activities.CreateActivity(r.Context(), sub, activityInputFromRequest(body))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, ActivityResponse{Activity: activityFromDomain(a)}, nil
	})
}

// PutActivity creates or fully replaces the activity at the path id. It
// answers 201 when the record is new and 200 otherwise.
func (s *Server) PutActivity(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	id := activityIDParam(r)
	var body ActivityRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Id != "" && body.Id != string(id) {
		writeValidation(w, r, "invalid activity", map[string]any{"id": "must match the path"})
		return
	}
	bodyHash, err := hashRequest(string(id), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.serveIdempotent(w, r, sub, "PUT /activities/{activityId}", bodyHash, func() (int, any, error) {
		a, created, err := s.Activities.SaveActivity(r.Context(), sub, activityFromRequest(id, body))
		if err != nil {
			return 0, nil, err
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		return status, ActivityResponse{Activity: activityFromDomain(a)}, nil
	})
}

func (s *Server) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	if err := s.Activities.DeleteActivity(r.Context(), sub, activityIDParam(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) JoinActivity(w http.ResponseWriter, r *http.Request) {
	s.membership(w, r, true)
}

func (s *Server) LeaveActivity(w http.ResponseWriter, r *http.Request) {
	s.membership(w, r, false)
}

func (s *Server) membership(w http.ResponseWriter, r *http.Request, join bool) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	id := activityIDParam(r)
	route := "POST /activities/{activityId}/leave"
	if join {
		route = "POST /activities/{activityId}/join"
	}
	bodyHash, err := hashRequest(string(id), nil)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.serveIdempotent(w, r, sub, route, bodyHash, func() (int, any, error) {
		var (
			a   domain.Activity
			err error
		)
		if join {
			a, err = s.Activities.JoinActivity(r.Context(), sub, id)
		} else {
			a, err = s.Activities.LeaveActivity(r.Context(), sub, id)
		}
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, ActivityResponse{Activity: activityFromDomain(a)}, nil
	})
}

// ListMarkers projects activities around ?lat=&lon= (both or neither) within
// ?radiusKm=, optionally narrowed by ?q= on the title.
func (s *Server) ListMarkers(w http.ResponseWriter, r *http.Request) {
	if _, ok := SubjectFromContext(r.Context()); !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	q := r.URL.Query()
	details := map[string]any{}
	lat, hasLat := parseFloatParam(q.Get("lat"), "lat", details)
	lon, hasLon := parseFloatParam(q.Get("lon"), "lon", details)
	radius, hasRadius := parseFloatParam(q.Get("radiusKm"), "radiusKm", details)
	if hasLat != hasLon {
		details["lat"] = "lat and lon must be given together"
	}
	if len(details) > 0 {
		writeValidation(w, r, "invalid marker query", details)
		return
	}

	mq := activities.MarkersQuery{Search: q.Get("q")}
	if hasLat && hasLon {
		mq.Viewer = &domain.GeoPoint{Latitude: lat, Longitude: lon}
	}
	if hasRadius {
		mq.RadiusKm = &radius
	}
	ms, err := s.Activities.Markers(r.Context(), mq)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]Marker, 0, len(ms))
	for _, m := range ms {
		out = append(out, markerFromDomain(m))
	}
	writeJSON(w, http.StatusOK, MarkersResponse{Markers: out})
}

func activityIDParam(r *http.Request) domain.ActivityID {
	return domain.ActivityID(strings.TrimSpace(chi.URLParam(r, "activityId")))
}

// parseFloatParam parses an optional finite query value. Parse failures are recorded in details.
func parseFloatParam(raw string, name string, details map[string]any) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		details[name] = "must be a finite number"
		return 0, false
	}
	return v, true
}
