package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/actilink/actilink-api/internal/app/profiles"
	"github.com/actilink/actilink-api/internal/domain"
)

// GetMe returns the caller's id and, when one exists, their profile.
func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	resp := MeResponse{UserId: string(sub)}
	p, err := s.Profiles.GetMyProfile(r.Context(), sub)
	switch {
	case err == nil:
		resp.Profile.Set(profileFromDomain(p))
	case isProfileNotFound(err):
		resp.Profile.SetNull()
	default:
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	p, err := s.Profiles.GetMyProfile(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: profileFromDomain(p)})
}

func (s *Server) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	var body UpdateProfileRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := s.Profiles.UpdateMyProfile(r.Context(), sub, updateProfileInputFromRequest(body))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: profileFromDomain(p)})
}

func (s *Server) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := SubjectFromContext(r.Context()); !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	userID := domain.UserID(chi.URLParam(r, "userId"))
	p, err := s.Profiles.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: profileFromDomain(p)})
}

func isProfileNotFound(err error) bool {
	var pe *profiles.Error
	return errors.As(err, &pe) && pe.Status == http.StatusNotFound
}
