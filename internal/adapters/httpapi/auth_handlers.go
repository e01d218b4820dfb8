package httpapi

import (
	"net/http"

	"github.com/actilink/actilink-api/internal/app/accounts"
)

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := s.Accounts.Register(r.Context(), accounts.RegisterInput{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
		Age:      body.Age,
		Bio:      body.Bio,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !res.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, authResponseFromResult(res))
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := s.Accounts.Login(r.Context(), accounts.LoginInput{Email: body.Email, Password: body.Password})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, authResponseFromResult(res))
}

// Logout acknowledges the sign-out. Tokens are stateless, so the client
// simply discards its token.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := SubjectFromContext(r.Context()); !ok {
		writeUnauthenticated(w, r, "missing subject")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
