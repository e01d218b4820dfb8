// Package client is a Go client for the ActiLink HTTP API. It implements
// activitylist.Directory so the list state machine can run against a remote
// directory, and keeps the signed-in session in an observable holder.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/actilink/actilink-api/internal/adapters/httpapi"
	"github.com/actilink/actilink-api/internal/app/activitylist"
	"github.com/actilink/actilink-api/internal/app/state"
	"github.com/actilink/actilink-api/internal/domain"
)

var (
	ErrTimeout     = errors.New("actilink: request timed out")
	ErrUnavailable = errors.New("actilink: service unavailable")
	// ErrSubjectMismatch is returned when a membership change names a user
	// other than the signed-in one.
	ErrSubjectMismatch = errors.New("actilink: user does not match the signed-in session")
)

// APIError is a non-2xx answer carrying the API error body.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Details   map[string]any
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("actilink: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

type Config struct {
	BaseURL string
	// ReadTimeout applies to GET requests, WriteTimeout to everything else.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// DebugSubject authenticates through X-Debug-Subject when no session
	// token is held. Only dev-mode servers accept it.
	DebugSubject string
}

func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Session is the signed-in state. The zero value means signed out.
type Session struct {
	UserID    domain.UserID
	Token     string
	ExpiresAt time.Time
}

func (s Session) SignedIn() bool { return s.UserID != "" }

// AuthResult mirrors the outcome of register and login.
type AuthResult struct {
	Success bool
	Message string
	Code    string
	UserID  domain.UserID
}

type Client struct {
	cfg     Config
	hc      *http.Client
	log     zerolog.Logger
	session *state.Value[Session]
}

var _ activitylist.Directory = (*Client)(nil)

// New builds a client. A nil hc uses a fresh http.Client; timeouts are applied per request.
func New(cfg Config, hc *http.Client, log zerolog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:     cfg,
		hc:      hc,
		log:     log.With().Str("component", "client").Logger(),
		session: state.NewValue(Session{}),
	}
}

func (c *Client) Session() Session { return c.session.Get() }

// CurrentUserID is the signed-in user, or "" when signed out.
func (c *Client) CurrentUserID() domain.UserID { return c.session.Get().UserID }

// SubscribeSession registers fn for every sign-in and sign-out.
func (c *Client) SubscribeSession(fn func(Session)) (unsubscribe func()) {
	return c.session.Subscribe(fn)
}

// RestoreSession installs a previously issued session, e.g. one read from disk.
func (c *Client) RestoreSession(s Session) { c.session.Set(s) }

func (c *Client) Register(ctx context.Context, in httpapi.RegisterRequest) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", in)
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", httpapi.LoginRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (AuthResult, error) {
	var out httpapi.AuthResponse
	status, raw, err := c.send(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return AuthResult{}, err
	}
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusUnauthorized, http.StatusConflict:
		if err := json.Unmarshal(raw, &out); err != nil || out.Message == "" {
			return AuthResult{}, decodeAPIError(status, raw)
		}
	default:
		return AuthResult{}, decodeAPIError(status, raw)
	}

	res := AuthResult{Success: out.Success, Message: out.Message, Code: out.Code, UserID: domain.UserID(out.UserId)}
	if out.Success {
		s := Session{UserID: res.UserID, Token: out.Token}
		if out.ExpiresAt != nil {
			s.ExpiresAt = *out.ExpiresAt
		}
		c.session.Set(s)
	}
	return res, nil
}

// Logout tells the server and clears the local session. The session is
// cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	if !c.session.Get().SignedIn() {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/logout", "", nil, nil)
	c.session.Set(Session{})
	if err != nil {
		c.log.Warn().Err(err).Msg("logout")
	}
	return err
}

// Me returns the caller's id and profile. The profile is nil when none exists.
func (c *Client) Me(ctx context.Context) (domain.UserID, *domain.UserProfile, error) {
	var out httpapi.MeResponse
	if err := c.do(ctx, http.MethodGet, "/me", "", nil, &out); err != nil {
		return "", nil, err
	}
	if p, err := out.Profile.Get(); err == nil {
		dp := profileToDomain(p)
		return domain.UserID(out.UserId), &dp, nil
	}
	return domain.UserID(out.UserId), nil, nil
}

func (c *Client) GetProfile(ctx context.Context, userID domain.UserID) (domain.UserProfile, error) {
	var out httpapi.ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(string(userID))+"/profile", "", nil, &out); err != nil {
		return domain.UserProfile{}, err
	}
	return profileToDomain(out.Profile), nil
}

func (c *Client) UpdateMyProfile(ctx context.Context, patch httpapi.UpdateProfileRequest) (domain.UserProfile, error) {
	var out httpapi.ProfileResponse
	if err := c.do(ctx, http.MethodPatch, "/me/profile", "", patch, &out); err != nil {
		return domain.UserProfile{}, err
	}
	return profileToDomain(out.Profile), nil
}

func (c *Client) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	return c.SearchActivities(ctx, "")
}

// SearchActivities lists activities matching q server-side.
func (c *Client) SearchActivities(ctx context.Context, q string) ([]domain.Activity, error) {
	path := "/activities"
	if q != "" {
		path += "?" + url.Values{"q": {q}}.Encode()
	}
	var out httpapi.ActivityListResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return activitiesToDomain(out.Activities), nil
}

// ListJoinedActivities returns the activities the signed-in user participates in.
func (c *Client) ListJoinedActivities(ctx context.Context) ([]domain.Activity, error) {
	var out httpapi.ActivityListResponse
	if err := c.do(ctx, http.MethodGet, "/me/activities", "", nil, &out); err != nil {
		return nil, err
	}
	return activitiesToDomain(out.Activities), nil
}

func (c *Client) GetActivity(ctx context.Context, id domain.ActivityID) (domain.Activity, error) {
	var out httpapi.ActivityResponse
	if err := c.do(ctx, http.MethodGet, activityPath(id), "", nil, &out); err != nil {
		return domain.Activity{}, err
	}
	return activityToDomain(out.Activity), nil
}

// PutActivity creates or replaces a under its own id.
func (c *Client) PutActivity(ctx context.Context, a domain.Activity) error {
	body, err := activityRequest(a)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, activityPath(a.ID), "", body, nil)
}

func (c *Client) DeleteActivity(ctx context.Context, id domain.ActivityID) error {
	return c.do(ctx, http.MethodDelete, activityPath(id), "", nil, nil)
}

func (c *Client) JoinActivity(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	return c.do(ctx, http.MethodPost, activityPath(id)+"/join", user, nil, nil)
}

func (c *Client) LeaveActivity(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	return c.do(ctx, http.MethodPost, activityPath(id)+"/leave", user, nil, nil)
}

// MarkersQuery narrows /markers. Nil fields use the server defaults.
type MarkersQuery struct {
	Viewer   *domain.GeoPoint
	RadiusKm *float64
	Search   string
}

func (c *Client) Markers(ctx context.Context, q MarkersQuery) ([]domain.Marker, error) {
	v := url.Values{}
	if q.Viewer != nil {
		v.Set("lat", strconv.FormatFloat(q.Viewer.Latitude, 'f', -1, 64))
		v.Set("lon", strconv.FormatFloat(q.Viewer.Longitude, 'f', -1, 64))
	}
	if q.RadiusKm != nil {
		v.Set("radiusKm", strconv.FormatFloat(*q.RadiusKm, 'f', -1, 64))
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	path := "/markers"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out httpapi.MarkersResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	ms := make([]domain.Marker, 0, len(out.Markers))
	for _, m := range out.Markers {
		ms = append(ms, domain.Marker{
			ActivityID: domain.ActivityID(m.ActivityId),
			Position:   domain.GeoPoint{Latitude: m.Latitude, Longitude: m.Longitude},
			Title:      m.Title,
			Snippet:    m.Snippet,
		})
	}
	return ms, nil
}

// do sends the request and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, actAs domain.UserID, body any, out any) error {
	status, raw, err := c.send(ctx, method, path, actAs, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return decodeAPIError(status, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs one round trip. actAs, when set, is the user the call is made
// for: it must match the session, or becomes the debug subject without one.
func (c *Client) send(ctx context.Context, method, path string, actAs domain.UserID, body any) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	timeout := c.cfg.ReadTimeout
	if method != http.MethodGet {
		timeout = c.cfg.WriteTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rdr)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-Id", reqID)
	if err := c.authorize(req, actAs); err != nil {
		return 0, nil, err
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Str("request_id", reqID).Msg("request failed")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return 0, nil, ErrTimeout
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", reqID).
		Msg("request completed")
	return resp.StatusCode, raw, nil
}

func (c *Client) authorize(req *http.Request, actAs domain.UserID) error {
	s := c.session.Get()
	if s.Token != "" {
		if actAs != "" && actAs != s.UserID {
			return ErrSubjectMismatch
		}
		req.Header.Set("Authorization", "Bearer "+s.Token)
		return nil
	}
	sub := c.cfg.DebugSubject
	if actAs != "" {
		sub = string(actAs)
	}
	if sub != "" {
		req.Header.Set("X-Debug-Subject", sub)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	ae := &APIError{Status: status, Code: http.StatusText(status), Message: strings.TrimSpace(string(raw))}
	var er httpapi.ErrorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error.Code != "" {
		ae.Code = er.Error.Code
		ae.Message = er.Error.Message
		if d, err := er.Error.Details.Get(); err == nil {
			ae.Details = d
		}
		if rid, err := er.Error.RequestId.Get(); err == nil {
			ae.RequestID = rid
		}
	}
	return ae
}

func activityPath(id domain.ActivityID) string {
	return "/activities/" + url.PathEscape(string(id))
}
