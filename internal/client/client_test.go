package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/actilink/actilink-api/internal/adapters/httpapi"
	memaccountrepo "github.com/actilink/actilink-api/internal/adapters/memory/accountrepo"
	memactivityrepo "github.com/actilink/actilink-api/internal/adapters/memory/activityrepo"
	memclock "github.com/actilink/actilink-api/internal/adapters/memory/clock"
	memidempotency "github.com/actilink/actilink-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/actilink/actilink-api/internal/adapters/memory/profilerepo"
	"github.com/actilink/actilink-api/internal/app/accounts"
	"github.com/actilink/actilink-api/internal/app/activities"
	"github.com/actilink/actilink-api/internal/app/activitylist"
	"github.com/actilink/actilink-api/internal/app/profiles"
	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/platform/auth/tokens"
	"github.com/actilink/actilink-api/internal/platform/config"
)

// newServer starts the API on memory adapters. tokenAuth selects bearer
// tokens; otherwise the dev X-Debug-Subject middleware is used.
func newServer(t *testing.T, tokenAuth bool) *httptest.Server {
	t.Helper()

	clk := memclock.NewManualClock(time.Now().UTC())
	log := zerolog.Nop()
	tm := tokens.New(config.TokenConfig{Secret: "client-test-secret-0123", Issuer: "client-test", TTL: time.Hour})

	activitySvc := activities.NewService(memactivityrepo.NewRepo(), nil, clk, log)
	profileSvc := profiles.NewService(memprofilerepo.NewRepo(), clk)
	accountSvc := accounts.NewService(memaccountrepo.NewRepo(), profileSvc, accounts.NewBcryptHasher(bcrypt.MinCost), tm, clk, log)
	s := httpapi.NewServer(activitySvc, profileSvc, accountSvc, memidempotency.NewStore())

	authMW := httpapi.NewDevAuthMiddleware("")
	if tokenAuth {
		authMW = httpapi.NewAuthMiddleware(tm)
	}
	srv := httptest.NewServer(httpapi.NewRouterWithOptions(s, httpapi.RouterOptions{AuthMiddleware: authMW, Logger: &log}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server, debugSubject string) *Client {
	cfg := DefaultConfig(srv.URL + "/")
	cfg.DebugSubject = debugSubject
	return New(cfg, srv.Client(), zerolog.Nop())
}

func TestClient_SessionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := newServer(t, true)
	c := newClient(srv, "")

	var seen []Session
	unsubscribe := c.SubscribeSession(func(s Session) { seen = append(seen, s) })
	defer unsubscribe()

	res, err := c.Register(ctx, httpapi.RegisterRequest{Email: "ana@example.com", Password: "secret1", Name: "Ana", Age: 28})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, res.UserID, c.CurrentUserID())

	uid, p, err := c.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, res.UserID, uid)
	assert.Equal(t, "Ana", p.Name)

	require.NoError(t, c.Logout(ctx))
	assert.False(t, c.Session().SignedIn())

	bad, err := c.Login(ctx, "ana@example.com", "wrong-password")
	require.NoError(t, err)
	assert.False(t, bad.Success)
	assert.Equal(t, accounts.CodeInvalidCredentials, bad.Code)
	assert.NotEmpty(t, bad.Message)

	good, err := c.Login(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, good.Success)

	require.Len(t, seen, 3)
	assert.True(t, seen[0].SignedIn())
	assert.False(t, seen[1].SignedIn())
	assert.Equal(t, res.UserID, seen[2].UserID)

	taken, err := c.Register(ctx, httpapi.RegisterRequest{Email: "ana@example.com", Password: "secret1", Name: "Ana"})
	require.NoError(t, err)
	assert.False(t, taken.Success)
	assert.Equal(t, accounts.CodeEmailTaken, taken.Code)
}

func TestClient_DrivesActivityList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := newServer(t, false)
	c := newClient(srv, "u1")
	list := activitylist.New(c, zerolog.Nop())

	require.NoError(t, list.Load(ctx))
	assert.Equal(t, activitylist.Loaded, list.State())
	assert.Empty(t, list.Activities())

	yoga, err := list.Add(ctx, activitylist.NewFields{
		Title: "Yoga Class", Date: "2025-06-01", StartTime: "09:00", EndTime: "10:00",
		Latitude: 48.8556, Longitude: 2.2986, UserID: "u1",
	})
	require.NoError(t, err)
	_, err = list.Add(ctx, activitylist.NewFields{Title: "Running Club", Latitude: 48.86, Longitude: 2.29, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, list.Activities(), 2)

	require.NoError(t, list.Join(ctx, yoga.ID, "u1"))
	require.NoError(t, list.Join(ctx, yoga.ID, "u1"))
	got, err := c.GetActivity(ctx, yoga.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"u1"}, got.Participants)

	list.SetFilter("yoga")
	require.Len(t, list.Filtered(), 1)
	assert.Equal(t, "Yoga Class", list.Filtered()[0].Title)

	joined, err := c.ListJoinedActivities(ctx)
	require.NoError(t, err)
	require.Len(t, joined, 1)

	ms, err := c.Markers(ctx, MarkersQuery{Search: "yoga"})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, yoga.ID, ms[0].ActivityID)

	require.NoError(t, list.Delete(ctx, yoga.ID))
	assert.Len(t, list.Activities(), 1)

	err = list.Delete(ctx, yoga.ID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Len(t, list.Activities(), 1)
}

func TestClient_JoinForOtherUserWithTokenSession(t *testing.T) {
	t.Parallel()

	c := New(DefaultConfig("http://127.0.0.1:0"), nil, zerolog.Nop())
	c.RestoreSession(Session{UserID: "u1", Token: "t"})
	err := c.JoinActivity(context.Background(), "a1", "u2")
	assert.ErrorIs(t, err, ErrSubjectMismatch)
}

func TestClient_APIErrorCarriesBody(t *testing.T) {
	t.Parallel()

	srv := newServer(t, false)
	c := newClient(srv, "")

	_, err := c.ListActivities(context.Background())
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, "UNAUTHORIZED", ae.Code)
	assert.NotEmpty(t, ae.RequestID)
}

func TestClient_PutActivityRejectsBadDate(t *testing.T) {
	t.Parallel()

	c := New(DefaultConfig("http://127.0.0.1:0"), nil, zerolog.Nop())
	err := c.PutActivity(context.Background(), domain.Activity{ID: "a1", Title: "x", Date: "June 1st"})
	require.Error(t, err)
}
