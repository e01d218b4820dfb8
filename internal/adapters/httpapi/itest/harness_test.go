package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/actilink/actilink-api/internal/adapters/httpapi"
	memaccountrepo "github.com/actilink/actilink-api/internal/adapters/memory/accountrepo"
	memactivityrepo "github.com/actilink/actilink-api/internal/adapters/memory/activityrepo"
	memclock "github.com/actilink/actilink-api/internal/adapters/memory/clock"
	memidempotency "github.com/actilink/actilink-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/actilink/actilink-api/internal/adapters/memory/profilerepo"
	pgaccountrepo "github.com/actilink/actilink-api/internal/adapters/postgres/accountrepo"
	pgactivityrepo "github.com/actilink/actilink-api/internal/adapters/postgres/activityrepo"
	pgidempotency "github.com/actilink/actilink-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/actilink/actilink-api/internal/adapters/postgres/testutil"
	pgprofilerepo "github.com/actilink/actilink-api/internal/adapters/postgres/profilerepo"
	"github.com/actilink/actilink-api/internal/app/accounts"
	"github.com/actilink/actilink-api/internal/app/activities"
	"github.com/actilink/actilink-api/internal/app/profiles"
	"github.com/actilink/actilink-api/internal/platform/auth/tokens"
	"github.com/actilink/actilink-api/internal/platform/config"
	accountrepoport "github.com/actilink/actilink-api/internal/ports/out/accountrepo"
	activityrepoport "github.com/actilink/actilink-api/internal/ports/out/activityrepo"
	idempotencyport "github.com/actilink/actilink-api/internal/ports/out/idempotency"
	profilerepoport "github.com/actilink/actilink-api/internal/ports/out/profilerepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	log := zerolog.Nop()

	var (
		activityRepo activityrepoport.Repository
		profileRepo  profilerepoport.Repository
		accountRepo  accountrepoport.Repository
		idemStore    idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t, "activities", "profiles", "accounts", "idempotency_keys")
		activityRepo = pgactivityrepo.NewRepo(pool)
		profileRepo = pgprofilerepo.NewRepo(pool)
		accountRepo = pgaccountrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, clk, time.Hour)
	case backendMemory:
		activityRepo = memactivityrepo.NewRepo()
		profileRepo = memprofilerepo.NewRepo()
		accountRepo = memaccountrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	tm := tokens.New(config.TokenConfig{Secret: "itest-secret-0123456789", Issuer: "itest-issuer", TTL: time.Hour})
	activitySvc := activities.NewService(activityRepo, nil, clk, log)
	profileSvc := profiles.NewService(profileRepo, clk)
	accountSvc := accounts.NewService(accountRepo, profileSvc, accounts.NewBcryptHasher(bcrypt.MinCost), tm, clk, log)
	api := httpapi.NewServer(activitySvc, profileSvc, accountSvc, idemStore)

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// We pass empty default subject to ensure requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	authMW := httpapi.NewDevAuthMiddleware("")
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: authMW, Logger: &log})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
