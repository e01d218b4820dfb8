package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	memaccountrepo "github.com/actilink/actilink-api/internal/adapters/memory/accountrepo"
	memactivityrepo "github.com/actilink/actilink-api/internal/adapters/memory/activityrepo"
	memclock "github.com/actilink/actilink-api/internal/adapters/memory/clock"
	memidempotency "github.com/actilink/actilink-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/actilink/actilink-api/internal/adapters/memory/profilerepo"
	"github.com/actilink/actilink-api/internal/app/accounts"
	"github.com/actilink/actilink-api/internal/app/activities"
	"github.com/actilink/actilink-api/internal/app/profiles"
	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/platform/auth/tokens"
	"github.com/actilink/actilink-api/internal/platform/config"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Unix(1700000000, 0).UTC()

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		Secret: "test-secret-0123456789",
		Issuer: "test-iss",
		TTL:    10 * time.Minute,
	}
}

type testAPI struct {
	handler http.Handler
	tokens  *tokens.Manager
	server  *Server
}

// newTestAPI wires the full stack on memory adapters. Requests authenticate
// with X-Debug-Subject unless opts supplies another middleware.
func newTestAPI(t *testing.T, opts RouterOptions) *testAPI {
	t.Helper()

	clk := memclock.NewManualClock(testNow)
	log := zerolog.Nop()
	tm := tokens.NewWithClock(testTokenConfig(), fixedClock{t: testNow})

	activitySvc := activities.NewService(memactivityrepo.NewRepo(), nil, clk, log)
	n := 0
	activitySvc.SetNewActivityIDForTest(func() domain.ActivityID {
		n++
		return domain.ActivityID(fmt.Sprintf("act-%d", n))
	})
	profileSvc := profiles.NewService(memprofilerepo.NewRepo(), clk)
	accountSvc := accounts.NewService(memaccountrepo.NewRepo(), profileSvc, accounts.NewBcryptHasher(bcrypt.MinCost), tm, clk, log)

	s := NewServer(activitySvc, profileSvc, accountSvc, memidempotency.NewStore())
	if opts.AuthMiddleware == nil {
		opts.AuthMiddleware = NewDevAuthMiddleware("")
	}
	if opts.Logger == nil {
		opts.Logger = &log
	}
	return &testAPI{handler: NewRouterWithOptions(s, opts), tokens: tm, server: s}
}

func (a *testAPI) do(t *testing.T, method, path, subject string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	return out
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", rec.Code, wantStatus, rec.Body.String())
	}
	er := decodeBody[ErrorResponse](t, rec)
	if er.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q", er.Error.Code, wantCode)
	}
}
