package httpapi

import (
	"net/http"
	"testing"
)

func yogaBody() map[string]any {
	return map[string]any{
		"title":     "Yoga Class",
		"category":  "Wellness",
		"date":      "2025-06-01",
		"startTime": "09:00",
		"endTime":   "10:00",
		"location":  "Champ de Mars",
		"latitude":  48.8556,
		"longitude": 2.2986,
	}
}

func TestActivities_CreateThenGet(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	rec := api.do(t, http.MethodPost, "/activities", "u1", yogaBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
	}
	created := decodeBody[ActivityResponse](t, rec).Activity
	if created.Id != "act-1" || created.CreatorId != "u1" || created.Date != "2025-06-01" {
		t.Fatalf("created=%+v", created)
	}
	if created.Participants == nil || len(created.Participants) != 0 {
		t.Fatalf("participants=%v, want empty list", created.Participants)
	}

	rec = api.do(t, http.MethodGet, "/activities/act-1", "u2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[ActivityResponse](t, rec).Activity; got.Title != "Yoga Class" {
		t.Fatalf("title=%q", got.Title)
	}
}

func TestActivities_Create_InvalidDate_422(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	body := yogaBody()
	body["date"] = "01/06/2025"
	rec := api.do(t, http.MethodPost, "/activities", "u1", body)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestActivities_Create_EndBeforeStart_422(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	body := yogaBody()
	body["endTime"] = "08:00"
	rec := api.do(t, http.MethodPost, "/activities", "u1", body)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestActivities_Get_Missing_404(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	rec := api.do(t, http.MethodGet, "/activities/nope", "u1", nil)
	requireErrorCode(t, rec, http.StatusNotFound, "ACTIVITY_NOT_FOUND")
}

func TestActivities_ListFiltersByQuery(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	api.do(t, http.MethodPost, "/activities", "u1", yogaBody())
	run := yogaBody()
	run["title"] = "Running Club"
	run["category"] = "Sport"
	run["location"] = "Bois de Boulogne"
	api.do(t, http.MethodPost, "/activities", "u1", run)

	rec := api.do(t, http.MethodGet, "/activities", "u1", nil)
	if all := decodeBody[ActivityListResponse](t, rec).Activities; len(all) != 2 {
		t.Fatalf("len=%d", len(all))
	}

	rec = api.do(t, http.MethodGet, "/activities?q=yoga", "u1", nil)
	got := decodeBody[ActivityListResponse](t, rec).Activities
	if len(got) != 1 || got[0].Title != "Yoga Class" {
		t.Fatalf("filtered=%+v", got)
	}
}

func TestActivities_PutCreatesThenReplaces(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	body := yogaBody()
	body["id"] = "a1"
	rec := api.do(t, http.MethodPut, "/activities/a1", "u1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("put create status=%d body=%s", rec.Code, rec.Body.String())
	}

	body["title"] = "Sunset Yoga"
	body["creatorId"] = "someone-else"
	rec = api.do(t, http.MethodPut, "/activities/a1", "u2", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("put replace status=%d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody[ActivityResponse](t, rec).Activity
	if got.Title != "Sunset Yoga" || got.CreatorId != "u1" {
		t.Fatalf("replaced=%+v", got)
	}
}

func TestActivities_Put_IdMismatch_422(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	body := yogaBody()
	body["id"] = "other"
	rec := api.do(t, http.MethodPut, "/activities/a1", "u1", body)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestActivities_JoinTwiceThenLeave(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	body := yogaBody()
	api.do(t, http.MethodPut, "/activities/a1", "u1", body)

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodPost, "/activities/a1/join", "u1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("join status=%d body=%s", rec.Code, rec.Body.String())
		}
		got := decodeBody[ActivityResponse](t, rec).Activity
		if len(got.Participants) != 1 || got.Participants[0] != "u1" {
			t.Fatalf("participants after join #%d = %v", i+1, got.Participants)
		}
	}

	rec := api.do(t, http.MethodGet, "/me/activities", "u1", nil)
	if joined := decodeBody[ActivityListResponse](t, rec).Activities; len(joined) != 1 || joined[0].Id != "a1" {
		t.Fatalf("joined=%+v", joined)
	}

	rec = api.do(t, http.MethodPost, "/activities/a1/leave", "u1", nil)
	if got := decodeBody[ActivityResponse](t, rec).Activity; len(got.Participants) != 0 {
		t.Fatalf("participants after leave = %v", got.Participants)
	}
	rec = api.do(t, http.MethodPost, "/activities/a1/leave", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second leave status=%d", rec.Code)
	}
}

func TestActivities_Join_Missing_404(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	rec := api.do(t, http.MethodPost, "/activities/missing/join", "u1", nil)
	requireErrorCode(t, rec, http.StatusNotFound, "ACTIVITY_NOT_FOUND")
}

func TestActivities_Delete(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	api.do(t, http.MethodPut, "/activities/a1", "u1", yogaBody())

	rec := api.do(t, http.MethodDelete, "/activities/a1", "u1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = api.do(t, http.MethodDelete, "/activities/a1", "u1", nil)
	requireErrorCode(t, rec, http.StatusNotFound, "ACTIVITY_NOT_FOUND")
}

func TestActivities_Idempotency_ReplayAndReuse(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	rec1 := api.do(t, http.MethodPost, "/activities", "u1", yogaBody(), IdempotencyKeyHeader, "k-1")
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first status=%d body=%s", rec1.Code, rec1.Body.String())
	}
	rec2 := api.do(t, http.MethodPost, "/activities", "u1", yogaBody(), IdempotencyKeyHeader, "k-1")
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay status=%d body=%s", rec2.Code, rec2.Body.String())
	}
	if rec2.Header().Get(IdempotentReplayHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	a1 := decodeBody[ActivityResponse](t, rec1).Activity
	a2 := decodeBody[ActivityResponse](t, rec2).Activity
	if a1.Id != a2.Id {
		t.Fatalf("replay created a second activity: %q vs %q", a1.Id, a2.Id)
	}

	rec := api.do(t, http.MethodGet, "/activities", "u1", nil)
	if all := decodeBody[ActivityListResponse](t, rec).Activities; len(all) != 1 {
		t.Fatalf("len=%d, want 1", len(all))
	}

	changed := yogaBody()
	changed["title"] = "Other"
	rec3 := api.do(t, http.MethodPost, "/activities", "u1", changed, IdempotencyKeyHeader, "k-1")
	requireErrorCode(t, rec3, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	// Keys are scoped per subject.
	rec4 := api.do(t, http.MethodPost, "/activities", "u2", changed, IdempotencyKeyHeader, "k-1")
	if rec4.Code != http.StatusCreated {
		t.Fatalf("other subject status=%d body=%s", rec4.Code, rec4.Body.String())
	}
}

func TestMarkers_DefaultViewerAndRadius(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	api.do(t, http.MethodPut, "/activities/near", "u1", yogaBody())
	far := yogaBody()
	far["title"] = "Yoga Lyon"
	far["latitude"] = 45.7640
	far["longitude"] = 4.8357
	api.do(t, http.MethodPut, "/activities/far", "u1", far)

	rec := api.do(t, http.MethodGet, "/markers", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	ms := decodeBody[MarkersResponse](t, rec).Markers
	if len(ms) != 1 || ms[0].ActivityId != "near" {
		t.Fatalf("markers=%+v", ms)
	}
	if ms[0].Snippet != "Date: 2025-06-01 • Time: 09h00-10h00" {
		t.Fatalf("snippet=%q", ms[0].Snippet)
	}

	rec = api.do(t, http.MethodGet, "/markers?lat=45.76&lon=4.83&radiusKm=5", "u1", nil)
	ms = decodeBody[MarkersResponse](t, rec).Markers
	if len(ms) != 1 || ms[0].ActivityId != "far" {
		t.Fatalf("markers near Lyon=%+v", ms)
	}
}

func TestMarkers_InvalidQuery_422(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, RouterOptions{})
	for _, q := range []string{"?lat=abc&lon=1", "?lat=1", "?radiusKm=-1", "?lat=91&lon=0", "?radiusKm=NaN", "?radiusKm=Inf", "?lat=NaN&lon=0"} {
		rec := api.do(t, http.MethodGet, "/markers"+q, "u1", nil)
		requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	}
}
