package contracttest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/actilink/actilink-api/internal/domain"
	accountrepoport "github.com/actilink/actilink-api/internal/ports/out/accountrepo"
	activityrepoport "github.com/actilink/actilink-api/internal/ports/out/activityrepo"
	idempotencyport "github.com/actilink/actilink-api/internal/ports/out/idempotency"
	profilerepoport "github.com/actilink/actilink-api/internal/ports/out/profilerepo"
)

type CleanupFunc = func()

type ActivityRepoFactory func(t *testing.T) (activityrepoport.Repository, CleanupFunc)
type ProfileRepoFactory func(t *testing.T) (profilerepoport.Repository, CleanupFunc)
type AccountRepoFactory func(t *testing.T) (accountrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.UserID("user-1"),
		Method:   "PUT",
		Route:    "/activities/{activityId}",
		BodyHash: "b1",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get on empty store ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"id":"a1"}`),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"id":"a1"}` || got.ContentType != "application/json" || got.StatusCode != 200 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// A different body hash is a different fingerprint.
	other := fp
	other.BodyHash = "b2"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other body ok=%v err=%v", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"id":"a2"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"id":"a2"}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}
}

func newActivity(title string, createdAt time.Time) activityrepoport.Activity {
	return activityrepoport.Activity{
		Activity: domain.Activity{
			ID:           domain.ActivityID(uuid.NewString()),
			Title:        title,
			Category:     "Sport",
			Date:         "2025-05-10",
			StartTime:    "08:30",
			EndTime:      "10:00",
			Location:     "Paris",
			CreatorID:    domain.UserID("creator-" + title),
			Participants: []domain.UserID{},
			Latitude:     48.8584,
			Longitude:    2.2945,
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func RunActivityRepo(t *testing.T, newRepo ActivityRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	t0 := time.Unix(1000, 0).UTC()
	yoga := newActivity("Yoga", t0)
	run := newActivity("Run", t0.Add(time.Minute))

	// Insert out of creation order; List still follows CreatedAt.
	if err := repo.Set(ctx, run); err != nil {
		t.Fatalf("Set run: %v", err)
	}
	if err := repo.Set(ctx, yoga); err != nil {
		t.Fatalf("Set yoga: %v", err)
	}
	as, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(as) != 2 || as[0].ID != yoga.ID || as[1].ID != run.ID {
		t.Fatalf("unexpected order: %#v", as)
	}

	got, err := repo.GetByID(ctx, yoga.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Yoga" || got.Date != "2025-05-10" || got.StartTime != "08:30" || got.Latitude != 48.8584 {
		t.Fatalf("unexpected activity: %#v", got)
	}
	if got.Participants == nil || len(got.Participants) != 0 {
		t.Fatalf("expected empty non-nil participants, got %#v", got.Participants)
	}

	if _, err := repo.GetByID(ctx, domain.ActivityID(uuid.NewString())); !errors.Is(err, activityrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want ErrNotFound", err)
	}

	// Set replaces the whole record and keeps CreatedAt.
	replaced := yoga
	replaced.Title = "Morning Yoga"
	replaced.Participants = []domain.UserID{"u1", "u1", "u2"}
	replaced.CreatedAt = t0.Add(time.Hour)
	replaced.UpdatedAt = t0.Add(time.Hour)
	if err := repo.Set(ctx, replaced); err != nil {
		t.Fatalf("Set replace: %v", err)
	}
	got, err = repo.GetByID(ctx, yoga.ID)
	if err != nil {
		t.Fatalf("GetByID after replace: %v", err)
	}
	if got.Title != "Morning Yoga" || !got.CreatedAt.Equal(t0) {
		t.Fatalf("unexpected replaced activity: %#v", got)
	}
	if len(got.Participants) != 2 || got.Participants[0] != "u1" || got.Participants[1] != "u2" {
		t.Fatalf("expected deduped participants, got %#v", got.Participants)
	}

	// Join is idempotent and preserves join order.
	for i := 0; i < 2; i++ {
		if err := repo.Join(ctx, run.ID, "u7"); err != nil {
			t.Fatalf("Join #%d: %v", i, err)
		}
	}
	if err := repo.Join(ctx, run.ID, "u3"); err != nil {
		t.Fatalf("Join u3: %v", err)
	}
	got, err = repo.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID run: %v", err)
	}
	if len(got.Participants) != 2 || got.Participants[0] != "u7" || got.Participants[1] != "u3" {
		t.Fatalf("unexpected participants after join: %#v", got.Participants)
	}

	joined, err := repo.ListByParticipant(ctx, "u7")
	if err != nil {
		t.Fatalf("ListByParticipant: %v", err)
	}
	if len(joined) != 1 || joined[0].ID != run.ID {
		t.Fatalf("unexpected joined activities: %#v", joined)
	}

	// Leave is idempotent.
	for i := 0; i < 2; i++ {
		if err := repo.Leave(ctx, run.ID, "u7"); err != nil {
			t.Fatalf("Leave #%d: %v", i, err)
		}
	}
	got, err = repo.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID run: %v", err)
	}
	if len(got.Participants) != 1 || got.Participants[0] != "u3" {
		t.Fatalf("unexpected participants after leave: %#v", got.Participants)
	}

	missing := domain.ActivityID(uuid.NewString())
	if err := repo.Join(ctx, missing, "u1"); !errors.Is(err, activityrepoport.ErrNotFound) {
		t.Fatalf("Join missing err=%v, want ErrNotFound", err)
	}
	if err := repo.Leave(ctx, missing, "u1"); !errors.Is(err, activityrepoport.ErrNotFound) {
		t.Fatalf("Leave missing err=%v, want ErrNotFound", err)
	}

	// Concurrent joins of distinct users all land.
	var wg sync.WaitGroup
	users := []domain.UserID{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
	for _, u := range users {
		wg.Add(1)
		go func(u domain.UserID) {
			defer wg.Done()
			if err := repo.Join(ctx, yoga.ID, u); err != nil {
				t.Errorf("concurrent Join %s: %v", u, err)
			}
		}(u)
	}
	wg.Wait()
	got, err = repo.GetByID(ctx, yoga.ID)
	if err != nil {
		t.Fatalf("GetByID yoga: %v", err)
	}
	if len(got.Participants) != 2+len(users) {
		t.Fatalf("expected %d participants, got %#v", 2+len(users), got.Participants)
	}

	if err := repo.Delete(ctx, run.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, run.ID); !errors.Is(err, activityrepoport.ErrNotFound) {
		t.Fatalf("Delete twice err=%v, want ErrNotFound", err)
	}
	as, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List after delete: %v", err)
	}
	if len(as) != 1 || as[0].ID != yoga.ID {
		t.Fatalf("unexpected list after delete: %#v", as)
	}
}

func RunProfileRepo(t *testing.T, newRepo ProfileRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	uid := domain.UserID(uuid.NewString())
	p := domain.UserProfile{UserID: uid, Name: "Alice", Age: 30, Bio: "runner", CreatedAt: now, UpdatedAt: now}

	if _, err := repo.Get(ctx, uid); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("Get before create err=%v, want ErrNotFound", err)
	}
	if err := repo.Update(ctx, p); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("Update before create err=%v, want ErrNotFound", err)
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, p); !errors.Is(err, profilerepoport.ErrAlreadyExists) {
		t.Fatalf("Create twice err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.Get(ctx, uid)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Alice" || got.Age != 30 || got.Bio != "runner" {
		t.Fatalf("unexpected profile: %#v", got)
	}

	upd := got
	upd.Bio = ""
	upd.Age = 31
	upd.UpdatedAt = now.Add(time.Hour)
	if err := repo.Update(ctx, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = repo.Get(ctx, uid)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.Age != 31 || got.Bio != "" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected updated profile: %#v", got)
	}
}

func RunAccountRepo(t *testing.T, newRepo AccountRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	email := uuid.NewString() + "@Example.com"
	acc := accountrepoport.Account{
		UserID:       domain.UserID(uuid.NewString()),
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Unix(3000, 0).UTC(),
	}
	if _, err := repo.GetByEmail(ctx, email); !errors.Is(err, accountrepoport.ErrNotFound) {
		t.Fatalf("GetByEmail before create err=%v, want ErrNotFound", err)
	}
	if err := repo.Create(ctx, acc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Emails are case-insensitive.
	dup := acc
	dup.UserID = domain.UserID(uuid.NewString())
	dup.Email = "  " + strings.ToUpper(email) + " "
	if err := repo.Create(ctx, dup); !errors.Is(err, accountrepoport.ErrEmailTaken) {
		t.Fatalf("Create duplicate err=%v, want ErrEmailTaken", err)
	}

	got, err := repo.GetByEmail(ctx, strings.ToUpper(email))
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.UserID != acc.UserID || got.PasswordHash != "hash" {
		t.Fatalf("unexpected account: %#v", got)
	}
	if got.Email != strings.ToLower(email) {
		t.Fatalf("expected lower-cased email, got %q", got.Email)
	}
}
