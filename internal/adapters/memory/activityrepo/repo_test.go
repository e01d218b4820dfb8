package activityrepo

import (
	"context"
	"testing"
	"time"

	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/ports/out/activityrepo"
)

func TestRepo_ReadsAreIsolatedFromStoredState(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	in := activityrepo.Activity{
		Activity:  domain.Activity{ID: "a1", Title: "Yoga", Participants: []domain.UserID{"u1"}},
		CreatedAt: time.Unix(1, 0).UTC(),
	}
	if err := r.Set(ctx, in); err != nil {
		t.Fatalf("Set() err=%v", err)
	}
	in.Participants[0] = "mutated"

	got, err := r.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if got.Participants[0] != "u1" {
		t.Fatalf("stored participants changed through caller slice: %#v", got.Participants)
	}
	got.Participants[0] = "mutated"

	again, _ := r.GetByID(ctx, "a1")
	if again.Participants[0] != "u1" {
		t.Fatalf("stored participants changed through returned slice: %#v", again.Participants)
	}
}

func TestRepo_SameCreatedAtKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	ts := time.Unix(5, 0).UTC()
	for _, id := range []domain.ActivityID{"z", "a", "m"} {
		if err := r.Set(ctx, activityrepo.Activity{Activity: domain.Activity{ID: id, Title: string(id)}, CreatedAt: ts}); err != nil {
			t.Fatalf("Set(%s) err=%v", id, err)
		}
	}
	as, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List() err=%v", err)
	}
	if len(as) != 3 || as[0].ID != "z" || as[1].ID != "a" || as[2].ID != "m" {
		t.Fatalf("unexpected order: %v %v %v", as[0].ID, as[1].ID, as[2].ID)
	}
}

func TestRepo_SetRejectsEmptyID(t *testing.T) {
	t.Parallel()

	if err := NewRepo().Set(context.Background(), activityrepo.Activity{}); err == nil {
		t.Fatalf("Set() with empty id err=nil, want error")
	}
}
