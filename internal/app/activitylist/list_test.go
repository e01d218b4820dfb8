package activitylist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memactivityrepo "github.com/actilink/actilink-api/internal/adapters/memory/activityrepo"
	"github.com/actilink/actilink-api/internal/app/mapview"
	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/ports/out/activityrepo"
)

// repoDirectory backs the list with the in-memory store. Each error field,
// when set, fails the matching call.
type repoDirectory struct {
	repo  *memactivityrepo.Repo
	calls int

	listErr   error
	putErr    error
	deleteErr error
}

func newRepoDirectory() *repoDirectory {
	return &repoDirectory{repo: memactivityrepo.NewRepo()}
}

func (d *repoDirectory) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	d.calls++
	if d.listErr != nil {
		return nil, d.listErr
	}
	as, err := d.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(as))
	for _, a := range as {
		out = append(out, a.Activity)
	}
	return out, nil
}

func (d *repoDirectory) PutActivity(ctx context.Context, a domain.Activity) error {
	d.calls++
	if d.putErr != nil {
		return d.putErr
	}
	return d.repo.Set(ctx, activityrepo.Activity{Activity: a, CreatedAt: time.Unix(int64(d.calls), 0)})
}

func (d *repoDirectory) DeleteActivity(ctx context.Context, id domain.ActivityID) error {
	d.calls++
	if d.deleteErr != nil {
		return d.deleteErr
	}
	return d.repo.Delete(ctx, id)
}

func (d *repoDirectory) JoinActivity(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	d.calls++
	return d.repo.Join(ctx, id, user)
}

func (d *repoDirectory) LeaveActivity(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	d.calls++
	return d.repo.Leave(ctx, id, user)
}

func seed(t *testing.T, d *repoDirectory, as ...domain.Activity) {
	t.Helper()
	for _, a := range as {
		require.NoError(t, d.PutActivity(context.Background(), a))
	}
}

func TestList_StartsEmpty(t *testing.T) {
	l := New(newRepoDirectory(), zerolog.Nop())
	assert.Equal(t, Empty, l.State())
	assert.Empty(t, l.Activities())
	assert.Empty(t, l.Filtered())
}

func TestList_YogaJoinScenario(t *testing.T) {
	d := newRepoDirectory()
	seed(t, d, domain.Activity{ID: "a1", Title: "Yoga", Participants: []domain.UserID{}, Latitude: 48.85, Longitude: 2.35})
	l := New(d, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, l.Load(ctx))
	assert.Equal(t, Loaded, l.State())

	viewer := domain.GeoPoint{Latitude: 48.85, Longitude: 2.35}
	ms := mapview.Project(l.Activities(), viewer, 10, "")
	require.Len(t, ms, 1)
	assert.Equal(t, domain.ActivityID("a1"), ms[0].ActivityID)

	require.NoError(t, l.Join(ctx, "a1", "u1"))
	assert.Equal(t, []domain.UserID{"u1"}, l.Activities()[0].Participants)

	require.NoError(t, l.Join(ctx, "a1", "u1"))
	assert.Equal(t, []domain.UserID{"u1"}, l.Activities()[0].Participants)

	require.NoError(t, l.Leave(ctx, "a1", "u1"))
	assert.Empty(t, l.Activities()[0].Participants)
}

func TestList_AddRunScenario(t *testing.T) {
	d := newRepoDirectory()
	l := New(d, zerolog.Nop())

	a, err := l.Add(context.Background(), NewFields{Title: "Run", Date: "2025-05-10", StartTime: "07:00", EndTime: "08:00", UserID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, domain.UserID("u1"), a.CreatorID)
	assert.Empty(t, a.Participants)

	as := l.Activities()
	require.Len(t, as, 1)
	assert.Equal(t, a.ID, as[0].ID)
	assert.Equal(t, domain.UserID("u1"), as[0].CreatorID)
	assert.NotNil(t, as[0].Participants)
	assert.Empty(t, as[0].Participants)
}

func TestList_AddAssignsFreshIDs(t *testing.T) {
	l := New(newRepoDirectory(), zerolog.Nop())
	ctx := context.Background()

	a, err := l.Add(ctx, NewFields{Title: "Run", UserID: "u1"})
	require.NoError(t, err)
	b, err := l.Add(ctx, NewFields{Title: "Run", UserID: "u1"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, l.Activities(), 2)
}

func TestList_FilterYogaScenario(t *testing.T) {
	d := newRepoDirectory()
	seed(t, d,
		domain.Activity{ID: "a1", Title: "Yoga Class"},
		domain.Activity{ID: "a2", Title: "Running Club"},
	)
	l := New(d, zerolog.Nop())
	require.NoError(t, l.Load(context.Background()))

	callsBefore := d.calls
	l.SetFilter("yoga")
	assert.Equal(t, callsBefore, d.calls, "SetFilter must not do I/O")

	f := l.Filtered()
	require.Len(t, f, 1)
	assert.Equal(t, "Yoga Class", f[0].Title)
	assert.Len(t, l.Activities(), 2)

	l.SetFilter("")
	assert.Len(t, l.Filtered(), 2)
}

func TestList_FilterAppliesToLaterLoads(t *testing.T) {
	d := newRepoDirectory()
	l := New(d, zerolog.Nop())
	l.SetFilter("club")
	assert.Empty(t, l.Filtered())

	seed(t, d, domain.Activity{ID: "a2", Title: "Running Club"})
	require.NoError(t, l.Load(context.Background()))
	require.Len(t, l.Filtered(), 1)
	assert.Equal(t, "club", l.Filter())
}

func TestList_LoadFailureKeepsPriorState(t *testing.T) {
	d := newRepoDirectory()
	seed(t, d, domain.Activity{ID: "a1", Title: "Yoga"})
	l := New(d, zerolog.Nop())
	require.NoError(t, l.Load(context.Background()))

	d.listErr = errors.New("offline")
	require.Error(t, l.Load(context.Background()))
	assert.Equal(t, Loaded, l.State())
	assert.Len(t, l.Activities(), 1)
}

func TestList_DeleteFailureLeavesStateUntouched(t *testing.T) {
	d := newRepoDirectory()
	seed(t, d, domain.Activity{ID: "a1", Title: "Yoga"})
	l := New(d, zerolog.Nop())
	require.NoError(t, l.Load(context.Background()))

	notified := 0
	l.Subscribe(func(Snapshot) { notified++ })

	d.deleteErr = errors.New("permission denied")
	require.Error(t, l.Delete(context.Background(), "a1"))
	assert.Len(t, l.Activities(), 1)
	assert.Equal(t, 0, notified)

	d.deleteErr = nil
	require.NoError(t, l.Delete(context.Background(), "a1"))
	assert.Empty(t, l.Activities())
	assert.Equal(t, 1, notified)
}

func TestList_UpdateReplacesRecord(t *testing.T) {
	d := newRepoDirectory()
	seed(t, d, domain.Activity{ID: "a1", Title: "Yoga", CreatorID: "u1"})
	l := New(d, zerolog.Nop())
	require.NoError(t, l.Load(context.Background()))

	a := l.Activities()[0]
	a.Title = "Evening Yoga"
	require.NoError(t, l.Update(context.Background(), a))
	assert.Equal(t, "Evening Yoga", l.Activities()[0].Title)

	d.putErr = errors.New("offline")
	a.Title = "Lost"
	require.Error(t, l.Update(context.Background(), a))
	assert.Equal(t, "Evening Yoga", l.Activities()[0].Title)
}

func TestList_JoinRejectsEmptyUserBeforeIO(t *testing.T) {
	d := newRepoDirectory()
	l := New(d, zerolog.Nop())

	assert.ErrorIs(t, l.Join(context.Background(), "a1", ""), ErrUnauthenticated)
	assert.ErrorIs(t, l.Leave(context.Background(), "a1", ""), ErrUnauthenticated)
	assert.Equal(t, 0, d.calls)
}

func TestList_SubscribersSeeDerivedView(t *testing.T) {
	d := newRepoDirectory()
	seed(t, d, domain.Activity{ID: "a1", Title: "Yoga Class"}, domain.Activity{ID: "a2", Title: "Running Club"})
	l := New(d, zerolog.Nop())

	var last Snapshot
	unsub := l.Subscribe(func(s Snapshot) { last = s })
	defer unsub()

	require.NoError(t, l.Load(context.Background()))
	l.SetFilter("RUN")
	assert.Equal(t, Loaded, last.Status)
	assert.Equal(t, "RUN", last.Filter)
	require.Len(t, last.Filtered, 1)
	assert.Equal(t, domain.ActivityID("a2"), last.Filtered[0].ID)
}

func TestList_ListenerClearingFilterIsSeenLast(t *testing.T) {
	d := newRepoDirectory()
	seed(t, d, domain.Activity{ID: "a1", Title: "Yoga Class"}, domain.Activity{ID: "a2", Title: "Running Club"})
	l := New(d, zerolog.Nop())
	require.NoError(t, l.Load(context.Background()))

	l.Subscribe(func(s Snapshot) {
		if s.Filter == "run" {
			l.SetFilter("")
		}
	})
	var last Snapshot
	l.Subscribe(func(s Snapshot) { last = s })

	l.SetFilter("run")
	assert.Equal(t, "", l.Filter())
	assert.Equal(t, "", last.Filter)
	assert.Len(t, last.Filtered, 2)
}

func TestList_ConcurrentFiltersMatchInternalState(t *testing.T) {
	d := newRepoDirectory()
	seed(t, d, domain.Activity{ID: "a1", Title: "Yoga Class"}, domain.Activity{ID: "a2", Title: "Running Club"})
	l := New(d, zerolog.Nop())
	require.NoError(t, l.Load(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.SetFilter(fmt.Sprintf("q%d", n))
		}(i)
	}
	wg.Wait()

	l.mu.Lock()
	want := l.filter
	l.mu.Unlock()
	assert.Equal(t, want, l.Filter())
}

func TestCanModify(t *testing.T) {
	a := domain.Activity{CreatorID: "u1"}
	assert.True(t, CanModify(a, "u1"))
	assert.False(t, CanModify(a, "u2"))
	assert.False(t, CanModify(domain.Activity{}, ""))
}
