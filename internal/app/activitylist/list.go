// Package activitylist is the client-side activity list state machine: the
// last fetched activities, a filter string, and the filtered view derived from both.
package activitylist

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/actilink/actilink-api/internal/app/state"
	"github.com/actilink/actilink-api/internal/domain"
)

// Directory is the activity directory the list talks to.
type Directory interface {
	ListActivities(ctx context.Context) ([]domain.Activity, error)
	PutActivity(ctx context.Context, a domain.Activity) error
	DeleteActivity(ctx context.Context, id domain.ActivityID) error
	JoinActivity(ctx context.Context, id domain.ActivityID, user domain.UserID) error
	LeaveActivity(ctx context.Context, id domain.ActivityID, user domain.UserID) error
}

// Status is the coarse state of the list. The filtered view is derived, not a state.
type Status int

const (
	Empty Status = iota
	Loaded
)

func (s Status) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "empty"
}

// ErrUnauthenticated is returned by Join and Leave for an empty user id.
var ErrUnauthenticated = errors.New("user is not signed in")

// Snapshot is what subscribers observe after every change.
type Snapshot struct {
	Status     Status
	Activities []domain.Activity
	Filter     string
	Filtered   []domain.Activity
}

// NewFields are the user-entered fields of a new activity.
type NewFields struct {
	Title     string
	Category  string
	Date      string
	StartTime string
	EndTime   string
	Location  string
	Latitude  float64
	Longitude float64
	UserID    domain.UserID
}

type List struct {
	dir Directory
	log zerolog.Logger

	mu         sync.Mutex
	status     Status
	activities []domain.Activity
	filter     string

	snap *state.Value[Snapshot]

	newID func() domain.ActivityID
}

func New(dir Directory, log zerolog.Logger) *List {
	return &List{
		dir:  dir,
		log:  log.With().Str("component", "activitylist").Logger(),
		snap: state.NewValue(Snapshot{Activities: []domain.Activity{}, Filtered: []domain.Activity{}}),
		newID: func() domain.ActivityID {
			return domain.ActivityID(uuid.NewString())
		},
	}
}

// SetNewIDForTest overrides id generation for Add.
func (l *List) SetNewIDForTest(fn func() domain.ActivityID) {
	if fn != nil {
		l.newID = fn
	}
}

// Subscribe registers fn for every state change.
func (l *List) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return l.snap.Subscribe(fn)
}

func (l *List) State() Status                 { return l.snap.Get().Status }
func (l *List) Activities() []domain.Activity { return cloneAll(l.snap.Get().Activities) }
func (l *List) Filter() string                { return l.snap.Get().Filter }
func (l *List) Filtered() []domain.Activity   { return cloneAll(l.snap.Get().Filtered) }

// Load fetches every activity and replaces local state. On failure the
// previous state is kept. Concurrent loads race; the last to finish wins.
func (l *List) Load(ctx context.Context) error {
	as, err := l.dir.ListActivities(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("load activities")
		return err
	}
	l.mu.Lock()
	l.status = Loaded
	l.activities = cloneAll(as)
	l.mu.Unlock()
	l.publish()
	return nil
}

// SetFilter replaces the filter text. It does no I/O.
func (l *List) SetFilter(text string) {
	l.mu.Lock()
	l.filter = text
	l.mu.Unlock()
	l.publish()
}

// Add creates an activity with a fresh id and no participants, then reloads.
func (l *List) Add(ctx context.Context, f NewFields) (domain.Activity, error) {
	a := domain.Activity{
		ID:           l.newID(),
		Title:        f.Title,
		Category:     f.Category,
		Date:         f.Date,
		StartTime:    f.StartTime,
		EndTime:      f.EndTime,
		Location:     f.Location,
		CreatorID:    f.UserID,
		Participants: []domain.UserID{},
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
	}
	if err := l.dir.PutActivity(ctx, a); err != nil {
		l.log.Warn().Err(err).Msg("add activity")
		return domain.Activity{}, err
	}
	return a, l.Load(ctx)
}

// Update writes a full replacement of a (last write wins), then reloads.
func (l *List) Update(ctx context.Context, a domain.Activity) error {
	if err := l.dir.PutActivity(ctx, a); err != nil {
		l.log.Warn().Err(err).Str("activity_id", string(a.ID)).Msg("update activity")
		return err
	}
	return l.Load(ctx)
}

// Delete removes the activity and reloads only once removal is confirmed.
// A failed delete leaves state untouched.
func (l *List) Delete(ctx context.Context, id domain.ActivityID) error {
	if err := l.dir.DeleteActivity(ctx, id); err != nil {
		l.log.Warn().Err(err).Str("activity_id", string(id)).Msg("delete activity")
		return err
	}
	return l.Load(ctx)
}

// Join adds user to the activity's participants, then reloads.
func (l *List) Join(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	if user == "" {
		return ErrUnauthenticated
	}
	if err := l.dir.JoinActivity(ctx, id, user); err != nil {
		l.log.Warn().Err(err).Str("activity_id", string(id)).Msg("join activity")
		return err
	}
	return l.Load(ctx)
}

// Leave removes user from the activity's participants, then reloads.
func (l *List) Leave(ctx context.Context, id domain.ActivityID, user domain.UserID) error {
	if user == "" {
		return ErrUnauthenticated
	}
	if err := l.dir.LeaveActivity(ctx, id, user); err != nil {
		l.log.Warn().Err(err).Str("activity_id", string(id)).Msg("leave activity")
		return err
	}
	return l.Load(ctx)
}

// CanModify reports whether user may edit or delete a. Only the creator may;
// the directory itself does not enforce this.
func CanModify(a domain.Activity, user domain.UserID) bool {
	return user != "" && a.CreatorID == user
}

// publish builds the snapshot inside the holder's update so snapshots are
// stored in the same order as the state changes they reflect.
func (l *List) publish() {
	l.snap.Update(func(Snapshot) Snapshot {
		l.mu.Lock()
		defer l.mu.Unlock()
		return Snapshot{
			Status:     l.status,
			Activities: cloneAll(l.activities),
			Filter:     l.filter,
			Filtered:   domain.FilterActivities(l.activities, l.filter),
		}
	})
}

func cloneAll(as []domain.Activity) []domain.Activity {
	out := make([]domain.Activity, 0, len(as))
	for _, a := range as {
		out = append(out, a.Clone())
	}
	return out
}
