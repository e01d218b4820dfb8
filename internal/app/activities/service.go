package activities

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/actilink/actilink-api/internal/app/mapview"
	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/platform/metrics"
	"github.com/actilink/actilink-api/internal/ports/out/activityrepo"
	clockport "github.com/actilink/actilink-api/internal/ports/out/clock"
	"github.com/actilink/actilink-api/internal/ports/out/eventpub"
)

// Service is the activity directory: CRUD over the store plus the membership
// transaction. Store failures are returned as-is and surface as generic errors.
type Service struct {
	repo activityrepo.Repository
	pub  eventpub.Publisher
	clk  clockport.Clock
	log  zerolog.Logger

	newActivityID func() domain.ActivityID
}

func NewService(repo activityrepo.Repository, pub eventpub.Publisher, clk clockport.Clock, log zerolog.Logger) *Service {
	if pub == nil {
		pub = eventpub.Noop{}
	}
	return &Service{
		repo: repo,
		pub:  pub,
		clk:  clk,
		log:  log.With().Str("component", "activities").Logger(),
		newActivityID: func() domain.ActivityID {
			return domain.ActivityID(uuid.NewString())
		},
	}
}

// SetNewActivityIDForTest overrides id generation.
func (s *Service) SetNewActivityIDForTest(fn func() domain.ActivityID) {
	if fn != nil {
		s.newActivityID = fn
	}
}

// ListActivities returns activities in store order, restricted to those matching filter.
func (s *Service) ListActivities(ctx context.Context, filter string) ([]domain.Activity, error) {
	as, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.FilterActivities(toDomainList(as), filter), nil
}

func (s *Service) GetActivity(ctx context.Context, id domain.ActivityID) (domain.Activity, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, activityrepo.ErrNotFound) {
			return domain.Activity{}, errNotFound()
		}
		return domain.Activity{}, err
	}
	return a.Activity, nil
}

// CreateActivity stores a new activity with a server-assigned id. The caller
// becomes the creator; participants start empty.
func (s *Service) CreateActivity(ctx context.Context, caller domain.UserID, in ActivityInput) (domain.Activity, error) {
	if caller == "" {
		return domain.Activity{}, errUnauthenticated()
	}
	in = normalizeInput(in)
	if err := validateInput(in); err != nil {
		return domain.Activity{}, err
	}

	now := s.clk.Now()
	a := activityrepo.Activity{
		Activity:  fromInput(s.newActivityID(), caller, in),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.repo.Set(ctx, a)
	metrics.RecordActivityOp("create", err)
	if err != nil {
		return domain.Activity{}, err
	}
	s.publish(ctx, eventpub.ActivityCreated, a.ID, caller)
	return a.Activity, nil
}

// SaveActivity writes a full replacement of the activity, creating it when the
// id is new (last write wins). The stored creator never changes; for a new
// record without a creator the caller is recorded. It reports whether the
// record was created.
func (s *Service) SaveActivity(ctx context.Context, caller domain.UserID, a domain.Activity) (domain.Activity, bool, error) {
	if caller == "" {
		return domain.Activity{}, false, errUnauthenticated()
	}
	a.ID = domain.ActivityID(strings.TrimSpace(string(a.ID)))
	if a.ID == "" {
		return domain.Activity{}, false, errValidation(map[string]any{"id": "must be non-empty"})
	}
	in := normalizeInput(toInput(a))
	if err := validateInput(in); err != nil {
		return domain.Activity{}, false, err
	}

	existing, err := s.repo.GetByID(ctx, a.ID)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, activityrepo.ErrNotFound):
		created = true
	default:
		return domain.Activity{}, false, err
	}

	now := s.clk.Now()
	rec := activityrepo.Activity{
		Activity:  fromInput(a.ID, a.CreatorID, in),
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.Participants = domain.NormalizeParticipants(a.Participants)
	if created {
		if rec.CreatorID == "" {
			rec.CreatorID = caller
		}
	} else {
		rec.CreatorID = existing.CreatorID
		rec.CreatedAt = existing.CreatedAt
	}

	err = s.repo.Set(ctx, rec)
	metrics.RecordActivityOp("save", err)
	if err != nil {
		return domain.Activity{}, false, err
	}
	key := eventpub.ActivityUpdated
	if created {
		key = eventpub.ActivityCreated
	}
	s.publish(ctx, key, rec.ID, caller)
	return rec.Activity, created, nil
}

func (s *Service) DeleteActivity(ctx context.Context, caller domain.UserID, id domain.ActivityID) error {
	if caller == "" {
		return errUnauthenticated()
	}
	err := s.repo.Delete(ctx, id)
	metrics.RecordActivityOp("delete", err)
	if err != nil {
		if errors.Is(err, activityrepo.ErrNotFound) {
			return errNotFound()
		}
		return err
	}
	s.publish(ctx, eventpub.ActivityDeleted, id, caller)
	return nil
}

// JoinActivity adds caller to the participant set. Joining twice is a no-op.
func (s *Service) JoinActivity(ctx context.Context, caller domain.UserID, id domain.ActivityID) (domain.Activity, error) {
	return s.membership(ctx, caller, id, true)
}

// LeaveActivity removes caller from the participant set. Leaving when absent is a no-op.
func (s *Service) LeaveActivity(ctx context.Context, caller domain.UserID, id domain.ActivityID) (domain.Activity, error) {
	return s.membership(ctx, caller, id, false)
}

func (s *Service) membership(ctx context.Context, caller domain.UserID, id domain.ActivityID, join bool) (domain.Activity, error) {
	if caller == "" {
		return domain.Activity{}, errUnauthenticated()
	}
	op, key := "leave", eventpub.ActivityLeft
	var err error
	if join {
		op, key = "join", eventpub.ActivityJoined
		err = s.repo.Join(ctx, id, caller)
	} else {
		err = s.repo.Leave(ctx, id, caller)
	}
	metrics.RecordActivityOp(op, err)
	if err != nil {
		if errors.Is(err, activityrepo.ErrNotFound) {
			return domain.Activity{}, errNotFound()
		}
		s.log.Warn().Err(err).Str("activity_id", string(id)).Str("op", op).Msg("membership transaction failed")
		return domain.Activity{}, err
	}
	s.publish(ctx, key, id, caller)
	return s.GetActivity(ctx, id)
}

// ListJoinedActivities returns the activities caller participates in.
func (s *Service) ListJoinedActivities(ctx context.Context, caller domain.UserID) ([]domain.Activity, error) {
	if caller == "" {
		return nil, errUnauthenticated()
	}
	as, err := s.repo.ListByParticipant(ctx, caller)
	if err != nil {
		return nil, err
	}
	return toDomainList(as), nil
}

// Markers projects the current activity list around the viewer.
func (s *Service) Markers(ctx context.Context, q MarkersQuery) ([]domain.Marker, error) {
	radius := mapview.DefaultThresholdKm
	if q.RadiusKm != nil {
		radius = *q.RadiusKm
		if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
			return nil, errValidation(map[string]any{"radiusKm": "must be a finite non-negative number"})
		}
	}
	if q.Viewer != nil {
		if d := validateCoordinates(q.Viewer.Latitude, q.Viewer.Longitude); len(d) > 0 {
			return nil, errValidation(d)
		}
	}
	as, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return mapview.Project(toDomainList(as), mapview.ResolveViewer(q.Viewer), radius, q.Search), nil
}

func (s *Service) publish(ctx context.Context, routingKey string, id domain.ActivityID, actor domain.UserID) {
	ev := eventpub.ActivityEvent{ActivityID: id, ActorID: actor, OccurredAt: s.clk.Now().UTC()}
	if err := s.pub.Publish(ctx, routingKey, ev); err != nil {
		metrics.RecordPublishFailed(routingKey)
		s.log.Warn().Err(err).Str("routing_key", routingKey).Str("activity_id", string(id)).Msg("publish activity event")
	}
}

func normalizeInput(in ActivityInput) ActivityInput {
	in.Title = domain.NormalizeHumanName(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Date = strings.TrimSpace(in.Date)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
	in.Location = strings.TrimSpace(in.Location)
	return in
}

// validateInput runs before any store access.
func validateInput(in ActivityInput) error {
	details := map[string]any{}
	if in.Title == "" {
		details["title"] = "must be non-empty"
	}
	if in.Date != "" {
		if _, err := time.Parse(time.DateOnly, in.Date); err != nil {
			details["date"] = "must be YYYY-MM-DD"
		}
	}
	start, startOK := parseClock(in.StartTime)
	if in.StartTime != "" && !startOK {
		details["startTime"] = "must be HH:MM"
	}
	end, endOK := parseClock(in.EndTime)
	if in.EndTime != "" && !endOK {
		details["endTime"] = "must be HH:MM"
	}
	if startOK && endOK && end.Before(start) {
		details["endTime"] = "must not be before startTime"
	}
	for k, v := range validateCoordinates(in.Latitude, in.Longitude) {
		details[k] = v
	}
	if len(details) > 0 {
		return errValidation(details)
	}
	return nil
}

func validateCoordinates(lat, lon float64) map[string]any {
	d := map[string]any{}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		d["latitude"] = "must be within [-90, 90]"
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		d["longitude"] = "must be within [-180, 180]"
	}
	return d
}

func parseClock(s string) (time.Time, bool) {
	if len(s) != 5 {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func fromInput(id domain.ActivityID, creator domain.UserID, in ActivityInput) domain.Activity {
	return domain.Activity{
		ID:           id,
		Title:        in.Title,
		Category:     in.Category,
		Date:         in.Date,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		Location:     in.Location,
		CreatorID:    creator,
		Participants: []domain.UserID{},
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
	}
}

func toInput(a domain.Activity) ActivityInput {
	return ActivityInput{
		Title:     a.Title,
		Category:  a.Category,
		Date:      a.Date,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Location:  a.Location,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
	}
}

func toDomainList(as []activityrepo.Activity) []domain.Activity {
	out := make([]domain.Activity, 0, len(as))
	for _, a := range as {
		out = append(out, a.Activity)
	}
	return out
}
