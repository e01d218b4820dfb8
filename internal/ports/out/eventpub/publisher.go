package eventpub

import (
	"context"
	"time"

	"github.com/actilink/actilink-api/internal/domain"
)

// Routing keys for activity domain events.
const (
	ActivityCreated = "activity.created"
	ActivityUpdated = "activity.updated"
	ActivityDeleted = "activity.deleted"
	ActivityJoined  = "activity.joined"
	ActivityLeft    = "activity.left"
)

// ActivityEvent is the payload published after a successful mutation.
type ActivityEvent struct {
	ActivityID domain.ActivityID `json:"activity_id"`
	ActorID    domain.UserID     `json:"actor_id"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher delivers domain events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, ev ActivityEvent) error
}

// Noop discards events. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, ActivityEvent) error { return nil }
