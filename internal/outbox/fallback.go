package outbox

import (
	"context"
	"fmt"

	"github.com/2beens/dailyfit/internal/telemetry/metrics"
	"github.com/2beens/dailyfit/internal/workout"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type queue interface {
	Enqueue(ctx context.Context, session workout.Session, cause error) error
	Pending(ctx context.Context, userID uuid.UUID) ([]PendingSession, error)
	Remove(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
}

var _ workout.SessionSink = (*FallbackSink)(nil)

// FallbackSink saves to the primary sink and queues the session locally when that
// fails. Queued sessions are only retried through Syncer.
type FallbackSink struct {
	primary workout.SessionSink
	queue   queue
	metrics *metrics.Manager
}

func NewFallbackSink(primary workout.SessionSink, queue queue, m *metrics.Manager) *FallbackSink {
	return &FallbackSink{
		primary: primary,
		queue:   queue,
		metrics: m,
	}
}

// SaveSession returns an error wrapping workout.ErrSessionQueued when the session
// ended up in the local queue.
func (f *FallbackSink) SaveSession(ctx context.Context, s workout.Session) error {
	err := f.primary.SaveSession(ctx, s)
	if err == nil {
		return nil
	}

	if qErr := f.queue.Enqueue(ctx, s, err); qErr != nil {
		return fmt.Errorf("save session: %w, queue session: %w", err, qErr)
	}

	log.Warnf("outbox: session %s of user %s queued: %s", s.ID, s.UserID, err)
	if f.metrics != nil {
		f.metrics.CounterSessionsQueued.Inc()
	}
	return fmt.Errorf("%w: %w", workout.ErrSessionQueued, err)
}
