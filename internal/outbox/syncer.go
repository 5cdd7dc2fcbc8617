package outbox

import (
	"context"
	"fmt"

	"github.com/2beens/dailyfit/internal/workout"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type SyncResult struct {
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

type Syncer struct {
	primary workout.SessionSink
	queue   queue
}

func NewSyncer(primary workout.SessionSink, queue queue) *Syncer {
	return &Syncer{
		primary: primary,
		queue:   queue,
	}
}

func (s *Syncer) Pending(ctx context.Context, userID uuid.UUID) ([]PendingSession, error) {
	return s.queue.Pending(ctx, userID)
}

// Sync sends every queued session of the user to the primary sink once. Sessions
// that fail again stay queued with their attempt count increased.
func (s *Syncer) Sync(ctx context.Context, userID uuid.UUID) (SyncResult, error) {
	pending, err := s.queue.Pending(ctx, userID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list pending sessions: %w", err)
	}

	var result SyncResult
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := s.primary.SaveSession(ctx, p.Session); err != nil {
			log.Warnf("outbox sync: session %s still failing after %d attempts: %s", p.Session.ID, p.Attempts+1, err)
			if markErr := s.queue.MarkFailed(ctx, p.Session.ID, err); markErr != nil {
				return result, fmt.Errorf("mark session %s failed: %w", p.Session.ID, markErr)
			}
			result.Failed++
			continue
		}

		if err := s.queue.Remove(ctx, p.Session.ID); err != nil {
			return result, fmt.Errorf("remove synced session %s: %w", p.Session.ID, err)
		}
		result.Synced++
	}
	result.Pending = result.Failed

	log.Debugf("outbox sync for user %s: %d synced, %d failed", userID, result.Synced, result.Failed)
	return result, nil
}
