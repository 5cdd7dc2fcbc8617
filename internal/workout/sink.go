package workout

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// SessionSink receives every finished session exactly once per Finish call.
type SessionSink interface {
	SaveSession(ctx context.Context, s Session) error
}

type SinkFunc func(ctx context.Context, s Session) error

func (f SinkFunc) SaveSession(ctx context.Context, s Session) error {
	return f(ctx, s)
}

// MultiSink hands the session to every sink in order and combines their errors.
type MultiSink []SessionSink

func (m MultiSink) SaveSession(ctx context.Context, s Session) error {
	var err error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		err = multierr.Append(err, sink.SaveSession(ctx, s))
	}
	return err
}

// MirroredSink stores the session in Primary and then copies it to Mirror. Only the
// primary result decides whether the session was saved; a mirror failure after a
// successful primary save is reported wrapped in ErrMirrorFailed.
type MirroredSink struct {
	Primary SessionSink
	Mirror  SessionSink
}

func (m MirroredSink) SaveSession(ctx context.Context, s Session) error {
	primaryErr := m.Primary.SaveSession(ctx, s)
	if m.Mirror == nil {
		return primaryErr
	}

	mirrorErr := m.Mirror.SaveSession(ctx, s)
	if primaryErr != nil {
		if mirrorErr != nil {
			log.Errorf("session %s: mirror failed as well: %s", s.ID, mirrorErr)
		}
		return primaryErr
	}
	if mirrorErr != nil {
		return fmt.Errorf("%w: %w", ErrMirrorFailed, mirrorErr)
	}
	return nil
}
