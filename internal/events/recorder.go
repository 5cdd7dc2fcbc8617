package events

import (
	"context"
	"sync"
	"time"

	"github.com/2beens/dailyfit/internal/telemetry/metrics"
	"github.com/2beens/dailyfit/internal/workout"

	log "github.com/sirupsen/logrus"
)

type eventAdder interface {
	Add(ctx context.Context, event Event) (int, error)
}

var _ workout.Listener = (*Recorder)(nil)

// Recorder writes controller events to the training log on its own goroutine, so the
// controller never waits on the database. Events are dropped when the queue is full.
type Recorder struct {
	service      eventAdder
	metrics      *metrics.Manager
	writeTimeout time.Duration

	mutex  sync.Mutex
	queue  chan Event
	closed bool
	done   chan struct{}
}

func NewRecorder(service eventAdder, m *metrics.Manager, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 100
	}
	r := &Recorder{
		service:      service,
		metrics:      m,
		writeTimeout: 5 * time.Second,
		queue:        make(chan Event, queueSize),
		done:         make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) OnEvent(e workout.Event) {
	event, ok := FromWorkoutEvent(e)
	if !ok {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- event:
	default:
		log.Warnf("events recorder: queue full, dropping %s event of session %s", event.Type, event.SessionID)
		if r.metrics != nil {
			r.metrics.CounterEventsDropped.Inc()
		}
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for event := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		if _, err := r.service.Add(ctx, event); err != nil {
			log.Errorf("events recorder: %s", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the queued ones are written.
func (r *Recorder) Close() {
	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mutex.Unlock()

	<-r.done
}
