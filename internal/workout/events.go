package workout

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventExerciseSelected EventType = "exercise_selected"
	EventSetAdded         EventType = "set_added"
	EventSetRemoved       EventType = "set_removed"
	EventElapsedTick      EventType = "elapsed_tick"
	EventRestStarted      EventType = "rest_started"
	EventRestTick         EventType = "rest_tick"
	EventRestFinished     EventType = "rest_finished"
	EventRestStopped      EventType = "rest_stopped"
	EventSessionFinished  EventType = "session_finished"
	EventValidationFailed EventType = "validation_failed"
)

// Event describes one controller state transition. Only the fields relevant to the
// type are set.
type Event struct {
	Type      EventType    `json:"type"`
	UserID    uuid.UUID    `json:"userId"`
	SessionID uuid.UUID    `json:"sessionId,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Set       *ExerciseSet `json:"set,omitempty"`
	Session   *Session     `json:"session,omitempty"`
	Elapsed   int          `json:"elapsed,omitempty"`
	Rest      int          `json:"rest,omitempty"`
	Field     string       `json:"field,omitempty"`
	Message   string       `json:"message,omitempty"`
}

type Listener interface {
	OnEvent(e Event)
}

type ListenerFunc func(e Event)

func (f ListenerFunc) OnEvent(e Event) {
	f(e)
}
