package events

import (
	"fmt"
	"strconv"
	"time"

	"github.com/2beens/dailyfit/internal/workout"

	"github.com/google/uuid"
)

// Event (DB level type) is one entry of the training log of a user, such as:
//   - training started
//   - training finished (with duration, sets and volume)
//   - set added / set removed (with exercise and set number)
type Event struct {
	ID        int               `json:"id"`
	Type      EventType         `json:"type"`
	UserID    uuid.UUID         `json:"userId"`
	SessionID uuid.UUID         `json:"sessionId"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data"`
}

type TrainingStart struct {
	UserID    uuid.UUID `json:"userId"`
	SessionID uuid.UUID `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

type TrainingFinish struct {
	UserID          uuid.UUID `json:"userId"`
	SessionID       uuid.UUID `json:"sessionId"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds int       `json:"durationSeconds"`
	Sets            int       `json:"sets"`
	VolumeKg        float64   `json:"volumeKg"`
}

type SetReport struct {
	UserID    uuid.UUID `json:"userId"`
	SessionID uuid.UUID `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Exercise  string    `json:"exercise"`
	SetNumber int       `json:"setNumber"`
	Reps      *int      `json:"reps,omitempty"`
	WeightKg  *float64  `json:"weightKg,omitempty"`
}

func NewTrainingStartEvent(ts TrainingStart) Event {
	return Event{
		Type:      EventTypeTrainingStarted,
		UserID:    ts.UserID,
		SessionID: ts.SessionID,
		Timestamp: ts.Timestamp,
		Data:      map[string]string{},
	}
}

func NewTrainingFinishEvent(tf TrainingFinish) Event {
	return Event{
		Type:      EventTypeTrainingFinished,
		UserID:    tf.UserID,
		SessionID: tf.SessionID,
		Timestamp: tf.Timestamp,
		Data: map[string]string{
			"duration": fmt.Sprintf("%d", tf.DurationSeconds),
			"sets":     fmt.Sprintf("%d", tf.Sets),
			"volume":   strconv.FormatFloat(tf.VolumeKg, 'f', -1, 64),
		},
	}
}

func newSetEvent(t EventType, sr SetReport) Event {
	data := map[string]string{
		"exercise":  sr.Exercise,
		"setNumber": fmt.Sprintf("%d", sr.SetNumber),
	}
	if sr.Reps != nil {
		data["reps"] = fmt.Sprintf("%d", *sr.Reps)
	}
	if sr.WeightKg != nil {
		data["weight"] = strconv.FormatFloat(*sr.WeightKg, 'f', -1, 64)
	}
	return Event{
		Type:      t,
		UserID:    sr.UserID,
		SessionID: sr.SessionID,
		Timestamp: sr.Timestamp,
		Data:      data,
	}
}

func NewSetAddedEvent(sr SetReport) Event {
	return newSetEvent(EventTypeSetAdded, sr)
}

func NewSetRemovedEvent(sr SetReport) Event {
	return newSetEvent(EventTypeSetRemoved, sr)
}

// FromWorkoutEvent converts the controller events that belong in the training log.
// Ticks, rest and validation events are not recorded.
func FromWorkoutEvent(e workout.Event) (Event, bool) {
	switch e.Type {
	case workout.EventSessionStarted:
		return NewTrainingStartEvent(TrainingStart{
			UserID:    e.UserID,
			SessionID: e.SessionID,
			Timestamp: e.Timestamp,
		}), true
	case workout.EventSessionFinished:
		if e.Session == nil {
			return Event{}, false
		}
		tf := TrainingFinish{
			UserID:    e.UserID,
			SessionID: e.SessionID,
			Timestamp: e.Timestamp,
			Sets:      len(e.Session.ExerciseSets),
			VolumeKg:  e.Session.TotalVolume(),
		}
		if d, ok := e.Session.Duration(); ok {
			tf.DurationSeconds = int(d.Seconds())
		}
		return NewTrainingFinishEvent(tf), true
	case workout.EventSetAdded, workout.EventSetRemoved:
		if e.Set == nil {
			return Event{}, false
		}
		sr := SetReport{
			UserID:    e.UserID,
			SessionID: e.SessionID,
			Timestamp: e.Timestamp,
			SetNumber: e.Set.SetNumber,
			Reps:      e.Set.Reps,
			WeightKg:  e.Set.WeightKg,
		}
		if e.Set.Exercise != nil {
			sr.Exercise = e.Set.Exercise.Name
		}
		if e.Type == workout.EventSetAdded {
			return NewSetAddedEvent(sr), true
		}
		return NewSetRemovedEvent(sr), true
	default:
		return Event{}, false
	}
}

// EventType can be one of:
//   - training_started
//   - training_finished
//   - set_added
//   - set_removed
type EventType string

const (
	EventTypeTrainingStarted  EventType = "training_started"
	EventTypeTrainingFinished EventType = "training_finished"
	EventTypeSetAdded         EventType = "set_added"
	EventTypeSetRemoved       EventType = "set_removed"
)

func (et EventType) String() string {
	return string(et)
}

func (et EventType) IsValid() bool {
	switch et {
	case EventTypeTrainingStarted,
		EventTypeTrainingFinished,
		EventTypeSetAdded,
		EventTypeSetRemoved:
		return true
	default:
		return false
	}
}
