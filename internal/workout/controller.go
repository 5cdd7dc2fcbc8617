package workout

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/2beens/dailyfit/internal/exercises"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRestSeconds = 90
	DefaultEffort      = 3
	MinEffort          = 1
	MaxEffort          = 5
)

type SetInput struct {
	Reps   string `json:"reps"`
	Weight string `json:"weight"`
	Effort int    `json:"effort"`
}

type ControllerParams struct {
	UserID      uuid.UUID
	Sink        SessionSink
	Clock       Clock
	RestSeconds int
	Listeners   []Listener
}

type timer struct {
	ticker Ticker
	done   chan struct{}
}

func (t *timer) stop() {
	t.ticker.Stop()
	close(t.done)
}

// Controller drives the active workout of one user: the session being built, its sets,
// the elapsed clock and the rest countdown. State transitions are reported as events to
// subscribers and listeners, always outside the controller lock.
type Controller struct {
	userID      uuid.UUID
	sink        SessionSink
	clock       Clock
	restSeconds int
	listeners   []Listener

	mutex         sync.Mutex
	session       *Session
	sets          []ExerciseSet
	selected      *exercises.Exercise
	input         SetInput
	elapsed       int
	restRemaining int
	restActive    bool
	lastError     string
	closed        bool
	elapsedTimer  *timer
	restTimer     *timer

	subMutex  sync.Mutex
	subs      map[int]chan Event
	nextSubID int
}

func NewController(params ControllerParams) *Controller {
	if params.Clock == nil {
		params.Clock = RealClock()
	}
	if params.RestSeconds <= 0 {
		params.RestSeconds = DefaultRestSeconds
	}
	return &Controller{
		userID:      params.UserID,
		sink:        params.Sink,
		clock:       params.Clock,
		restSeconds: params.RestSeconds,
		listeners:   params.Listeners,
		input:       SetInput{Effort: DefaultEffort},
		subs:        make(map[int]chan Event),
	}
}

func (c *Controller) UserID() uuid.UUID {
	return c.userID
}

// Start begins a new session. When one is already active it is returned unchanged
// together with false. A closed controller answers ErrControllerClosed.
func (c *Controller) Start() (Session, bool, error) {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return Session{}, false, ErrControllerClosed
	}
	if c.session != nil {
		s := c.sessionCopyLocked()
		c.mutex.Unlock()
		return s, false, nil
	}

	now := c.clock.Now()
	c.session = &Session{
		ID:        uuid.New(),
		UserID:    c.userID,
		Date:      now,
		StartTime: now,
		CreatedAt: &now,
	}
	c.sets = nil
	c.elapsed = 0
	c.lastError = ""
	c.elapsedTimer = c.startTimerLocked(c.onElapsedTick)
	s := c.sessionCopyLocked()
	c.mutex.Unlock()

	log.Debugf("workout [%s]: session %s started", c.userID, s.ID)
	c.publish(Event{Type: EventSessionStarted, SessionID: s.ID, Timestamp: now, Session: &s})
	return s, true, nil
}

func (c *Controller) SelectExercise(ex exercises.Exercise) error {
	c.mutex.Lock()
	if c.session == nil {
		ev := c.failLocked(newValidationError("session", "No exercise or workout session selected", ErrNotActive))
		c.mutex.Unlock()
		c.publish(ev)
		return ErrNotActive
	}
	selected := ex
	c.selected = &selected
	c.lastError = ""
	sessionID := c.session.ID
	c.mutex.Unlock()

	c.publish(Event{
		Type:      EventExerciseSelected,
		SessionID: sessionID,
		Timestamp: c.clock.Now(),
		Message:   ex.Name,
	})
	return nil
}

// UpdateInput stores the draft set values. Drafts are not validated until a set is added.
func (c *Controller) UpdateInput(in SetInput) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.session == nil {
		return ErrNotActive
	}
	c.input = in
	return nil
}

// AddSet records a set from the stored input buffers.
func (c *Controller) AddSet() (ExerciseSet, error) {
	c.mutex.Lock()
	in := c.input
	c.mutex.Unlock()
	return c.AddSetWith(in)
}

// AddSetWith validates in and records it as the next set of the selected exercise.
// A failed validation leaves the controller untouched apart from its error message.
func (c *Controller) AddSetWith(in SetInput) (ExerciseSet, error) {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return ExerciseSet{}, ErrControllerClosed
	}

	reps, weight, vErr := c.validateLocked(in)
	if vErr != nil {
		ev := c.failLocked(vErr)
		c.mutex.Unlock()
		c.publish(ev)
		return ExerciseSet{}, vErr
	}

	now := c.clock.Now()
	exercise := *c.selected
	setNumber := 1
	var rest *int
	for _, s := range c.sets {
		if s.ExerciseID == exercise.ID {
			setNumber++
		}
	}
	if n := len(c.sets); n > 0 && c.sets[n-1].CreatedAt != nil {
		secs := int(now.Sub(*c.sets[n-1].CreatedAt).Seconds())
		rest = &secs
	}
	effort := in.Effort

	set := ExerciseSet{
		ID:                  uuid.New(),
		WorkoutSessionID:    c.session.ID,
		ExerciseID:          exercise.ID,
		SetNumber:           setNumber,
		Reps:                &reps,
		WeightKg:            weight,
		EffortRating:        &effort,
		RestDurationSeconds: rest,
		CreatedAt:           &now,
		Exercise:            &exercise,
	}
	c.sets = append(c.sets, set)
	c.input.Reps = ""
	c.input.Weight = ""
	c.input.Effort = in.Effort
	c.lastError = ""
	restEvents := c.startRestLocked(c.restSeconds)
	c.mutex.Unlock()

	log.Tracef("workout [%s]: set %d of %s added", c.userID, set.SetNumber, exercise.Name)
	added := set
	c.publish(Event{Type: EventSetAdded, SessionID: set.WorkoutSessionID, Timestamp: now, Set: &added})
	c.publish(restEvents...)
	return set, nil
}

func (c *Controller) validateLocked(in SetInput) (int, *float64, *ValidationError) {
	if c.session == nil {
		return 0, nil, newValidationError("session", "No exercise or workout session selected", ErrNotActive)
	}
	if c.selected == nil {
		return 0, nil, newValidationError("exercise", "No exercise or workout session selected", ErrNoExerciseSelected)
	}

	reps, err := strconv.Atoi(strings.TrimSpace(in.Reps))
	if err != nil || reps <= 0 {
		return 0, nil, newValidationError("reps", "Please enter a valid number of reps", ErrInvalidReps)
	}

	var weight *float64
	if w := strings.TrimSpace(in.Weight); w != "" {
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(w, ",", "."), 64)
		if err != nil || parsed < 0 || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, nil, newValidationError("weight", "Please enter a valid weight", ErrInvalidWeight)
		}
		weight = &parsed
	}

	if in.Effort < MinEffort || in.Effort > MaxEffort {
		return 0, nil, newValidationError("effort", fmt.Sprintf("Effort rating must be between %d and %d", MinEffort, MaxEffort), ErrInvalidEffort)
	}

	return reps, weight, nil
}

// RemoveSet drops the set and renumbers the remaining sets of the same exercise 1..N-1,
// keeping their order. Sets of other exercises are left alone.
func (c *Controller) RemoveSet(id uuid.UUID) error {
	c.mutex.Lock()
	if c.session == nil {
		c.mutex.Unlock()
		return ErrNotActive
	}

	idx := -1
	for i, s := range c.sets {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mutex.Unlock()
		return ErrSetNotFound
	}

	removed := c.sets[idx]
	remaining := make([]ExerciseSet, 0, len(c.sets)-1)
	remaining = append(remaining, c.sets[:idx]...)
	remaining = append(remaining, c.sets[idx+1:]...)
	number := 0
	for i := range remaining {
		if remaining[i].ExerciseID == removed.ExerciseID {
			number++
			remaining[i].SetNumber = number
		}
	}
	c.sets = remaining
	sessionID := c.session.ID
	c.mutex.Unlock()

	c.publish(Event{Type: EventSetRemoved, SessionID: sessionID, Timestamp: c.clock.Now(), Set: &removed})
	return nil
}

type SessionDetails struct {
	PreWorkoutMobility  *int    `json:"preWorkoutMobility"`
	PostWorkoutSoreness *int    `json:"postWorkoutSoreness"`
	Notes               *string `json:"notes"`
}

func (c *Controller) UpdateSessionDetails(details SessionDetails) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.session == nil {
		return ErrNotActive
	}
	if details.PreWorkoutMobility != nil {
		c.session.PreWorkoutMobility = details.PreWorkoutMobility
	}
	if details.PostWorkoutSoreness != nil {
		c.session.PostWorkoutSoreness = details.PostWorkoutSoreness
	}
	if details.Notes != nil {
		c.session.Notes = details.Notes
	}
	return nil
}

// Finish closes the active session, resets the controller and hands the completed
// session to the sink. The returned session is complete even when the sink fails.
func (c *Controller) Finish(ctx context.Context) (Session, error) {
	c.mutex.Lock()
	if c.session == nil {
		c.mutex.Unlock()
		return Session{}, ErrNotActive
	}

	end := c.clock.Now()
	if end.Before(c.session.StartTime) {
		end = c.session.StartTime
	}
	c.session.EndTime = &end
	finished := c.sessionCopyLocked()
	events := c.resetLocked()
	c.mutex.Unlock()

	c.publish(events...)
	c.publish(Event{Type: EventSessionFinished, SessionID: finished.ID, Timestamp: end, Session: &finished})

	if c.sink == nil {
		return finished, nil
	}
	if err := c.sink.SaveSession(ctx, finished); err != nil {
		return finished, fmt.Errorf("save finished session %s: %w", finished.ID, err)
	}
	return finished, nil
}

// StartRestCountdown restarts the rest countdown. Zero or negative seconds stop it.
func (c *Controller) StartRestCountdown(seconds int) error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return ErrControllerClosed
	}
	if c.session == nil {
		c.mutex.Unlock()
		return ErrNotActive
	}
	events := c.startRestLocked(seconds)
	c.mutex.Unlock()

	c.publish(events...)
	return nil
}

func (c *Controller) StopRestCountdown() {
	c.mutex.Lock()
	events := c.stopRestLocked()
	c.mutex.Unlock()

	c.publish(events...)
}

type Snapshot struct {
	Active           bool                `json:"active"`
	Session          *Session            `json:"session,omitempty"`
	SelectedExercise *exercises.Exercise `json:"selectedExercise,omitempty"`
	Input            SetInput            `json:"input"`
	ElapsedSeconds   int                 `json:"elapsedSeconds"`
	FormattedElapsed string              `json:"formattedElapsed"`
	RestSeconds      int                 `json:"restSeconds"`
	RestActive       bool                `json:"restActive"`
	FormattedRest    string              `json:"formattedRest"`
	ErrorMessage     string              `json:"errorMessage,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	snap := Snapshot{
		Active:           c.session != nil,
		Input:            c.input,
		ElapsedSeconds:   c.elapsed,
		FormattedElapsed: FormatElapsed(c.elapsed),
		RestSeconds:      c.restRemaining,
		RestActive:       c.restActive,
		FormattedRest:    FormatRest(c.restRemaining),
		ErrorMessage:     c.lastError,
	}
	if c.session != nil {
		s := c.sessionCopyLocked()
		snap.Session = &s
	}
	if c.selected != nil {
		selected := *c.selected
		snap.SelectedExercise = &selected
	}
	return snap
}

func (c *Controller) IsActive() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.session != nil
}

// Subscribe returns a channel of controller events and a func that cancels the
// subscription. Events are dropped when the channel buffer is full.
func (c *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	if c.IsClosed() {
		close(ch)
		return ch, func() {}
	}

	c.subMutex.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = ch
	c.subMutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMutex.Lock()
			defer c.subMutex.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// Close stops both timers and closes all subscriber channels. An active session is
// dropped without reaching the sink. A closed controller refuses to start again.
func (c *Controller) Close() {
	c.mutex.Lock()
	c.closeLocked()
	c.mutex.Unlock()

	c.closeSubscribers()
}

// CloseIfIdle closes the controller only when no session is in progress. The check and
// the close happen under one lock, so a concurrent Start either wins or fails.
func (c *Controller) CloseIfIdle() bool {
	c.mutex.Lock()
	if c.session != nil {
		c.mutex.Unlock()
		return false
	}
	c.closeLocked()
	c.mutex.Unlock()

	c.closeSubscribers()
	return true
}

func (c *Controller) IsClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closed
}

func (c *Controller) closeLocked() {
	c.closed = true
	if c.elapsedTimer != nil {
		c.elapsedTimer.stop()
		c.elapsedTimer = nil
	}
	if c.restTimer != nil {
		c.restTimer.stop()
		c.restTimer = nil
	}
	c.session = nil
	c.sets = nil
	c.selected = nil
	c.restActive = false
	c.restRemaining = 0
}

func (c *Controller) closeSubscribers() {
	c.subMutex.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subMutex.Unlock()
}

func (c *Controller) publish(events ...Event) {
	if len(events) == 0 {
		return
	}

	c.subMutex.Lock()
	for _, e := range events {
		e.UserID = c.userID
		for _, ch := range c.subs {
			select {
			case ch <- e:
			default:
			}
		}
	}
	c.subMutex.Unlock()

	for _, e := range events {
		e.UserID = c.userID
		for _, l := range c.listeners {
			l.OnEvent(e)
		}
	}
}

func (c *Controller) failLocked(vErr *ValidationError) Event {
	c.lastError = vErr.Message
	ev := Event{
		Type:      EventValidationFailed,
		Timestamp: c.clock.Now(),
		Field:     vErr.Field,
		Message:   vErr.Message,
	}
	if c.session != nil {
		ev.SessionID = c.session.ID
	}
	return ev
}

func (c *Controller) sessionCopyLocked() Session {
	s := *c.session
	s.ExerciseSets = make([]ExerciseSet, len(c.sets))
	copy(s.ExerciseSets, c.sets)
	return s
}

func (c *Controller) resetLocked() []Event {
	if c.elapsedTimer != nil {
		c.elapsedTimer.stop()
		c.elapsedTimer = nil
	}
	events := c.stopRestLocked()

	c.session = nil
	c.sets = nil
	c.selected = nil
	c.input = SetInput{Effort: DefaultEffort}
	c.elapsed = 0
	c.lastError = ""
	return events
}

func (c *Controller) startRestLocked(seconds int) []Event {
	events := c.stopRestLocked()
	if seconds <= 0 {
		return events
	}

	c.restRemaining = seconds
	c.restActive = true
	c.restTimer = c.startTimerLocked(c.onRestTick)

	ev := Event{Type: EventRestStarted, Timestamp: c.clock.Now(), Rest: seconds}
	if c.session != nil {
		ev.SessionID = c.session.ID
	}
	return append(events, ev)
}

func (c *Controller) stopRestLocked() []Event {
	wasActive := c.restActive
	if c.restTimer != nil {
		c.restTimer.stop()
		c.restTimer = nil
	}
	c.restActive = false
	c.restRemaining = 0
	if !wasActive {
		return nil
	}

	ev := Event{Type: EventRestStopped, Timestamp: c.clock.Now()}
	if c.session != nil {
		ev.SessionID = c.session.ID
	}
	return []Event{ev}
}

func (c *Controller) startTimerLocked(onTick func(t *timer)) *timer {
	t := &timer{
		ticker: c.clock.NewTicker(time.Second),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C():
				onTick(t)
			}
		}
	}()
	return t
}

func (c *Controller) onElapsedTick(t *timer) {
	c.mutex.Lock()
	// a tick from a timer that was already replaced or stopped
	if c.elapsedTimer != t {
		c.mutex.Unlock()
		return
	}
	c.elapsed++
	ev := Event{
		Type:      EventElapsedTick,
		SessionID: c.session.ID,
		Timestamp: c.clock.Now(),
		Elapsed:   c.elapsed,
	}
	c.mutex.Unlock()

	c.publish(ev)
}

func (c *Controller) onRestTick(t *timer) {
	c.mutex.Lock()
	if c.restTimer != t {
		c.mutex.Unlock()
		return
	}

	c.restRemaining--
	events := []Event{{Type: EventRestTick, Timestamp: c.clock.Now(), Rest: c.restRemaining}}
	if c.restRemaining <= 0 {
		c.restTimer.stop()
		c.restTimer = nil
		c.restActive = false
		c.restRemaining = 0
		events = append(events, Event{Type: EventRestFinished, Timestamp: c.clock.Now()})
	}
	if c.session != nil {
		for i := range events {
			events[i].SessionID = c.session.ID
		}
	}
	c.mutex.Unlock()

	c.publish(events...)
}
