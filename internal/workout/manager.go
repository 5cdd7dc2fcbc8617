package workout

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type ManagerParams struct {
	Sink        SessionSink
	Clock       Clock
	RestSeconds int
	Listeners   []Listener
}

// Manager owns one controller per user, so concurrent requests of the same user
// always reach the same session.
type Manager struct {
	params      ManagerParams
	mutex       sync.Mutex
	controllers map[uuid.UUID]*Controller
	closed      bool
}

func NewManager(params ManagerParams) *Manager {
	return &Manager{
		params:      params,
		controllers: make(map[uuid.UUID]*Controller),
	}
}

// For returns the controller of the user, creating it on first use. After Close it
// hands out closed controllers only.
func (m *Manager) For(userID uuid.UUID) *Controller {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if c, ok := m.controllers[userID]; ok {
		return c
	}

	c := NewController(ControllerParams{
		UserID:      userID,
		Sink:        m.params.Sink,
		Clock:       m.params.Clock,
		RestSeconds: m.params.RestSeconds,
		Listeners:   m.params.Listeners,
	})
	if m.closed {
		c.Close()
		return c
	}
	m.controllers[userID] = c
	return c
}

func (m *Manager) Lookup(userID uuid.UUID) (*Controller, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	c, ok := m.controllers[userID]
	return c, ok
}

// Active lists the users that currently have a workout in progress.
func (m *Manager) Active() []uuid.UUID {
	m.mutex.Lock()
	controllers := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		controllers = append(controllers, c)
	}
	m.mutex.Unlock()

	var active []uuid.UUID
	for _, c := range controllers {
		if c.IsActive() {
			active = append(active, c.UserID())
		}
	}
	return active
}

// EvictIdle closes and forgets the controller of the user unless a session is in
// progress. It reports whether the controller is gone.
func (m *Manager) EvictIdle(userID uuid.UUID) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c, ok := m.controllers[userID]
	if !ok {
		return true
	}
	if !c.CloseIfIdle() {
		return false
	}
	delete(m.controllers, userID)
	return true
}

func (m *Manager) Close() {
	m.mutex.Lock()
	controllers := m.controllers
	m.controllers = make(map[uuid.UUID]*Controller)
	m.closed = true
	m.mutex.Unlock()

	for _, c := range controllers {
		c.Close()
	}
	log.Debugf("workout manager closed, %d controllers stopped", len(controllers))
}
