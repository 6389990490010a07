package manager

import "github.com/google/uuid"

// Event represents a manager lifecycle event.
// Minimal and stable: name + task id and optional fields via key/values.
type Event struct {
	ID     string
	Name   string
	TaskID string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// publish stamps a fresh event id and forwards to the publisher.
func (m *Manager) publish(e Event) {
	e.ID = uuid.NewString()
	m.publisher.Publish(e)
}
