package manager

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Unload removes a task's resident resource and frees it. Mirrors eviction
// but is caller-initiated; a task that is not resident is a no-op.
func (m *Manager) Unload(taskID string) error {
	m.mu.Lock()
	e, ok := m.entries[taskID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	m.detachLocked(e)
	m.mu.Unlock()

	m.release(e, "unloaded")
	return nil
}

// Shutdown unloads every currently loaded resource, each attempted exactly
// once; unload failures are logged and do not stop the sweep. In-flight loads
// are waited for first so their results are swept rather than leaked.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	waiting := make([]*pendingLoad, 0, len(m.pending))
	for _, p := range m.pending {
		waiting = append(waiting, p)
	}
	m.mu.Unlock()

	for _, p := range waiting {
		select {
		case <-p.done:
		case <-ctx.Done():
		}
	}

	m.mu.Lock()
	detached := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		detached = append(detached, m.detachLocked(e))
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, e := range detached {
		e := e
		g.Go(func() error {
			m.release(e, "unloaded")
			return nil
		})
	}
	_ = g.Wait()
	m.log.Info().Int("unloaded", len(detached)).Msg("manager shut down")
	m.publish(Event{Name: "shutdown", Fields: map[string]any{"unloaded": len(detached)}})
	return ctx.Err()
}
