package manager

import (
	"context"
	"errors"

	"vramd/internal/registry"
)

// Reselect changes a task's selected option. Both names are validated before
// any mutation. If the task is currently loaded the change is an
// unload-then-load: a failure to load the new option leaves the task with no
// loaded resource rather than silently keeping the stale one.
func (m *Manager) Reselect(ctx context.Context, taskID, option string) error {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return shuttingDownError{}
		}
		p, inflight := m.pending[taskID]
		if !inflight {
			break
		}
		// Let the in-flight load settle so its handle lands in the cache and
		// goes through the normal unload path below.
		m.mu.Unlock()
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := m.table.Reselect(taskID, option); err != nil {
		m.mu.Unlock()
		switch {
		case errors.Is(err, registry.ErrUnknownTask):
			return ErrInvalidTask(taskID)
		case errors.Is(err, registry.ErrUnknownOption):
			return ErrInvalidOption(taskID, option)
		default:
			return err
		}
	}
	e, wasLoaded := m.entries[taskID]
	if wasLoaded {
		m.detachLocked(e)
	}
	m.mu.Unlock()

	m.log.Info().Str("task", taskID).Str("option", option).Bool("reload", wasLoaded).Msg("reselected")
	m.publish(Event{Name: "reselected", TaskID: taskID, Fields: map[string]any{
		"option": option,
		"reload": wasLoaded,
	}})
	if !wasLoaded {
		return nil
	}
	m.release(e, "unloaded")
	_, err := m.Load(ctx, taskID)
	return err
}
