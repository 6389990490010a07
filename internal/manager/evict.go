package manager

import "context"

// makeRoomLocked evicts least-recently-used entries until required bytes fit
// under the capacity ceiling. Admission arithmetic uses measured bytes for
// residents, declared bytes for pending reservations, and declared bytes for
// the incoming resource. Detached entries are returned so the caller can
// unload them outside the lock; ownership of their handles transfers with
// them. Call with m.mu held.
func (m *Manager) makeRoomLocked(required uint64) ([]*entry, error) {
	var evicted []*entry
	for m.used+m.reserved+required > m.capacity {
		back := m.recency.Back()
		if back == nil {
			// Everything evictable is gone and it still does not fit.
			return evicted, resourceExhaustedError{required: required, capacity: m.capacity}
		}
		evicted = append(evicted, m.detachLocked(back.Value.(*entry)))
		m.evictionsTotal++
		evictionsMetric.Inc()
	}
	return evicted, nil
}

// detachLocked removes an entry from the cache and its accounting. The
// caller takes ownership of the handle and must pass it to release exactly
// once. Call with m.mu held.
func (m *Manager) detachLocked(e *entry) *entry {
	m.recency.Remove(e.elem)
	delete(m.entries, e.taskID)
	m.used -= e.actual
	return e
}

// EvictLRU removes the entry that has gone the longest without a touch and
// unloads it. It reports the evicted task id; ok is false when the cache was
// empty.
func (m *Manager) EvictLRU() (taskID string, ok bool) {
	m.mu.Lock()
	back := m.recency.Back()
	if back == nil {
		m.mu.Unlock()
		return "", false
	}
	e := m.detachLocked(back.Value.(*entry))
	m.evictionsTotal++
	evictionsMetric.Inc()
	m.mu.Unlock()

	m.release(e, "evicted")
	return e.taskID, true
}

// release unloads a detached entry. An unload that fails to actually free
// device memory is an external-system problem the manager cannot resolve by
// retrying, so the failure is logged at warn and the bookkeeping stays gone.
func (m *Manager) release(e *entry, event string) {
	if err := m.loader.Unload(context.Background(), e.handle); err != nil {
		m.log.Warn().Err(err).Str("task", e.taskID).Str("option", e.option).Msg("unload failed")
		m.publish(Event{Name: "unload_fail", TaskID: e.taskID, Fields: map[string]any{"error": err.Error()}})
	}
	m.syncGauges()
	m.publish(Event{Name: event, TaskID: e.taskID, Fields: map[string]any{
		"actual_bytes": e.actual,
	}})
}

func (m *Manager) releaseAll(evicted []*entry) {
	for _, e := range evicted {
		m.release(e, "evicted")
	}
}
