package manager

import (
	"context"
	"time"

	"vramd/pkg/types"
)

// Get returns the handle for the task's currently selected resource. A cache
// hit touches the entry to most-recently-used and involves no loader call.
// On a miss the load is deduplicated: concurrent callers for the same
// uncached task all observe the result of a single loader invocation.
func (m *Manager) Get(ctx context.Context, taskID string) (types.Handle, error) {
	return m.acquire(ctx, taskID)
}

// Load is the eager form of Get, used for warmup and the operator surface.
// It shares Get's dedup and admission path; a task that is already resident
// is touched and returned without a loader call.
func (m *Manager) Load(ctx context.Context, taskID string) (types.Handle, error) {
	return m.acquire(ctx, taskID)
}

func (m *Manager) acquire(ctx context.Context, taskID string) (types.Handle, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, shuttingDownError{}
	}
	if e, ok := m.entries[taskID]; ok {
		m.recency.MoveToFront(e.elem)
		h := e.handle
		m.mu.Unlock()
		return h, nil
	}
	if p, ok := m.pending[taskID]; ok {
		m.mu.Unlock()
		return awaitLoad(ctx, p)
	}
	spec, option, err := m.table.Selected(taskID)
	if err != nil {
		m.mu.Unlock()
		return nil, ErrInvalidTask(taskID)
	}
	evicted, roomErr := m.makeRoomLocked(spec.DeclaredBytes)
	if roomErr != nil {
		m.mu.Unlock()
		m.releaseAll(evicted)
		return nil, roomErr
	}
	p := &pendingLoad{done: make(chan struct{}), declared: spec.DeclaredBytes}
	m.pending[taskID] = p
	m.reserved += spec.DeclaredBytes
	m.mu.Unlock()

	m.releaseAll(evicted)
	return m.runLoad(taskID, option, spec, p)
}

// runLoad invokes the loader outside the lock and commits (or rolls back) the
// pending placeholder. The loader call deliberately runs under a detached
// context: an abandoned caller must not discard a partially loaded resource,
// so the load completes and populates the cache for the next caller.
func (m *Manager) runLoad(taskID, option string, spec types.ResourceSpec, p *pendingLoad) (types.Handle, error) {
	m.publish(Event{Name: "load_start", TaskID: taskID, Fields: map[string]any{
		"option":         option,
		"declared_bytes": spec.DeclaredBytes,
	}})
	start := time.Now()
	res, err := m.loader.Load(context.Background(), spec)

	m.mu.Lock()
	delete(m.pending, taskID)
	m.reserved -= p.declared
	if err != nil {
		p.err = loadFailureError{taskID: taskID, cause: err}
		close(p.done)
		m.mu.Unlock()
		loadFailures.Inc()
		m.log.Error().Err(err).Str("task", taskID).Str("option", option).Msg("load failed")
		m.publish(Event{Name: "load_fail", TaskID: taskID, Fields: map[string]any{"error": err.Error()}})
		return nil, p.err
	}
	e := &entry{
		taskID:   taskID,
		option:   option,
		spec:     spec,
		handle:   res.Handle,
		actual:   res.ActualBytes,
		loadedAt: time.Now(),
	}
	e.elem = m.recency.PushFront(e)
	m.entries[taskID] = e
	m.used += res.ActualBytes
	m.loadsTotal++
	closed := m.closed
	p.handle = res.Handle
	close(p.done)
	m.mu.Unlock()

	loadsMetric.Inc()
	m.syncGauges()
	m.log.Info().Str("task", taskID).Str("option", option).
		Uint64("actual_bytes", res.ActualBytes).
		Dur("dur", time.Since(start)).Msg("load ready")
	m.publish(Event{Name: "load_ready", TaskID: taskID, Fields: map[string]any{
		"option":       option,
		"actual_bytes": res.ActualBytes,
		"dur_ms":       int(time.Since(start) / time.Millisecond),
	}})
	// A load racing Shutdown commits after the sweep; fold it into the sweep
	// by unloading immediately.
	if closed {
		_ = m.Unload(taskID)
	}
	return res.Handle, nil
}

// awaitLoad blocks on an in-flight load. A waiter whose context ends gives up
// on waiting, but the load itself continues.
func awaitLoad(ctx context.Context, p *pendingLoad) (types.Handle, error) {
	select {
	case <-p.done:
		return p.handle, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
