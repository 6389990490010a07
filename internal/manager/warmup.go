package manager

import "context"

// Warmup eagerly loads every task in the spec table when warmup is enabled.
// Tasks load one at a time, least task id first, so early warmups are not
// evicted by later ones racing for capacity. A failure for one task is
// logged and does not abort the rest.
func (m *Manager) Warmup(ctx context.Context) {
	if !m.warmup {
		return
	}
	for _, taskID := range m.table.TaskIDs() {
		if ctx.Err() != nil {
			m.log.Warn().Err(ctx.Err()).Msg("warmup interrupted")
			return
		}
		if _, err := m.Load(ctx, taskID); err != nil {
			m.log.Warn().Err(err).Str("task", taskID).Msg("warmup load failed")
			continue
		}
	}
}
