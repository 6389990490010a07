package manager

import (
	"time"

	"vramd/pkg/types"
)

// Status builds the operator status report: residents in recency order,
// byte accounting, and lifetime counters.
func (m *Manager) Status() types.StatusResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := types.StatusResponse{
		Residents:      make([]types.ResidentStatus, 0, len(m.entries)),
		CapacityBytes:  m.capacity,
		UsedBytes:      m.used,
		PendingLoads:   len(m.pending),
		LoadsTotal:     m.loadsTotal,
		EvictionsTotal: m.evictionsTotal,
		UptimeSeconds:  int64(time.Since(m.startTime) / time.Second),
	}
	if committed := m.used + m.reserved; committed < m.capacity {
		resp.AvailableBytes = m.capacity - committed
	}
	for el := m.recency.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		resp.Residents = append(resp.Residents, types.ResidentStatus{
			TaskID:        e.taskID,
			Option:        e.option,
			ActualBytes:   e.actual,
			DeclaredBytes: e.spec.DeclaredBytes,
			LoadedAtUnix:  e.loadedAt.Unix(),
		})
	}
	return resp
}

// ConfigSnapshot builds the operator view of the spec table.
func (m *Manager) ConfigSnapshot() types.ConfigResponse {
	return types.ConfigResponse{
		Tasks:            m.table.Snapshot(),
		OffloadThreshold: m.threshold,
		WarmupEnabled:    m.warmup,
	}
}
