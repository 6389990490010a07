package manager

import (
	"vramd/internal/device"
	"vramd/internal/registry"
	"vramd/pkg/types"
)

// BudgetReport computes the budget report for a spec table: the declared
// bytes of every task's currently selected option, summed and compared
// against device capacity multiplied by the offload threshold. It is a pure
// computation over the table snapshot and the measured capacity and exists
// separately from the cache so an operator can run it without triggering any
// loads or evictions.
func BudgetReport(table *registry.Table, dev device.CapacityProvider, threshold float64) (types.BudgetReport, error) {
	capBytes, err := dev.TotalCapacityBytes()
	if err != nil {
		return types.BudgetReport{}, err
	}
	snap := table.Snapshot()
	report := types.BudgetReport{
		CapacityBytes:    capBytes,
		AllowedBytes:     uint64(float64(capBytes) * threshold),
		OffloadThreshold: threshold,
		Tasks:            make([]types.BudgetRow, 0, len(snap)),
	}
	for _, tc := range snap {
		declared := tc.Options[tc.Selected].DeclaredBytes
		report.DeclaredTotalBytes += declared
		report.Tasks = append(report.Tasks, types.BudgetRow{
			TaskID:        tc.TaskID,
			Option:        tc.Selected,
			DeclaredBytes: declared,
		})
	}
	report.Valid = report.DeclaredTotalBytes <= report.AllowedBytes
	return report, nil
}

// ValidateBudget runs the budget validator against the manager's table and
// device. Never touches the cache.
func (m *Manager) ValidateBudget() (types.BudgetReport, error) {
	return BudgetReport(m.table, m.dev, m.threshold)
}
