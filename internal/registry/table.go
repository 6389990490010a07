// Package registry holds the resource spec table: the per-task mapping from
// option names to resource specs, plus the currently selected option for each
// task. The table is built once from configuration and is immutable except
// for the selections, which change only through Reselect.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"vramd/internal/config"
	"vramd/pkg/types"
)

var (
	ErrUnknownTask   = errors.New("unknown task")
	ErrUnknownOption = errors.New("unknown option")
)

const bytesPerGB = uint64(1) << 30

type task struct {
	selected string
	options  map[string]types.ResourceSpec
}

// Table is the resource spec table. Selections are the only mutable part and
// are guarded by an internal lock so budget validation can read a consistent
// snapshot without contending with cache mutations.
type Table struct {
	mu    sync.RWMutex
	tasks map[string]*task
}

// FromConfig builds a Table from a validated configuration. It re-checks the
// selected-option invariant so a Table can never exist in a malformed state.
func FromConfig(cfg config.Config) (*Table, error) {
	t := &Table{tasks: make(map[string]*task, len(cfg.Tasks))}
	for id, tc := range cfg.Tasks {
		if _, ok := tc.Options[tc.Selected]; !ok {
			return nil, fmt.Errorf("task %q: selected option %q not in options", id, tc.Selected)
		}
		opts := make(map[string]types.ResourceSpec, len(tc.Options))
		for name, o := range tc.Options {
			opts[name] = types.ResourceSpec{
				ModelID:        o.ModelID,
				Backend:        o.Backend,
				DeclaredBytes:  uint64(o.VRAMGB * float64(bytesPerGB)),
				SpeedClass:     o.SpeedClass,
				Description:    o.Description,
				ThroughputHint: o.FPS,
			}
		}
		t.tasks[id] = &task{selected: tc.Selected, options: opts}
	}
	return t, nil
}

// Has reports whether the task exists.
func (t *Table) Has(taskID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.tasks[taskID]
	return ok
}

// Selected returns the currently selected spec for a task along with the
// selected option name.
func (t *Table) Selected(taskID string) (types.ResourceSpec, string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tk, ok := t.tasks[taskID]
	if !ok {
		return types.ResourceSpec{}, "", fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	return tk.options[tk.selected], tk.selected, nil
}

// Reselect atomically changes the selected option for a task. The selection
// is validated before any mutation.
func (t *Table) Reselect(taskID, option string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if _, ok := tk.options[option]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownOption, taskID, option)
	}
	tk.selected = option
	return nil
}

// TaskIDs returns all task identifiers in sorted order.
func (t *Table) TaskIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.tasks))
	for id := range t.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a deep copy of the table for reporting.
func (t *Table) Snapshot() []types.TaskConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.TaskConfig, 0, len(t.tasks))
	for id, tk := range t.tasks {
		opts := make(map[string]types.ResourceSpec, len(tk.options))
		for name, spec := range tk.options {
			opts[name] = spec
		}
		out = append(out, types.TaskConfig{TaskID: id, Selected: tk.selected, Options: opts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}
