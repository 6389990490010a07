package manager

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"vramd/internal/config"
	"vramd/internal/device"
	"vramd/internal/registry"
	"vramd/pkg/types"
)

const gib = uint64(1) << 30

// fakeLoader is an in-memory Loader for tests. It counts load/unload calls,
// can fail or block on demand, and reports configurable actual sizes.
type fakeLoader struct {
	mu        sync.Mutex
	loadCalls map[string]int // by model id
	unloads   []types.Handle
	loadErr   map[string]error // by model id
	actual    map[string]uint64
	unloadErr error
	// when set, Load blocks until the channel is closed
	gate chan struct{}
	seq  int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		loadCalls: make(map[string]int),
		loadErr:   make(map[string]error),
		actual:    make(map[string]uint64),
	}
}

func (f *fakeLoader) Load(ctx context.Context, spec types.ResourceSpec) (LoadResult, error) {
	f.mu.Lock()
	f.loadCalls[spec.ModelID]++
	gate := f.gate
	f.seq++
	handle := fmt.Sprintf("h-%s-%d", spec.ModelID, f.seq)
	errOut := f.loadErr[spec.ModelID]
	actual, ok := f.actual[spec.ModelID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if errOut != nil {
		return LoadResult{}, errOut
	}
	if !ok {
		actual = spec.DeclaredBytes
	}
	return LoadResult{Handle: handle, ActualBytes: actual}, nil
}

func (f *fakeLoader) Unload(ctx context.Context, handle types.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloads = append(f.unloads, handle)
	return f.unloadErr
}

func (f *fakeLoader) calls(modelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls[modelID]
}

func (f *fakeLoader) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.loadCalls {
		n += c
	}
	return n
}

func (f *fakeLoader) unloaded() []types.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Handle, len(f.unloads))
	copy(out, f.unloads)
	return out
}

// singleOptionTask builds a task with one option named "default" requiring
// the given GB figure.
func singleOptionTask(gb float64) config.Task {
	return config.Task{
		Selected: "default",
		Options: map[string]config.Option{
			"default": {ModelID: "m-default", Backend: "llamacpp", VRAMGB: gb},
		},
	}
}

func newTestTable(t *testing.T, tasks map[string]config.Task) *registry.Table {
	t.Helper()
	// Give options distinct model ids per task so the fake loader can count
	// per-task loads.
	for id, tc := range tasks {
		for name, opt := range tc.Options {
			if opt.ModelID == "" || opt.ModelID == "m-default" {
				opt.ModelID = "m-" + id + "-" + name
				tc.Options[name] = opt
			}
		}
	}
	table, err := registry.FromConfig(config.Config{Tasks: tasks})
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return table
}

func newTestManager(t *testing.T, tasks map[string]config.Task, capacityBytes uint64, fl *fakeLoader) *Manager {
	t.Helper()
	m, err := New(Config{
		Table:            newTestTable(t, tasks),
		Loader:           fl,
		Device:           device.Static{Bytes: capacityBytes},
		OffloadThreshold: 0.85,
		Logger:           zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}
