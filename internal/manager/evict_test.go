package manager

import (
	"context"
	"testing"

	"vramd/internal/config"
)

func TestEvictsLRUWhenFull(t *testing.T) {
	fl := newFakeLoader()
	tasks := map[string]config.Task{
		"a": singleOptionTask(6),
		"b": singleOptionTask(6),
		"c": singleOptionTask(6),
	}
	// fits exactly two 6GiB resources
	m := newTestManager(t, tasks, 12*gib, fl)
	ctx := context.Background()

	if _, err := m.Get(ctx, "a"); err != nil {
		t.Fatalf("get a: %v", err)
	}
	if _, err := m.Get(ctx, "b"); err != nil {
		t.Fatalf("get b: %v", err)
	}
	// touch a so b becomes LRU
	if _, err := m.Get(ctx, "a"); err != nil {
		t.Fatalf("touch a: %v", err)
	}
	if _, err := m.Get(ctx, "c"); err != nil {
		t.Fatalf("get c: %v", err)
	}

	st := m.Status()
	if len(st.Residents) != 2 {
		t.Fatalf("expected 2 residents, got %d", len(st.Residents))
	}
	resident := map[string]bool{}
	for _, r := range st.Residents {
		resident[r.TaskID] = true
	}
	if !resident["a"] || !resident["c"] || resident["b"] {
		t.Fatalf("expected a and c resident, b evicted; got %v", resident)
	}
	if st.EvictionsTotal != 1 {
		t.Fatalf("expected 1 eviction, got %d", st.EvictionsTotal)
	}
	if got := len(fl.unloaded()); got != 1 {
		t.Fatalf("expected 1 unload call, got %d", got)
	}
}

func TestEvictionFreesBeforeLoad(t *testing.T) {
	// capacity 16 GiB; A actual 8 GiB resident; loading B declaring 10 GiB
	// must evict A first; final state has only B.
	fl := newFakeLoader()
	tasks := map[string]config.Task{
		"a": singleOptionTask(8),
		"b": singleOptionTask(10),
	}
	m := newTestManager(t, tasks, 16*gib, fl)
	ctx := context.Background()

	if _, err := m.Get(ctx, "a"); err != nil {
		t.Fatalf("get a: %v", err)
	}
	if _, err := m.Get(ctx, "b"); err != nil {
		t.Fatalf("get b: %v", err)
	}
	st := m.Status()
	if len(st.Residents) != 1 || st.Residents[0].TaskID != "b" {
		t.Fatalf("expected only b resident, got %+v", st.Residents)
	}
	if st.UsedBytes != 10*gib {
		t.Fatalf("expected 10GiB used, got %d", st.UsedBytes)
	}
}

func TestResourceExhausted(t *testing.T) {
	fl := newFakeLoader()
	tasks := map[string]config.Task{
		"small": singleOptionTask(2),
		"huge":  singleOptionTask(64),
	}
	m := newTestManager(t, tasks, 16*gib, fl)
	ctx := context.Background()

	if _, err := m.Get(ctx, "small"); err != nil {
		t.Fatalf("get small: %v", err)
	}
	_, err := m.Get(ctx, "huge")
	if err == nil || !IsResourceExhausted(err) {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
	// the failed admission still evicted everything smaller
	st := m.Status()
	if len(st.Residents) != 0 {
		t.Fatalf("expected empty cache after exhaustion sweep, got %+v", st.Residents)
	}
	if fl.calls("m-huge-default") != 0 {
		t.Fatalf("loader must not be called when capacity cannot be freed")
	}
}

func TestEvictLRUExplicit(t *testing.T) {
	fl := newFakeLoader()
	m := newTestManager(t, map[string]config.Task{"a": singleOptionTask(1)}, 16*gib, fl)
	if _, ok := m.EvictLRU(); ok {
		t.Fatalf("expected no eviction from empty cache")
	}
	if _, err := m.Get(context.Background(), "a"); err != nil {
		t.Fatalf("get: %v", err)
	}
	id, ok := m.EvictLRU()
	if !ok || id != "a" {
		t.Fatalf("expected eviction of a, got %q ok=%v", id, ok)
	}
	if len(fl.unloaded()) != 1 {
		t.Fatalf("expected 1 unload")
	}
}

func TestUnloadFailureStillRemovesBookkeeping(t *testing.T) {
	fl := newFakeLoader()
	fl.unloadErr = context.DeadlineExceeded
	m := newTestManager(t, map[string]config.Task{"a": singleOptionTask(1)}, 16*gib, fl)
	if _, err := m.Get(context.Background(), "a"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := m.Unload("a"); err != nil {
		t.Fatalf("unload must be non-fatal, got %v", err)
	}
	if st := m.Status(); len(st.Residents) != 0 || st.UsedBytes != 0 {
		t.Fatalf("bookkeeping must be removed despite unload failure: %+v", st)
	}
}
