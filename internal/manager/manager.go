package manager

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vramd/internal/device"
	"vramd/internal/registry"
	"vramd/pkg/types"
)

// Manager owns the cache of currently loaded resources: the recency order,
// the byte accounting, and the eviction and budget logic. It is a shared,
// long-lived object accessed by many concurrent callers.
type Manager struct {
	table     *registry.Table
	loader    Loader
	dev       device.CapacityProvider
	capacity  uint64
	threshold float64
	warmup    bool

	mu       sync.Mutex
	entries  map[string]*entry // resident resources
	recency  *list.List        // front = most recently used
	pending  map[string]*pendingLoad
	used     uint64 // sum of actual bytes across residents
	reserved uint64 // sum of declared bytes across pending loads
	closed   bool

	loadsTotal     uint64
	evictionsTotal uint64

	startTime time.Time
	log       zerolog.Logger
	publisher EventPublisher
}

// entry is the runtime record for a resident resource. The manager owns the
// handle exclusively until the entry is unloaded or evicted.
type entry struct {
	taskID   string
	option   string
	spec     types.ResourceSpec
	handle   types.Handle
	actual   uint64
	loadedAt time.Time
	elem     *list.Element
}

// pendingLoad is the in-flight placeholder for a task being loaded. Waiters
// block on done; handle and err are written before done is closed.
type pendingLoad struct {
	done     chan struct{}
	handle   types.Handle
	err      error
	declared uint64
}

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Table  *registry.Table
	Loader Loader
	Device device.CapacityProvider
	// CapacityBytes pins the admission ceiling; when zero the device is
	// probed once at construction.
	CapacityBytes    uint64
	OffloadThreshold float64
	WarmupEnabled    bool
	Logger           zerolog.Logger
	Publisher        EventPublisher
}

// New constructs a Manager. It fails when no capacity figure is available,
// since admission without a ceiling is meaningless.
func New(cfg Config) (*Manager, error) {
	if cfg.Table == nil {
		return nil, fmt.Errorf("manager: nil spec table")
	}
	if cfg.Loader == nil {
		return nil, fmt.Errorf("manager: nil loader")
	}
	if cfg.Device == nil {
		cfg.Device = device.Static{Bytes: cfg.CapacityBytes}
	}
	capBytes := cfg.CapacityBytes
	if capBytes == 0 {
		probed, err := cfg.Device.TotalCapacityBytes()
		if err != nil {
			return nil, fmt.Errorf("manager: probe device capacity: %w", err)
		}
		capBytes = probed
	}
	if capBytes == 0 {
		return nil, fmt.Errorf("manager: zero device capacity")
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Manager{
		table:     cfg.Table,
		loader:    cfg.Loader,
		dev:       cfg.Device,
		capacity:  capBytes,
		threshold: cfg.OffloadThreshold,
		warmup:    cfg.WarmupEnabled,
		entries:   make(map[string]*entry),
		recency:   list.New(),
		pending:   make(map[string]*pendingLoad),
		startTime: time.Now(),
		log:       cfg.Logger,
		publisher: pub,
	}, nil
}

// Ready reports whether the manager is accepting work.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Table exposes the spec table for read-only consumers (status, config API).
func (m *Manager) Table() *registry.Table { return m.table }
