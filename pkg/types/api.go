package types

// ConfigResponse is returned by GET /config.
type ConfigResponse struct {
	// Spec table, one entry per task.
	Tasks []TaskConfig `json:"tasks"`
	// Fraction of device capacity that selected options may collectively declare.
	// example: 0.85
	OffloadThreshold float64 `json:"offload_threshold" example:"0.85"`
	// Whether every task is loaded eagerly at startup.
	// example: false
	WarmupEnabled bool `json:"warmup_enabled" example:"false"`
	// Opaque batch-size hints passed through from configuration.
	BatchHints map[string]int `json:"batch_hints,omitempty"`
}

// ResidentStatus summarizes one currently loaded task for GET /status.
type ResidentStatus struct {
	// Task whose resource is resident.
	// example: transcribe
	TaskID string `json:"task_id" example:"transcribe"`
	// Option name that was selected when the resource loaded.
	// example: large-v3
	Option string `json:"option" example:"large-v3"`
	// Measured device memory usage in bytes.
	// example: 10737418240
	ActualBytes uint64 `json:"actual_bytes" example:"10737418240"`
	// Advertised requirement the admission decision used.
	// example: 10737418240
	DeclaredBytes uint64 `json:"declared_bytes" example:"10737418240"`
	// Unix seconds when the load committed.
	// example: 1700000000
	LoadedAtUnix int64 `json:"loaded_at_unix" example:"1700000000"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Currently resident tasks, most recently used first.
	Residents []ResidentStatus `json:"residents"`
	// Total device capacity in bytes.
	// example: 17179869184
	CapacityBytes uint64 `json:"capacity_bytes" example:"17179869184"`
	// Sum of measured bytes across residents.
	// example: 10737418240
	UsedBytes uint64 `json:"used_bytes" example:"10737418240"`
	// Capacity minus used and pending reservations.
	// example: 6442450944
	AvailableBytes uint64 `json:"available_bytes" example:"6442450944"`
	// Number of loads currently in flight.
	// example: 0
	PendingLoads int `json:"pending_loads" example:"0"`
	// Total loads committed since startup.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total evictions since startup.
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// Uptime in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// BudgetRow is the per-task breakdown of a budget report.
type BudgetRow struct {
	// Task identifier.
	// example: transcribe
	TaskID string `json:"task_id" example:"transcribe"`
	// Selected option name.
	// example: large-v3
	Option string `json:"option" example:"large-v3"`
	// Declared bytes of the selected option.
	// example: 10737418240
	DeclaredBytes uint64 `json:"declared_bytes" example:"10737418240"`
}

// BudgetReport is returned by GET /validate. It is computed purely from the
// spec table's current selections and the measured device capacity.
type BudgetReport struct {
	// True when the declared total fits under capacity * threshold.
	// example: false
	Valid bool `json:"valid" example:"false"`
	// Sum of declared bytes across all selected options.
	// example: 16106127360
	DeclaredTotalBytes uint64 `json:"declared_total_bytes" example:"16106127360"`
	// Total device capacity in bytes.
	// example: 17179869184
	CapacityBytes uint64 `json:"capacity_bytes" example:"17179869184"`
	// capacity * offload_threshold, the admissible declared total.
	// example: 14602888806
	AllowedBytes uint64 `json:"allowed_bytes" example:"14602888806"`
	// Threshold the report was computed with.
	// example: 0.85
	OffloadThreshold float64 `json:"offload_threshold" example:"0.85"`
	// Per-task breakdown.
	Tasks []BudgetRow `json:"tasks"`
}

// SelectRequest is the body of POST /select.
type SelectRequest struct {
	// Task to reselect.
	// example: transcribe
	TaskID string `json:"task_id" example:"transcribe"`
	// Option to select for the task.
	// example: base
	Option string `json:"option" example:"base"`
}

// TaskRequest is the body of POST /load and POST /unload.
type TaskRequest struct {
	// Task identifier.
	// example: transcribe
	TaskID string `json:"task_id" example:"transcribe"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: unknown task: captions
	Error string `json:"error" example:"unknown task: captions"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
