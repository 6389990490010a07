package types

// Handle is an opaque reference to a loaded resource. It is produced by a
// Loader, owned by the manager while the resource is resident, and meaningful
// only to the Loader that produced it.
type Handle any

// ResourceSpec identifies one loadable option for a task. Immutable once
// constructed.
type ResourceSpec struct {
	// Opaque identifier of the weights/artifact (often a file path).
	// example: /models/whisper-large-v3.gguf
	ModelID string `json:"model_id" example:"/models/whisper-large-v3.gguf"`
	// Backend tag naming the runtime that should load this artifact.
	// example: llamacpp
	Backend string `json:"backend" example:"llamacpp"`
	// Advertised device memory requirement in bytes.
	// example: 10737418240
	DeclaredBytes uint64 `json:"declared_bytes" example:"10737418240"`
	// Coarse speed label for display.
	// example: slow
	SpeedClass string `json:"speed_class,omitempty" example:"slow"`
	// Free-text description.
	Description string `json:"description,omitempty"`
	// Optional throughput hint (e.g. frames per second). Nil when unknown.
	// example: 12.5
	ThroughputHint *float64 `json:"throughput_hint,omitempty" example:"12.5"`
}

// TaskConfig holds the selectable options for one task slot.
// Invariant: Selected is always a key of Options.
type TaskConfig struct {
	// Task identifier.
	// example: transcribe
	TaskID string `json:"task_id" example:"transcribe"`
	// Name of the currently selected option.
	// example: large-v3
	Selected string `json:"selected" example:"large-v3"`
	// Option name -> spec.
	Options map[string]ResourceSpec `json:"options"`
}
