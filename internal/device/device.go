// Package device answers one question: how much device memory is there in
// total. The budget validator queries it at validation time rather than
// caching a figure at startup.
package device

// CapacityProvider reports total device memory.
type CapacityProvider interface {
	TotalCapacityBytes() (uint64, error)
}

// Static is a provider with a fixed capacity, used when the configuration
// pins the figure or in tests.
type Static struct {
	Bytes uint64
}

func (s Static) TotalCapacityBytes() (uint64, error) { return s.Bytes, nil }
