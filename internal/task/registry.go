package task

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownTaskType is returned when no decoder is registered for a record.
var ErrUnknownTaskType = errors.New("unknown task type")

// Decoder rebuilds a runnable task from its stored record.
type Decoder func(rec Record) (Task, error)

// Registry maps task types to decoders used during recovery.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register installs the decoder for taskType, replacing any previous one.
func (r *Registry) Register(taskType string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[taskType] = d
}

// Decode rebuilds rec.
func (r *Registry) Decode(rec Record) (Task, error) {
	r.mu.RLock()
	d, ok := r.decoders[rec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, rec.Type)
	}
	return d(rec)
}
