package instance

import (
	"fmt"
	"sort"
)

// Key identifies one state machine's slot in the Registry.
type Key struct {
	AirgroupID uint32
	AirID      uint32
}

// Registry maps (airgroup_id, air_id) to the ComponentBuilder responsible for
// that air. It owns no mutable state after construction: every lookup is a
// plain map read, safe for concurrent use by multiple scheduler goroutines.
type Registry struct {
	builders map[Key]ComponentBuilder
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[Key]ComponentBuilder)}
}

// Register binds a ComponentBuilder to (airgroupID, airID). It returns an
// error if that key is already bound — registering two builders for the same
// air is a configuration bug, not a runtime condition to silently resolve.
func (r *Registry) Register(airgroupID, airID uint32, builder ComponentBuilder) error {
	key := Key{AirgroupID: airgroupID, AirID: airID}
	if _, exists := r.builders[key]; exists {
		return fmt.Errorf("instance: builder already registered for airgroup=%d air=%d", airgroupID, airID)
	}
	r.builders[key] = builder
	return nil
}

// Lookup returns the builder bound to (airgroupID, airID), if any.
func (r *Registry) Lookup(airgroupID, airID uint32) (ComponentBuilder, bool) {
	b, ok := r.builders[Key{AirgroupID: airgroupID, AirID: airID}]
	return b, ok
}

// Keys returns every registered (airgroup_id, air_id) pair, sorted for
// deterministic iteration (by airgroup_id then air_id).
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.builders))
	for k := range r.builders {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AirgroupID != keys[j].AirgroupID {
			return keys[i].AirgroupID < keys[j].AirgroupID
		}
		return keys[i].AirID < keys[j].AirID
	})
	return keys
}

// Len reports how many builders are registered.
func (r *Registry) Len() int { return len(r.builders) }
