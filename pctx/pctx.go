// Package pctx implements the Proof Context (C7): the shared
// publics/challenges/AirInstance repository every scheduler task and worker
// reads from and, on completion, writes into.
package pctx

import (
	"sync"

	"github.com/zisk-core/provercore/instance"
)

// GlobalInfo carries static, read-only information about the program being
// proved (air layouts, row counts) that witness routines consult but never
// mutate once the proof context is built.
type GlobalInfo struct {
	Airgroups map[uint32]AirgroupInfo
}

// AirgroupInfo describes the airs within one airgroup.
type AirgroupInfo struct {
	Airs map[uint32]AirInfo
}

// AirInfo carries the fixed shape of one air.
type AirInfo struct {
	Rows  uint32
	Width uint32
}

// ProofContext is the shared state a job's scheduler tasks, and later its
// aggregator, operate over. All read/write access to the repository goes
// through its RWMutex-guarded methods, and to the table-multiplicity vectors
// through methods guarded by a plain mutex;
// writes happen only on task completion, reads are frequent and cheap —
// never hold the lock across an I/O call.
type ProofContext struct {
	Publics    []uint64
	Challenges []uint64
	GlobalInfo GlobalInfo

	repo *AirInstanceRepository

	multMu   sync.Mutex
	multVecs map[uint64][]uint64 // global_idx -> accumulated table multiplicity vector
}

// New builds an empty ProofContext.
func New(publics, challenges []uint64, info GlobalInfo) *ProofContext {
	return &ProofContext{
		Publics:    publics,
		Challenges: challenges,
		GlobalInfo: info,
		repo:       NewAirInstanceRepository(),
		multVecs:   make(map[uint64][]uint64),
	}
}

// Repository exposes the AirInstance repository.
func (p *ProofContext) Repository() *AirInstanceRepository { return p.repo }

// DistributeMultiplicity reduces a local multiplicity vector into the
// globally shared vector for globalIdx, summing element-wise. This is the
// distributed extension: in the local-scheduler case every "worker" is the
// same process, so this degenerates to an in-process atomic-style merge.
func (p *ProofContext) DistributeMultiplicity(globalIdx uint64, vec []uint64) {
	p.multMu.Lock()
	defer p.multMu.Unlock()

	existing, ok := p.multVecs[globalIdx]
	if !ok {
		merged := make([]uint64, len(vec))
		copy(merged, vec)
		p.multVecs[globalIdx] = merged
		return
	}
	if len(vec) > len(existing) {
		grown := make([]uint64, len(vec))
		copy(grown, existing)
		existing = grown
	}
	for i, v := range vec {
		existing[i] += v
	}
	p.multVecs[globalIdx] = existing
}

// MultiplicityVector returns the accumulated multiplicity vector for
// globalIdx, or nil if nothing has been distributed to it yet. The returned
// slice is a defensive copy.
func (p *ProofContext) MultiplicityVector(globalIdx uint64) []uint64 {
	p.multMu.Lock()
	defer p.multMu.Unlock()

	vec, ok := p.multVecs[globalIdx]
	if !ok {
		return nil
	}
	out := make([]uint64, len(vec))
	copy(out, vec)
	return out
}

// AirInstanceRepository maps global_idx -> AirInstance, guarded by a
// reader-writer lock: writes occur only once, on task completion; reads
// happen throughout aggregation and are expected to be frequent.
type AirInstanceRepository struct {
	mu   sync.RWMutex
	byID map[uint64]*instance.AirInstance
}

// NewAirInstanceRepository builds an empty repository.
func NewAirInstanceRepository() *AirInstanceRepository {
	return &AirInstanceRepository{byID: make(map[uint64]*instance.AirInstance)}
}

// Put installs ai at its GlobalIdx. Called exactly once per instance, on
// scheduler-task completion.
func (r *AirInstanceRepository) Put(ai *instance.AirInstance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[ai.GlobalIdx] = ai
}

// Get retrieves the AirInstance at globalIdx, if present.
func (r *AirInstanceRepository) Get(globalIdx uint64) (*instance.AirInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ai, ok := r.byID[globalIdx]
	return ai, ok
}

// ByAirgroup returns every AirInstance belonging to airgroupID, in
// ascending GlobalIdx order — the grouping the aggregator (C11) needs.
func (r *AirInstanceRepository) ByAirgroup(airgroupID uint32) []*instance.AirInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*instance.AirInstance
	for _, ai := range r.byID {
		if ai.AirgroupID == airgroupID {
			out = append(out, ai)
		}
	}
	// insertion sort by GlobalIdx: repositories hold at most a few thousand
	// instances per job, determinism matters more than asymptotics here.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].GlobalIdx < out[j-1].GlobalIdx; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// All returns every stored AirInstance in no particular order. Aggregation
// uses it only to discover which airgroup ids are present before grouping
// each one properly via ByAirgroup.
func (r *AirInstanceRepository) All() []*instance.AirInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*instance.AirInstance, 0, len(r.byID))
	for _, ai := range r.byID {
		out = append(out, ai)
	}
	return out
}

// Len reports how many AirInstances are currently stored.
func (r *AirInstanceRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
