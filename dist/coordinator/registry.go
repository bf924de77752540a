// Package coordinator implements the coordinator half of the Distributed
// Coordinator/Worker component (C10): worker registration/heartbeat
// tracking, greedy largest-first capacity allocation, and the job state
// machine.
package coordinator

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zisk-core/provercore/dist/wire"
)

// Clock abstracts time.Now so heartbeat-timeout eviction can be tested
// deterministically (scenario S4) without real sleeps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Worker is the coordinator's view of one registered worker.
type Worker struct {
	ID            string
	Capacity      uint32
	State         wire.WorkerState
	LastHeartbeat time.Time
	AssignedJob   string // "" if none
}

// Registry is the coordinator's mutex-guarded worker table. No lock is held
// across an I/O call.
type Registry struct {
	mu      sync.Mutex
	workers map[string]*Worker
	clock   Clock
}

// NewRegistry builds an empty Registry using clock for heartbeat timing.
func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Registry{workers: make(map[string]*Worker), clock: clock}
}

// Register handles a Register handshake: if req.WorkerID is empty, a new id
// is assigned; otherwise that id is echoed back, creating the worker if it is
// unknown or refreshing the existing worker's capacity and heartbeat (a
// reconnect). Either way the worker ends up Idle.
func (r *Registry) Register(req wire.Register) wire.RegisterAck {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := req.WorkerID
	if id == "" {
		id = uuid.NewString()
	}
	w, ok := r.workers[id]
	if !ok {
		w = &Worker{ID: id}
		r.workers[id] = w
	}
	w.Capacity = req.Capacity.ComputeUnits
	w.State = wire.WorkerIdle
	w.LastHeartbeat = r.clock.Now()
	return wire.RegisterAck{WorkerID: id}
}

// Heartbeat updates a worker's last-seen time and reported state.
func (r *Registry) Heartbeat(hb wire.Heartbeat) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workers[hb.WorkerID]
	if !ok {
		return false
	}
	w.LastHeartbeat = r.clock.Now()
	w.State = hb.State
	return true
}

// IdleWorkers returns every currently-idle worker, sorted by descending
// capacity (largest first) — the order the greedy job allocator consumes.
func (r *Registry) IdleWorkers() []*Worker {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Worker
	for _, w := range r.workers {
		if w.State == wire.WorkerIdle {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Capacity > out[j].Capacity })
	return out
}

// MarkWorking assigns worker ids to jobID and flips their state to Working.
func (r *Registry) MarkWorking(jobID string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if w, ok := r.workers[id]; ok {
			w.State = wire.WorkerWorking
			w.AssignedJob = jobID
		}
	}
}

// MarkIdle returns a worker to idle, clearing its job assignment.
func (r *Registry) MarkIdle(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.workers[id]; ok {
		w.State = wire.WorkerIdle
		w.AssignedJob = ""
	}
}

// EvictStale marks every worker whose last heartbeat is older than timeout
// as Disconnected, returning the ids evicted (and, for each, the job it was
// assigned to, if any) so the caller can re-queue affected tasks.
func (r *Registry) EvictStale(timeout time.Duration) []EvictedWorker {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var evicted []EvictedWorker
	for _, w := range r.workers {
		if w.State == wire.WorkerDisconnected {
			continue
		}
		if now.Sub(w.LastHeartbeat) > timeout {
			evicted = append(evicted, EvictedWorker{ID: w.ID, JobID: w.AssignedJob})
			w.State = wire.WorkerDisconnected
			w.AssignedJob = ""
		}
	}
	return evicted
}

// EvictedWorker reports one worker evicted by EvictStale.
type EvictedWorker struct {
	ID    string
	JobID string
}

// Get returns a copy of worker id's state, if registered.
func (r *Registry) Get(id string) (Worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	if !ok {
		return Worker{}, false
	}
	return *w, true
}

// Len reports how many workers are registered (any state).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}
