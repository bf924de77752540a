package coordinator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/zisk-core/provercore/dist/wire"
)

// JobState enumerates a job's lifecycle.
type JobState string

const (
	JobQueued      JobState = "queued"
	JobDispatching JobState = "dispatching"
	JobRunning     JobState = "running"
	JobCompleted   JobState = "completed"
	JobFailed      JobState = "failed"
	JobAborted     JobState = "aborted"
)

// Job is the coordinator's record of one distributed proving job.
type Job struct {
	JobID           string
	BlockID         string
	Input           wire.LaunchProofRequest
	ComputeCapacity uint32
	AssignedWorkers []string
	State           JobState
	Results         map[string]wire.TaskResult // worker_id -> result, for jobs split across workers
}

// Manager owns the coordinator's job table and allocates workers to new jobs
// greedily, largest-capacity-first, never splitting a worker's capacity
// across jobs (all-or-nothing per job).
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	registry *Registry
}

// NewManager builds a Manager over registry.
func NewManager(registry *Registry) *Manager {
	return &Manager{jobs: make(map[string]*Job), registry: registry}
}

// LaunchProof creates a job and assigns it the smallest set of idle workers
// (largest-first) whose combined capacity covers req.ComputeCapacity. If the
// sum of idle capacity is insufficient, it returns InsufficientCapacity and
// creates no job.
func (m *Manager) LaunchProof(req wire.LaunchProofRequest) wire.LaunchProofResponse {
	idle := m.registry.IdleWorkers()

	var total uint32
	for _, w := range idle {
		total += w.Capacity
	}
	if total < req.ComputeCapacity {
		return wire.LaunchProofResponse{Code: wire.CodeInsufficientCapacity, Msg: "insufficient idle capacity"}
	}

	var chosen []string
	var acquired uint32
	for _, w := range idle {
		if acquired >= req.ComputeCapacity {
			break
		}
		chosen = append(chosen, w.ID)
		acquired += w.Capacity
	}

	jobID := uuid.NewString()
	job := &Job{
		JobID:           jobID,
		BlockID:         req.BlockID,
		Input:           req,
		ComputeCapacity: req.ComputeCapacity,
		AssignedWorkers: chosen,
		State:           JobDispatching,
		Results:         make(map[string]wire.TaskResult),
	}

	m.mu.Lock()
	m.jobs[jobID] = job
	m.mu.Unlock()

	m.registry.MarkWorking(jobID, chosen)
	job.State = JobRunning

	return wire.LaunchProofResponse{JobID: jobID, Code: wire.CodeOK}
}

// TaskResult records a worker's result for a job, frees its slot, and
// transitions the job to Completed once every assigned worker has reported
// (or Failed if any reported an error).
func (m *Manager) TaskResult(res wire.TaskResult, workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[res.JobID]
	if !ok {
		return
	}
	job.Results[workerID] = res
	m.registry.MarkIdle(workerID)

	if res.Error != "" {
		job.State = JobFailed
		return
	}
	if len(job.Results) >= len(job.AssignedWorkers) {
		allOK := true
		for _, r := range job.Results {
			if r.Error != "" {
				allOK = false
				break
			}
		}
		if allOK {
			job.State = JobCompleted
		} else {
			job.State = JobFailed
		}
	}
}

// Abort marks jobID Aborted. Callers are responsible for broadcasting the
// wire.Abort message to every assigned worker; Abort here only updates
// coordinator-side bookkeeping and frees the workers back to idle.
func (m *Manager) Abort(jobID string) {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return
	}
	job.State = JobAborted
	for _, id := range job.AssignedWorkers {
		m.registry.MarkIdle(id)
	}
}

// HandleEviction handles a job's assigned worker being evicted on heartbeat
// timeout (S4): if the evicted worker had already reported its result, its
// slot was simply freed by EvictStale and no job state change is needed. A
// terminal job (Completed/Aborted/Failed) is left alone. Otherwise the job's
// remaining allocation lost that worker's capacity; if idle workers can top
// it back up to ComputeCapacity, the job proceeds with the refilled worker
// set, otherwise it fails with InsufficientCapacity rather than sitting
// Queued forever.
func (m *Manager) HandleEviction(ev EvictedWorker) {
	if ev.JobID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[ev.JobID]
	if !ok {
		return
	}
	if _, hasResult := job.Results[ev.ID]; hasResult {
		return
	}
	if job.State == JobCompleted || job.State == JobAborted || job.State == JobFailed {
		return
	}

	remaining := make([]string, 0, len(job.AssignedWorkers))
	var remainingCapacity uint32
	for _, id := range job.AssignedWorkers {
		if id == ev.ID {
			continue
		}
		if w, ok := m.registry.Get(id); ok {
			remaining = append(remaining, id)
			remainingCapacity += w.Capacity
		}
	}

	if remainingCapacity >= job.ComputeCapacity {
		job.AssignedWorkers = remaining
		return
	}

	needed := job.ComputeCapacity - remainingCapacity
	idle := m.registry.IdleWorkers()
	var topUp []string
	var acquired uint32
	for _, w := range idle {
		if acquired >= needed {
			break
		}
		topUp = append(topUp, w.ID)
		acquired += w.Capacity
	}

	if acquired < needed {
		job.State = JobFailed
		job.Results[ev.ID] = wire.TaskResult{JobID: ev.JobID, Error: wire.CodeInsufficientCapacity}
		return
	}

	m.registry.MarkWorking(ev.JobID, topUp)
	job.AssignedWorkers = append(remaining, topUp...)
	job.State = JobRunning
}

// Get returns a copy of job jobID's current state, if it exists.
func (m *Manager) Get(jobID string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *j, true
}
