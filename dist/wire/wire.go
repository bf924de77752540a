// Package wire defines the plain-struct messages exchanged between a
// coordinator and its workers. They are marshaled with encoding/json (via
// the custom "json" grpc codec registered in dist/codec.go) rather than with
// generated protobuf types — this core treats gRPC as a transport/framing
// choice, not a dependency on the protobuf IDL compiler.
package wire

// ComputeCapacity advertises a worker's available compute units.
type ComputeCapacity struct {
	ComputeUnits uint32 `json:"compute_units"`
}

// Register is the worker→coordinator registration handshake. WorkerID is
// empty on first registration; the coordinator assigns one and the worker
// reuses it on reconnect.
type Register struct {
	WorkerID string          `json:"worker_id,omitempty"`
	Capacity ComputeCapacity `json:"compute_capacity"`
}

// RegisterAck echoes or assigns the worker's id.
type RegisterAck struct {
	WorkerID string `json:"worker_id"`
}

// WorkerState enumerates a worker's lifecycle states.
type WorkerState string

const (
	WorkerIdle         WorkerState = "idle"
	WorkerWorking      WorkerState = "working"
	WorkerDisconnected WorkerState = "disconnected"
)

// Heartbeat is sent periodically by a worker to report its current state.
type Heartbeat struct {
	WorkerID string      `json:"worker_id"`
	State    WorkerState `json:"state"`
}

// InputMode selects how ExecuteTask's input is carried.
type InputMode string

const (
	InputNone InputMode = "none"
	InputPath InputMode = "path"
	InputData InputMode = "data"
)

// Allocation is the row range a worker was assigned within a job.
type Allocation struct {
	RangeStart uint64 `json:"range_start"`
	RangeEnd   uint64 `json:"range_end"`
}

// ExecuteTask is the coordinator→worker dispatch message.
type ExecuteTask struct {
	JobID      string     `json:"job_id"`
	BlockID    string     `json:"block_id"`
	InputMode  InputMode  `json:"input_mode"`
	InputPath  string     `json:"input_path,omitempty"`
	InputData  []byte     `json:"input_data,omitempty"`
	Allocation Allocation `json:"allocation"`
}

// Abort cancels an in-flight job on a worker.
type Abort struct {
	JobID string `json:"job_id"`
}

// Shutdown tells a worker to stop accepting new tasks and disconnect.
type Shutdown struct{}

// TaskResult is the worker→coordinator report of a finished (or failed)
// task.
type TaskResult struct {
	JobID        string `json:"job_id"`
	PartialProof []byte `json:"partial_proof,omitempty"`
	Error        string `json:"error,omitempty"`
}

// LaunchProofRequest starts a new distributed job.
type LaunchProofRequest struct {
	BlockID         string    `json:"block_id"`
	ComputeCapacity uint32    `json:"compute_capacity"`
	InputMode       InputMode `json:"input_mode"`
	InputPath       string    `json:"input_path,omitempty"`
	SimulatedNode   string    `json:"simulated_node,omitempty"`
}

// LaunchProofResponse reports the outcome of a LaunchProof call.
type LaunchProofResponse struct {
	JobID string `json:"job_id,omitempty"`
	Code  string `json:"code"`
	Msg   string `json:"msg,omitempty"`
}

// Failure taxonomy codes for the gRPC surface — never more detail than this
// leaks to a client; the full internal error is always logged separately.
const (
	CodeInvalidRequest        = "invalid_request"
	CodeNotFoundOrInaccessible = "not_found_or_inaccessible"
	CodeInvalidArgument       = "invalid_argument"
	CodeInsufficientCapacity  = "insufficient_capacity"
	CodeProverError           = "prover_error"
	CodeInternal              = "internal"
	CodeOK                    = "ok"
)

// Status is the sanitized outcome returned across the gRPC boundary.
type Status struct {
	Code string `json:"code"`
	Msg  string `json:"msg,omitempty"`
}

// SanitizeForClient maps an internal error to one of the fixed canned
// Status codes. Callers must log the full err via their own logger before
// discarding it here — this function only ever returns the short public
// message.
func SanitizeForClient(code string, err error) Status {
	msg := ""
	switch code {
	case CodeProverError:
		msg = "prover error"
	case CodeInsufficientCapacity:
		msg = "insufficient capacity"
	case CodeInvalidRequest:
		msg = "invalid request"
	case CodeInvalidArgument:
		msg = "invalid argument"
	case CodeNotFoundOrInaccessible:
		msg = "not found or inaccessible"
	default:
		code = CodeInternal
		msg = "internal error"
	}
	return Status{Code: code, Msg: msg}
}
