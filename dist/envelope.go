package dist

import (
	"encoding/json"
	"fmt"

	"github.com/zisk-core/provercore/dist/wire"
)

// Envelope is the single concrete message type that crosses the grpc
// Session stream in both directions. Since the stream is declared over one
// Go type (as grpc.StreamDesc requires) but actually carries a handful of
// distinct wire.* message kinds, Envelope tags each payload with its kind so
// the json codec can marshal/unmarshal it without reflecting on a sum type
// encoding/json doesn't have.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

const (
	kindRegister    = "register"
	kindRegisterAck = "register_ack"
	kindHeartbeat   = "heartbeat"
	kindExecuteTask = "execute_task"
	kindAbort       = "abort"
	kindShutdown    = "shutdown"
	kindTaskResult  = "task_result"
)

// Wrap tags msg with its wire kind and marshals it into an Envelope.
func Wrap(msg any) (Envelope, error) {
	kind, err := kindOf(msg)
	if err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: kind, Payload: payload}, nil
}

func kindOf(msg any) (string, error) {
	switch msg.(type) {
	case wire.Register:
		return kindRegister, nil
	case wire.RegisterAck:
		return kindRegisterAck, nil
	case wire.Heartbeat:
		return kindHeartbeat, nil
	case wire.ExecuteTask:
		return kindExecuteTask, nil
	case wire.Abort:
		return kindAbort, nil
	case wire.Shutdown:
		return kindShutdown, nil
	case wire.TaskResult:
		return kindTaskResult, nil
	default:
		return "", fmt.Errorf("dist: unrecognized session message type %T", msg)
	}
}

// Unwrap decodes the Envelope's payload back into its concrete wire.* type.
func (e Envelope) Unwrap() (any, error) {
	switch e.Kind {
	case kindRegister:
		var m wire.Register
		err := json.Unmarshal(e.Payload, &m)
		return m, err
	case kindRegisterAck:
		var m wire.RegisterAck
		err := json.Unmarshal(e.Payload, &m)
		return m, err
	case kindHeartbeat:
		var m wire.Heartbeat
		err := json.Unmarshal(e.Payload, &m)
		return m, err
	case kindExecuteTask:
		var m wire.ExecuteTask
		err := json.Unmarshal(e.Payload, &m)
		return m, err
	case kindAbort:
		var m wire.Abort
		err := json.Unmarshal(e.Payload, &m)
		return m, err
	case kindShutdown:
		var m wire.Shutdown
		err := json.Unmarshal(e.Payload, &m)
		return m, err
	case kindTaskResult:
		var m wire.TaskResult
		err := json.Unmarshal(e.Payload, &m)
		return m, err
	default:
		return nil, fmt.Errorf("dist: unrecognized session message kind %q", e.Kind)
	}
}
