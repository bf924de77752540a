// Package worker implements the worker half of the Distributed
// Coordinator/Worker component (C10): registration, periodic heartbeats, and
// task execution reported back over the same bidirectional stream.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zisk-core/provercore/dist/wire"
)

// Stream is the bidirectional channel a Worker drives: Send pushes a
// worker→coordinator message, Recv blocks for the next coordinator→worker
// message. The production implementation is a grpc.ClientStream wrapped by
// dist's custom json codec; tests substitute an in-memory fake.
type Stream interface {
	Send(msg any) error
	Recv() (any, error)
}

// Executor runs one dispatched task and reports its outcome.
type Executor interface {
	Execute(ctx context.Context, task wire.ExecuteTask) wire.TaskResult
}

// Worker drives one registration/heartbeat/execute lifecycle against a
// coordinator Stream.
type Worker struct {
	Capacity          uint32
	HeartbeatInterval time.Duration

	stream   Stream
	executor Executor
	workerID string

	log *logrus.Entry
}

// New builds a Worker with the given compute capacity, talking over stream
// and dispatching tasks to executor.
func New(capacity uint32, heartbeatInterval time.Duration, stream Stream, executor Executor) *Worker {
	if heartbeatInterval <= 0 {
		heartbeatInterval = 5 * time.Second
	}
	return &Worker{
		Capacity:          capacity,
		HeartbeatInterval: heartbeatInterval,
		stream:            stream,
		executor:          executor,
		log:               logrus.WithField("component", "worker"),
	}
}

// Register performs the initial handshake, recording the worker id the
// coordinator assigns (or echoes).
func (w *Worker) Register() error {
	if err := w.stream.Send(wire.Register{WorkerID: w.workerID, Capacity: wire.ComputeCapacity{ComputeUnits: w.Capacity}}); err != nil {
		return err
	}
	msg, err := w.stream.Recv()
	if err != nil {
		return err
	}
	if ack, ok := msg.(wire.RegisterAck); ok {
		w.workerID = ack.WorkerID
	}
	return nil
}

// Run drives the heartbeat loop and dispatches incoming ExecuteTask/Abort/
// Shutdown messages until ctx is canceled or the stream ends. current tracks
// the in-flight job id (empty when idle) so an Abort for a different job is
// a no-op.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.HeartbeatInterval)
	defer ticker.Stop()

	msgCh := make(chan any)
	errCh := make(chan error, 1)
	go func() {
		for {
			msg, err := w.stream.Recv()
			if err != nil {
				errCh <- err
				return
			}
			msgCh <- msg
		}
	}()

	state := wire.WorkerIdle
	var currentJob string
	var cancelCurrent context.CancelFunc
	resultCh := make(chan wire.TaskResult, 1)

	for {
		select {
		case <-ctx.Done():
			if cancelCurrent != nil {
				cancelCurrent()
			}
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-ticker.C:
			if err := w.stream.Send(wire.Heartbeat{WorkerID: w.workerID, State: state}); err != nil {
				return err
			}
		case result := <-resultCh:
			state = wire.WorkerIdle
			currentJob = ""
			cancelCurrent = nil
			if err := w.stream.Send(result); err != nil {
				return err
			}
		case msg := <-msgCh:
			switch m := msg.(type) {
			case wire.ExecuteTask:
				state = wire.WorkerWorking
				currentJob = m.JobID
				taskCtx, cancel := context.WithCancel(ctx)
				cancelCurrent = cancel
				go func() {
					resultCh <- w.executor.Execute(taskCtx, m)
				}()
			case wire.Abort:
				if m.JobID == currentJob && cancelCurrent != nil {
					cancelCurrent()
				}
			case wire.Shutdown:
				return nil
			}
		}
	}
}
