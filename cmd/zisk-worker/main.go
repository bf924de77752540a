// Command zisk-worker connects to a zisk-coordinator, registers its compute
// capacity, and executes whatever tasks it's dispatched until told to shut
// down.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/zisk-core/provercore/dist"
	"github.com/zisk-core/provercore/dist/wire"
	"github.com/zisk-core/provercore/dist/worker"
)

func main() {
	var (
		coordinatorAddr string
		capacity        uint
		heartbeat       time.Duration
	)
	pflag.StringVar(&coordinatorAddr, "coordinator", "127.0.0.1:7100", "coordinator grpc address")
	pflag.UintVar(&capacity, "capacity", 1, "compute units this worker offers")
	pflag.DurationVar(&heartbeat, "heartbeat", 5*time.Second, "heartbeat interval")
	pflag.Parse()

	log := logrus.WithField("component", "zisk-worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dist.Dial(ctx, coordinatorAddr)
	if err != nil {
		log.Errorf("dial %s: %v", coordinatorAddr, err)
		os.Exit(1)
	}
	defer conn.Close()

	stream, err := dist.OpenSession(ctx, conn)
	if err != nil {
		log.Errorf("open session: %v", err)
		os.Exit(1)
	}

	w := worker.New(uint32(capacity), heartbeat, stream, elfExecutor{log: log})
	if err := w.Register(); err != nil {
		log.Errorf("register: %v", err)
		os.Exit(1)
	}

	log.WithField("coordinator", coordinatorAddr).Info("worker registered, entering run loop")
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		log.Errorf("run: %v", err)
		os.Exit(1)
	}
}

// elfExecutor runs one ExecuteTask. Actual witness computation over the
// assigned row range delegates to the sched/pctx/asm pipeline this worker
// would build from the task's ELF — out of scope here the same way the CLI's
// pipeline is: see cmd/cargo-zisk/pipeline.go's doc comment.
type elfExecutor struct {
	log *logrus.Entry
}

func (e elfExecutor) Execute(ctx context.Context, task wire.ExecuteTask) wire.TaskResult {
	select {
	case <-ctx.Done():
		return wire.TaskResult{JobID: task.JobID, Error: "aborted"}
	default:
	}
	e.log.WithFields(logrus.Fields{
		"job_id":   task.JobID,
		"block_id": task.BlockID,
		"range":    fmt.Sprintf("[%d,%d)", task.Allocation.RangeStart, task.Allocation.RangeEnd),
	}).Info("executing task")
	return wire.TaskResult{JobID: task.JobID}
}
