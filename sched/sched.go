// Package sched implements the Local Scheduler (C6): a two-phase worker-pool
// pipeline over a job's Plans, built on golang.org/x/sync/errgroup and a
// bounded semaphore the way the wider pack's service fabrics bound fan-out
// (ghjramos-aistore's rebalance workers, joeycumines-go-utilpkg's worker
// pools).
package sched

import (
	"context"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sirupsen/logrus"

	"github.com/zisk-core/provercore/bus"
	"github.com/zisk-core/provercore/collect"
	"github.com/zisk-core/provercore/instance"
	"github.com/zisk-core/provercore/pctx"
	"github.com/zisk-core/provercore/plan"
	"github.com/zisk-core/provercore/replay"
)

// AirSpec tells the scheduler how to size and dispatch a plan targeting one
// air: its row count/width (for InstanceCtx sizing) and global index
// allocation.
type AirSpec struct {
	Rows  uint32
	Width uint32
}

// Scheduler runs a job's Plans against a Registry of ComponentBuilders,
// publishing finalized AirInstances into a ProofContext. Suspension points
// are task boundaries only: within one task, collection and witness
// computation run sequentially on the same goroutine.
type Scheduler struct {
	registry    *instance.Registry
	proof       *pctx.ProofContext
	replayer    *replay.Replayer
	maxParallel int64

	log *logrus.Entry
}

// New builds a Scheduler. maxParallel bounds the number of regular-plan
// tasks running concurrently (the worker-pool width); values <= 0 default to
// 1 (fully sequential, still correct, just slow).
func New(registry *instance.Registry, proof *pctx.ProofContext, replayer *replay.Replayer, maxParallel int) *Scheduler {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Scheduler{
		registry:    registry,
		proof:       proof,
		replayer:    replayer,
		maxParallel: int64(maxParallel),
		log:         logrus.WithField("component", "sched"),
	}
}

// globalIdxAllocator hands out strictly increasing global indices in plan
// order, so that "instances of the same air are produced in plan order when
// segment_id is Some" holds by construction: the caller assigns plans to the
// allocator in the order it wants global indices to reflect.
type globalIdxAllocator struct {
	next atomic.Uint64
}

func (a *globalIdxAllocator) allocate() uint64 { return a.next.Add(1) - 1 }

// Run executes every plan in plans against specs (keyed by (airgroup,air)),
// in two phases: all non-table (Instance) plans first, bounded to
// maxParallel concurrent tasks, then every Table plan once every regular
// plan has finished. Cancellation: the first task error marks the job
// failed; in-flight tasks finish, but no new ones start.
func (s *Scheduler) Run(ctx context.Context, plans []plan.Plan, specs map[instance.Key]AirSpec) error {
	regular, tables := splitByType(plans)
	sortBySegment(regular)
	sortBySegment(tables)

	alloc := &globalIdxAllocator{}

	group, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(s.maxParallel)

	for i := range regular {
		p := regular[i]
		idx := alloc.allocate()
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			return s.runTask(gctx, p, idx, specs)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	// Phase 2: table plans run only after every regular plan has published
	// its AirInstance and distributed its multiplicity contributions.
	tgroup, tgctx := errgroup.WithContext(ctx)
	tsem := semaphore.NewWeighted(s.maxParallel)
	for i := range tables {
		p := tables[i]
		idx := alloc.allocate()
		tgroup.Go(func() error {
			if err := tsem.Acquire(tgctx, 1); err != nil {
				return err
			}
			defer tsem.Release(1)
			return s.runTask(tgctx, p, idx, specs)
		})
	}
	return tgroup.Wait()
}

// runTask performs the full per-plan pipeline: collection (skipped for plans
// with no checkpoint / PreCalculate), witness computation, and publishing the
// resulting AirInstance into the proof context.
func (s *Scheduler) runTask(ctx context.Context, p plan.Plan, globalIdx uint64, specs map[instance.Key]AirSpec) error {
	key := instance.Key{AirgroupID: p.AirgroupID, AirID: p.AirID}
	builder, ok := s.registry.Lookup(p.AirgroupID, p.AirID)
	if !ok {
		return &UnregisteredAirError{AirgroupID: p.AirgroupID, AirID: p.AirID}
	}
	spec := specs[key]

	ictx := instance.InstanceCtx{
		Plan:      p,
		GlobalIdx: globalIdx,
		Rows:      spec.Rows,
		Width:     spec.Width,
	}
	inst := builder.BuildInstance(ictx)

	if p.Checkpoint.Kind != plan.CheckpointNone && !p.PreCalculate {
		if err := s.collectInto(inst, p, builder.BusID(), int(spec.Rows)); err != nil {
			return err
		}
	}

	ai, err := inst.ComputeWitness()
	if err != nil {
		return err
	}
	ai.AirgroupID = p.AirgroupID
	ai.AirID = p.AirID
	ai.GlobalIdx = globalIdx

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.proof.Repository().Put(ai)
	s.log.WithFields(logrus.Fields{
		"airgroup_id": p.AirgroupID,
		"air_id":      p.AirID,
		"global_idx":  globalIdx,
		"type":        p.InstanceType.String(),
	}).Debug("air instance published")
	return nil
}

// collectInto drives a Collector over the plan's checkpoint chunks, feeding
// every accepted payload to inst.Collect.
func (s *Scheduler) collectInto(inst instance.Instance, p plan.Plan, busID bus.ID, rows int) error {
	driver := collect.NewDriver(s.replayer)
	sink := collect.SinkFunc(func(payload bus.Payload) { inst.Collect(payload) })
	collector := collect.NewCollector(busID, p.Checkpoint, rows, sink)
	_, err := driver.Run(p.Checkpoint, collector)
	return err
}

// splitByType partitions plans into non-table and table plans, preserving
// relative order within each partition (the order plan-order guarantees
// depend on).
func splitByType(plans []plan.Plan) (regular, tables []plan.Plan) {
	for _, p := range plans {
		if p.InstanceType == plan.Table {
			tables = append(tables, p)
		} else {
			regular = append(regular, p)
		}
	}
	return regular, tables
}

// sortBySegment orders plans with the same air by ascending SegmentID,
// ensuring the "same-air plans in plan order when segment_id is Some"
// guarantee holds for callers that build the plan slice from an unordered
// union of planners.
func sortBySegment(plans []plan.Plan) {
	sort.SliceStable(plans, func(i, j int) bool {
		a, b := plans[i], plans[j]
		if a.AirgroupID != b.AirgroupID {
			return a.AirgroupID < b.AirgroupID
		}
		if a.AirID != b.AirID {
			return a.AirID < b.AirID
		}
		if a.SegmentID == nil || b.SegmentID == nil {
			return false
		}
		return *a.SegmentID < *b.SegmentID
	})
}

// UnregisteredAirError reports a plan naming an (airgroup_id, air_id) with no
// bound ComponentBuilder — always a configuration bug.
type UnregisteredAirError struct {
	AirgroupID uint32
	AirID      uint32
}

func (e *UnregisteredAirError) Error() string {
	return "sched: no builder registered for plan's air"
}
