package instance

import (
	"github.com/zisk-core/provercore/bus"
	"github.com/zisk-core/provercore/plan"
)

// InstanceCtx carries everything a ComponentBuilder needs to build one
// Instance: the plan that produced it, its place in the proof context's
// AirInstance repository, and the row/width sizing for the AIR it targets.
// It deliberately holds no pointer back into the proof context (pctx depends
// on instance for AirInstance, not the other way around); witness routines
// that need publics/challenges receive them as plain values here.
type InstanceCtx struct {
	Plan      plan.Plan
	GlobalIdx uint64
	Rows      uint32
	Width     uint32
	Publics   []uint64
	Challenges []uint64
}

// Instance is bound to exactly one Plan. It is mutated only during collection
// (Collect, driven by the replayer walking the plan's checkpoint chunks) and
// witness computation (ComputeWitness), then finalized into an AirInstance
// and detached — never touched again.
type Instance interface {
	// Collect receives one matching bus payload during the collection phase.
	// It returns true once the instance has gathered rows(air) inputs and
	// needs no further payloads. The scheduler's collection driver does not
	// read this value: it stops once the plan's collect.Collector has
	// forwarded rows(air) payloads.
	Collect(payload bus.Payload) (full bool)

	// ComputeWitness runs once collection is complete (or immediately, for
	// plans whose Checkpoint.Kind is plan.CheckpointNone) and returns the
	// finalized AirInstance.
	ComputeWitness() (*AirInstance, error)
}

// ComponentBuilder is the per-state-machine factory the Registry dispatches
// to. One builder exists per (airgroup_id, air_id) pair the program declares.
type ComponentBuilder interface {
	// Name identifies the state machine for logging/debugging (e.g. "arith",
	// "binary", "mem_align"); it is not part of the registry key.
	Name() string

	// BuildCounter returns the pass-1 counting device for this component, or
	// nil if the component needs no counting pass (e.g. it is always
	// PreCalculate).
	BuildCounter() plan.Metric

	// BuildPlanner returns the planner that turns this component's counts
	// into Plans.
	BuildPlanner() plan.Planner

	// ConfigureInstances lets a builder inspect/adjust the full set of plans
	// assigned to its air before any instance is built from them. Most
	// builders no-op here; BaseBuilder provides that default.
	ConfigureInstances(plannings []plan.Plan)

	// BuildInstance constructs one Instance for ictx.Plan.
	BuildInstance(ictx InstanceCtx) Instance

	// BusID names the bus this component's collector listens on (memory,
	// operation, or a per-precompile bus id) — the scheduler needs this to
	// wire a collect.Collector for the component without every builder
	// reaching into the collection machinery itself.
	BusID() bus.ID

	// BuildInputsGenerator returns a bus device that synthesizes derived bus
	// traffic for this component, or nil if the component does not generate
	// inputs for other components to consume.
	BuildInputsGenerator() bus.Device
}

// BaseBuilder provides the no-op defaults ComponentBuilder implementations
// can embed, mirroring the optional-with-default-None members of the
// original trait (build_inputs_generator, configure_instances).
type BaseBuilder struct{}

func (BaseBuilder) ConfigureInstances(plannings []plan.Plan) {}
func (BaseBuilder) BuildInputsGenerator() bus.Device         { return nil }
