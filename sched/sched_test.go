package sched

import (
	"context"
	"sync"
	"testing"

	"github.com/zisk-core/provercore/bus"
	"github.com/zisk-core/provercore/instance"
	"github.com/zisk-core/provercore/pctx"
	"github.com/zisk-core/provercore/plan"
	"github.com/zisk-core/provercore/replay"
	"github.com/zisk-core/provercore/rom"
)

// fakeInstance records every payload it collects and finalizes a trivial
// AirInstance on ComputeWitness, optionally returning an error to exercise
// job-failure cancellation.
type fakeInstance struct {
	mu       sync.Mutex
	airgroup uint32
	air      uint32
	globalID uint64
	collected []bus.Payload
	failWith  error
}

func (f *fakeInstance) Collect(payload bus.Payload) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collected = append(f.collected, payload)
	return false
}

func (f *fakeInstance) ComputeWitness() (*instance.AirInstance, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return instance.NewAirInstance(f.airgroup, f.air, f.globalID, 4, 1, 0), nil
}

type fakeBuilder struct {
	instance.BaseBuilder
	name     string
	failWith error
	built    []*fakeInstance
	order    *[]string // if set, BuildInstance appends name, shared across builders
	mu       sync.Mutex
}

func (b *fakeBuilder) Name() string                { return b.name }
func (b *fakeBuilder) BuildCounter() plan.Metric    { return nil }
func (b *fakeBuilder) BuildPlanner() plan.Planner   { return nil }
func (b *fakeBuilder) BusID() bus.ID                { return bus.OperationBusID }
func (b *fakeBuilder) BuildInstance(ictx instance.InstanceCtx) instance.Instance {
	inst := &fakeInstance{airgroup: ictx.Plan.AirgroupID, air: ictx.Plan.AirID, globalID: ictx.GlobalIdx, failWith: b.failWith}
	b.mu.Lock()
	b.built = append(b.built, inst)
	if b.order != nil {
		*b.order = append(*b.order, b.name)
	}
	b.mu.Unlock()
	return inst
}

func buildTwoChunkRom() (*replay.Replayer, replay.MapSource) {
	r := rom.New([]rom.Instruction{
		{PC: 0, Opcode: rom.OpAnd},
		{PC: 4, Opcode: rom.OpAnd},
	})
	chunk := &rom.Chunk{
		ID: 0, StartIndex: 0, EndIndex: 2,
		Events: []rom.ChunkEvent{
			{InstIndex: 0, Kind: rom.EventOperation, Payload: []uint64{uint64(rom.OpAnd), 1}},
			{InstIndex: 1, Kind: rom.EventOperation, Payload: []uint64{uint64(rom.OpAnd), 2}},
		},
	}
	src := replay.MapSource{0: chunk}
	return replay.New(r, src), src
}

func TestScheduler_Run_PublishesAirInstancesForRegularPlans(t *testing.T) {
	registry := instance.NewRegistry()
	builder := &fakeBuilder{name: "arith"}
	if err := registry.Register(1, 10, builder); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	rep, _ := buildTwoChunkRom()
	proof := pctx.New(nil, nil, pctx.GlobalInfo{})
	s := New(registry, proof, rep, 4)

	segID := uint32(0)
	plans := []plan.Plan{
		{
			AirgroupID: 1, AirID: 10, SegmentID: &segID,
			InstanceType: plan.Instance,
			Checkpoint:   plan.NewCheckpointMultiple([]rom.ChunkID{0}),
		},
	}
	specs := map[instance.Key]AirSpec{{AirgroupID: 1, AirID: 10}: {Rows: 2, Width: 1}}

	if err := s.Run(context.Background(), plans, specs); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if proof.Repository().Len() != 1 {
		t.Fatalf("got %d air instances, want 1", proof.Repository().Len())
	}
	if len(builder.built) != 1 || len(builder.built[0].collected) != 2 {
		t.Fatalf("expected instance to collect 2 payloads, got %+v", builder.built)
	}
}

func TestScheduler_Run_TablePlansRunAfterRegularPlans(t *testing.T) {
	registry := instance.NewRegistry()
	var order []string
	regularBuilder := &fakeBuilder{name: "arith", order: &order}
	tableBuilder := &fakeBuilder{name: "arith-table", order: &order}
	_ = registry.Register(1, 10, regularBuilder)
	_ = registry.Register(1, 99, tableBuilder)

	rep, _ := buildTwoChunkRom()
	proof := pctx.New(nil, nil, pctx.GlobalInfo{})
	s := New(registry, proof, rep, 4)

	plans := []plan.Plan{
		{AirgroupID: 1, AirID: 99, InstanceType: plan.Table, Checkpoint: plan.NewCheckpointMultiple([]rom.ChunkID{0})},
		{AirgroupID: 1, AirID: 10, InstanceType: plan.Instance, Checkpoint: plan.NewCheckpointNone(), PreCalculate: true},
	}
	specs := map[instance.Key]AirSpec{
		{AirgroupID: 1, AirID: 10}: {Rows: 2, Width: 1},
		{AirgroupID: 1, AirID: 99}: {Rows: 2, Width: 1},
	}

	if err := s.Run(context.Background(), plans, specs); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if proof.Repository().Len() != 2 {
		t.Fatalf("got %d air instances, want 2", proof.Repository().Len())
	}
	if len(order) != 2 || order[0] != "arith" || order[1] != "arith-table" {
		t.Fatalf("got instance build order %v, want [arith arith-table] (table after regular)", order)
	}
}

func TestScheduler_Run_FailurePropagates(t *testing.T) {
	registry := instance.NewRegistry()
	failErr := &fakeErr{}
	builder := &fakeBuilder{name: "arith", failWith: failErr}
	_ = registry.Register(1, 10, builder)

	rep, _ := buildTwoChunkRom()
	proof := pctx.New(nil, nil, pctx.GlobalInfo{})
	s := New(registry, proof, rep, 2)

	plans := []plan.Plan{
		{AirgroupID: 1, AirID: 10, InstanceType: plan.Instance, Checkpoint: plan.NewCheckpointNone(), PreCalculate: true},
	}
	specs := map[instance.Key]AirSpec{{AirgroupID: 1, AirID: 10}: {Rows: 2, Width: 1}}

	err := s.Run(context.Background(), plans, specs)
	if err == nil {
		t.Fatalf("expected Run to propagate task error")
	}
}

func TestScheduler_Run_UnregisteredAirFails(t *testing.T) {
	registry := instance.NewRegistry()
	rep, _ := buildTwoChunkRom()
	proof := pctx.New(nil, nil, pctx.GlobalInfo{})
	s := New(registry, proof, rep, 2)

	plans := []plan.Plan{
		{AirgroupID: 9, AirID: 9, InstanceType: plan.Instance, Checkpoint: plan.NewCheckpointNone(), PreCalculate: true},
	}
	err := s.Run(context.Background(), plans, map[instance.Key]AirSpec{})
	if err == nil {
		t.Fatalf("expected error for unregistered air")
	}
}

type fakeErr struct{}

func (*fakeErr) Error() string { return "fake witness computation failure" }
