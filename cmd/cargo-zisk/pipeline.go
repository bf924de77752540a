package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/zisk-core/provercore/aggregate"
	"github.com/zisk-core/provercore/instance"
	"github.com/zisk-core/provercore/pctx"
	"github.com/zisk-core/provercore/plan"
	"github.com/zisk-core/provercore/replay"
	"github.com/zisk-core/provercore/sched"
)

// pipeline wires the real local orchestration core (instance registry,
// proof context, scheduler, aggregator) behind the server.Prover interface.
// The set of registered airs comes from ELF-specific air compilation, which
// is this core's out-of-scope collaborator (mirroring asm.SubprocessService's
// stubbed Request and aggregate.Backend's external interface) — a fresh
// pipeline therefore starts with an empty registry and a program that
// registers no airs proves (and verifies) trivially, logging that fact
// rather than silently pretending otherwise.
type pipeline struct {
	registry *instance.Registry
	proof    *pctx.ProofContext
	replayer *replay.Replayer
	sched    *sched.Scheduler
	agg      *aggregate.Aggregator
	specs    map[instance.Key]sched.AirSpec
	log      *logrus.Entry
}

func newPipeline(replayer *replay.Replayer, info pctx.GlobalInfo, backend aggregate.Backend, maxParallel int) *pipeline {
	registry := instance.NewRegistry()
	proof := pctx.New(nil, nil, info)
	specs := make(map[instance.Key]sched.AirSpec)
	for airgroupID, ag := range info.Airgroups {
		for airID, air := range ag.Airs {
			specs[instance.Key{AirgroupID: airgroupID, AirID: airID}] = sched.AirSpec{Rows: air.Rows, Width: air.Width}
		}
	}
	return &pipeline{
		registry: registry,
		proof:    proof,
		replayer: replayer,
		sched:    sched.New(registry, proof, replayer, maxParallel),
		agg:      aggregate.New(backend),
		specs:    specs,
		log:      logrus.WithField("component", "cargo-zisk"),
	}
}

// run plans every registered air's instances from scratch, schedules them,
// and optionally aggregates the result.
func (p *pipeline) run(ctx context.Context, counts map[instance.Key][]plan.ChunkCount, opts aggregate.Options) (aggregate.Proof, error) {
	if p.registry.Len() == 0 {
		p.log.Warn("no airs registered: ELF-to-air compilation is out of scope, proving an empty program")
	}

	var plans []plan.Plan
	for key, builder := range p.registryBuilders() {
		planner := builder.BuildPlanner()
		plans = append(plans, planner.Plan(counts[key])...)
	}

	if err := p.sched.Run(ctx, plans, p.specs); err != nil {
		return aggregate.Proof{}, fmt.Errorf("cargo-zisk: scheduling: %w", err)
	}

	if !opts.Recursive && !opts.FinalSNARK && p.proof.Repository().Len() == 0 {
		return aggregate.Proof{}, nil
	}
	return p.agg.Run(ctx, p.proof.Repository(), opts)
}

func (p *pipeline) registryBuilders() map[instance.Key]instance.ComponentBuilder {
	out := make(map[instance.Key]instance.ComponentBuilder, len(p.specs))
	for key := range p.specs {
		if b, ok := p.registry.Lookup(key.AirgroupID, key.AirID); ok {
			out[key] = b
		}
	}
	return out
}

// VerifyConstraints satisfies server.Prover: it runs the same scheduling
// pass as Prove but without aggregation, matching the CLI's
// verify-constraints subcommand (recompute witnesses, check they're
// internally consistent, skip the STARK opening).
func (p *pipeline) VerifyConstraints(ctx context.Context, input string, debug bool) error {
	if p.registry.Len() == 0 {
		p.log.Warn("no airs registered: ELF-to-air compilation is out of scope, verifying an empty program")
	}

	var plans []plan.Plan
	for _, builder := range p.registryBuilders() {
		plans = append(plans, builder.BuildPlanner().Plan(nil)...)
	}

	if err := p.sched.Run(ctx, plans, p.specs); err != nil {
		return fmt.Errorf("cargo-zisk: scheduling: %w", err)
	}
	return nil
}

// Prove satisfies server.Prover.
func (p *pipeline) Prove(ctx context.Context, input string, aggregation, finalSNARK, verifyProofs bool) error {
	_, err := p.run(ctx, nil, aggregate.Options{Recursive: aggregation, FinalSNARK: finalSNARK})
	return err
}
