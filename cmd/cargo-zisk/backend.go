package main

import (
	"context"

	"github.com/zisk-core/provercore/aggregate"
	"github.com/zisk-core/provercore/instance"
)

// noopBackend is the aggregate.Backend used when no airs are registered (see
// pipeline.go): aggregating zero airgroups and assembling zero partials is a
// legitimate, well-defined case, not a stand-in for the real STARK/crypto
// collaborator.
type noopBackend struct{}

func (noopBackend) AggregateAirgroup(ctx context.Context, airgroupID uint32, instances []*instance.AirInstance) ([]byte, error) {
	return nil, nil
}

func (noopBackend) Assemble(ctx context.Context, partials [][]byte, opts aggregate.Options) (aggregate.Proof, error) {
	return aggregate.Proof{Options: opts}, nil
}
