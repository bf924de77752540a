// Package aggregate implements the Aggregator (C11): it groups per-instance
// AirInstances by airgroup and delegates the actual opening/aggregation
// arithmetic to an external Backend. The aggregator itself performs no field
// arithmetic — it is pure orchestration over pctx's repository.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zisk-core/provercore/instance"
	"github.com/zisk-core/provercore/pctx"
)

// Backend is the narrow interface onto the external STARK/crypto
// collaborator that actually performs the opening and aggregation. Aggregate
// never inspects field elements itself; it only sequences calls into Backend
// per airgroup and then a single final assembly call.
type Backend interface {
	// AggregateAirgroup combines every AirInstance belonging to one airgroup
	// into a single partial proof blob.
	AggregateAirgroup(ctx context.Context, airgroupID uint32, instances []*instance.AirInstance) ([]byte, error)
	// Assemble combines the per-airgroup partial proofs (in airgroup order)
	// into the final Proof, optionally recursively compressing and/or
	// wrapping it in a SNARK per opts.
	Assemble(ctx context.Context, partials [][]byte, opts Options) (Proof, error)
}

// Options controls the final assembly step.
type Options struct {
	// Recursive requests recursive STARK compression before the final
	// output is produced.
	Recursive bool
	// FinalSNARK requests the compressed proof be wrapped in a SNARK,
	// matching the CLI's --final-snark flag.
	FinalSNARK bool
}

// Proof is the aggregator's final output: an opaque blob plus the options it
// was assembled under, so a caller can tell a recursive/SNARK-wrapped proof
// from a plain one without re-parsing the blob.
type Proof struct {
	Blob    []byte
	Options Options
}

// Aggregator drives Backend over the AirInstances accumulated in a
// pctx.ProofContext's repository.
type Aggregator struct {
	backend Backend
	log     *logrus.Entry
}

// New builds an Aggregator delegating to backend.
func New(backend Backend) *Aggregator {
	return &Aggregator{backend: backend, log: logrus.WithField("component", "aggregate")}
}

// Run groups every AirInstance in repo by airgroup (ascending airgroup id),
// aggregates each group, then assembles the per-airgroup partials into the
// final Proof. It returns an error wrapping the first Backend failure
// encountered, naming the offending airgroup.
func (a *Aggregator) Run(ctx context.Context, repo *pctx.AirInstanceRepository, opts Options) (Proof, error) {
	airgroups := airgroupsIn(repo)

	start := time.Now()
	partials := make([][]byte, 0, len(airgroups))

	for _, airgroupID := range airgroups {
		instances := repo.ByAirgroup(airgroupID)
		if len(instances) == 0 {
			continue
		}
		partial, err := a.backend.AggregateAirgroup(ctx, airgroupID, instances)
		if err != nil {
			return Proof{}, fmt.Errorf("aggregate: airgroup %d: %w", airgroupID, err)
		}
		partials = append(partials, partial)
	}

	proof, err := a.backend.Assemble(ctx, partials, opts)
	if err != nil {
		return Proof{}, fmt.Errorf("aggregate: assemble: %w", err)
	}

	a.logSummary(len(airgroups), time.Since(start))
	return proof, nil
}

// logSummary reports how many airgroups were aggregated and how long the
// whole run took.
func (a *Aggregator) logSummary(airgroupCount int, total time.Duration) {
	a.log.WithFields(logrus.Fields{
		"airgroups":  airgroupCount,
		"total_time": total,
	}).Debug("aggregation complete")
}

// airgroupsIn returns the distinct airgroup ids present in repo, ascending.
func airgroupsIn(repo *pctx.AirInstanceRepository) []uint32 {
	seen := make(map[uint32]struct{})
	for _, inst := range repo.All() {
		seen[inst.AirgroupID] = struct{}{}
	}
	ids := make([]uint32, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
