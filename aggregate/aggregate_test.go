package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/zisk-core/provercore/instance"
	"github.com/zisk-core/provercore/pctx"
)

type fakeBackend struct {
	aggregated []uint32 // airgroup ids seen, in call order
	assembleIn [][]byte
	failGroup  uint32
	failErr    error
}

func (f *fakeBackend) AggregateAirgroup(ctx context.Context, airgroupID uint32, instances []*instance.AirInstance) ([]byte, error) {
	if f.failGroup != 0 && airgroupID == f.failGroup {
		return nil, f.failErr
	}
	f.aggregated = append(f.aggregated, airgroupID)
	return []byte{byte(airgroupID)}, nil
}

func (f *fakeBackend) Assemble(ctx context.Context, partials [][]byte, opts Options) (Proof, error) {
	f.assembleIn = partials
	return Proof{Blob: []byte("final"), Options: opts}, nil
}

func repoWith(pairs ...struct {
	airgroup uint32
	globalID uint64
}) *pctx.AirInstanceRepository {
	repo := pctx.NewAirInstanceRepository()
	for _, p := range pairs {
		repo.Put(instance.NewAirInstance(p.airgroup, 0, p.globalID, 4, 1, 0))
	}
	return repo
}

func TestAggregator_Run_GroupsByAirgroupAscending(t *testing.T) {
	repo := repoWith(
		struct {
			airgroup uint32
			globalID uint64
		}{airgroup: 2, globalID: 0},
		struct {
			airgroup uint32
			globalID uint64
		}{airgroup: 1, globalID: 1},
		struct {
			airgroup uint32
			globalID uint64
		}{airgroup: 1, globalID: 2},
	)

	backend := &fakeBackend{}
	a := New(backend)

	proof, err := a.Run(context.Background(), repo, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if string(proof.Blob) != "final" {
		t.Fatalf("got blob %q, want final", proof.Blob)
	}
	if len(backend.aggregated) != 2 || backend.aggregated[0] != 1 || backend.aggregated[1] != 2 {
		t.Fatalf("expected airgroups aggregated in ascending order [1 2], got %v", backend.aggregated)
	}
	if len(backend.assembleIn) != 2 {
		t.Fatalf("expected 2 partials passed to Assemble, got %d", len(backend.assembleIn))
	}
}

func TestAggregator_Run_PropagatesBackendFailure(t *testing.T) {
	repo := repoWith(struct {
		airgroup uint32
		globalID uint64
	}{airgroup: 1, globalID: 0})

	backend := &fakeBackend{failGroup: 1, failErr: errors.New("opening failed")}
	a := New(backend)

	_, err := a.Run(context.Background(), repo, Options{})
	if err == nil {
		t.Fatalf("expected an error from a failing airgroup")
	}
}

func TestAggregator_Run_PassesOptionsThroughToAssemble(t *testing.T) {
	repo := repoWith(struct {
		airgroup uint32
		globalID uint64
	}{airgroup: 1, globalID: 0})

	backend := &fakeBackend{}
	a := New(backend)

	proof, err := a.Run(context.Background(), repo, Options{Recursive: true, FinalSNARK: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !proof.Options.Recursive || !proof.Options.FinalSNARK {
		t.Fatalf("expected options to be carried through to the final Proof, got %+v", proof.Options)
	}
}

func TestAggregator_Run_EmptyRepositoryStillAssembles(t *testing.T) {
	repo := pctx.NewAirInstanceRepository()
	backend := &fakeBackend{}
	a := New(backend)

	if _, err := a.Run(context.Background(), repo, Options{}); err != nil {
		t.Fatalf("Run on an empty repository should not error, got %v", err)
	}
	if len(backend.aggregated) != 0 {
		t.Fatalf("expected no airgroups aggregated, got %v", backend.aggregated)
	}
}
