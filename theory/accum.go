package theory

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Accumulator maintains running Bayesian posteriors for theory versions
// as independent family evidence arrives.
//
// Writes are O(1) appends with no aggregation; posteriors are computed
// lazily on read over a snapshot of the evidence log, so reads never
// block writes and concurrent appends for the same theory commute.
type Accumulator struct {
	s Store
}

// NewAccumulator produces an Accumulator over s.
func NewAccumulator(s Store) *Accumulator {
	return &Accumulator{s: s}
}

// AddEvidence validates and appends one evidence record. Validation
// failures are InvalidEvidenceError; an unknown theory version is
// variome.ErrNotFound. No recomputation happens at write time.
func (a *Accumulator) AddEvidence(ctx context.Context, e Evidence) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := a.s.GetTheory(ctx, e.TheoryID, e.Version); err != nil {
		return errors.Wrapf(err, "getting theory %s@%s", e.TheoryID, e.Version)
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return errors.Wrap(a.s.AddEvidence(ctx, e), "appending evidence")
}

// Posterior computes the posterior snapshot of a theory version under
// the given prior, from all evidence recorded at call time. With zero
// evidence records the posterior equals the prior.
func (a *Accumulator) Posterior(ctx context.Context, theoryID, version string, prior float64) (Snapshot, error) {
	if prior < 0 || prior > 1 {
		return Snapshot{}, InvalidEvidenceError{Field: "prior", Reason: "must be a probability in [0, 1]"}
	}
	if _, err := a.s.GetTheory(ctx, theoryID, version); err != nil {
		return Snapshot{}, errors.Wrapf(err, "getting theory %s@%s", theoryID, version)
	}
	evidence, err := a.snapshot(ctx, theoryID, version)
	if err != nil {
		return Snapshot{}, err
	}
	return ComputeSnapshot(theoryID, version, prior, evidence), nil
}

// Stats aggregates a theory version's evidence log. It has no side
// effects.
func (a *Accumulator) Stats(ctx context.Context, theoryID, version string) (Stats, error) {
	if _, err := a.s.GetTheory(ctx, theoryID, version); err != nil {
		return Stats{}, errors.Wrapf(err, "getting theory %s@%s", theoryID, version)
	}
	evidence, err := a.snapshot(ctx, theoryID, version)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(evidence), nil
}

func (a *Accumulator) snapshot(ctx context.Context, theoryID, version string) ([]Evidence, error) {
	var evidence []Evidence
	err := a.s.ListEvidence(ctx, theoryID, version, func(e Evidence) error {
		evidence = append(evidence, e)
		return nil
	})
	return evidence, errors.Wrap(err, "listing evidence")
}
