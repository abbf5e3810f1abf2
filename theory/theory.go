// Package theory implements versioned research hypotheses, fork lineage
// tracking, and Bayesian evidence accumulation across family datasets.
package theory

import (
	"context"
	"errors"
	"time"

	"github.com/variome/variome"
)

// ErrFrozen is the error returned when modifying a theory version that
// already has evidence recorded against it. Further changes require a new
// version or a fork.
var ErrFrozen = errors.New("theory version is frozen")

// ErrLineageCycle reports a cycle in the fork ancestry graph. Forks
// always point at strictly pre-existing theories, so a cycle is an
// invariant violation and a defect, never a recoverable condition.
var ErrLineageCycle = wrapInvariant("lineage cycle detected")

func wrapInvariant(msg string) error {
	return &invariantErr{msg: msg}
}

type invariantErr struct{ msg string }

func (e *invariantErr) Error() string { return e.msg + ": " + variome.ErrInvariant.Error() }
func (e *invariantErr) Unwrap() error { return variome.ErrInvariant }

// Criteria are a theory's structured match rules.
type Criteria struct {
	Genes      []string `json:"genes,omitempty"`
	Pathways   []string `json:"pathways,omitempty"`
	Phenotypes []string `json:"phenotypes,omitempty"`
}

// EvidenceModel holds a theory's prior probability and per-evidence-type
// likelihood weights.
type EvidenceModel struct {
	Prior             float64            `json:"prior"`
	LikelihoodWeights map[string]float64 `json:"likelihood_weights,omitempty"`
}

// Theory is a versioned, structured research hypothesis. A given
// (ID, Version) pair is immutable once evidence has been recorded against
// it; ParentID is set when the theory was created by forking.
type Theory struct {
	ID            string        `json:"id"`
	Version       string        `json:"version"`
	Scope         string        `json:"scope"`
	Criteria      Criteria      `json:"criteria"`
	EvidenceModel EvidenceModel `json:"evidence_model"`
	ParentID      string        `json:"parent_theory_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Store stores theories and their append-only evidence logs.
type Store interface {
	// PutTheory adds or replaces a theory version. Replacing a version
	// that already has evidence recorded returns ErrFrozen.
	PutTheory(context.Context, Theory) error

	// GetTheory gets one theory version. It returns
	// variome.ErrNotFound for unknown (ID, version) pairs.
	GetTheory(ctx context.Context, theoryID, version string) (Theory, error)

	// LatestTheory gets the highest version of a theory ID.
	LatestTheory(ctx context.Context, theoryID string) (Theory, error)

	// ListTheories calls a function for every stored theory version, in
	// (ID, version) order.
	ListTheories(ctx context.Context, f func(Theory) error) error

	// ListChildren calls a function for each theory whose parent is the
	// named theory ID, in (ID, version) order.
	ListChildren(ctx context.Context, theoryID string, f func(Theory) error) error

	// AddEvidence appends one evidence record. The log is append-only:
	// records are never mutated or deleted.
	AddEvidence(context.Context, Evidence) error

	// ListEvidence calls a function for each evidence record of one
	// theory version. The calls reflect at least the records present at
	// the moment ListEvidence was called; whether concurrent appends are
	// reflected is unspecified.
	ListEvidence(ctx context.Context, theoryID, version string, f func(Evidence) error) error
}
