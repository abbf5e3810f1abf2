package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/variome/variome"
	"github.com/variome/variome/store"
	"github.com/variome/variome/theory"
)

// Theories exercises the theory half of a Store implementation: version
// storage and ordering, freezing once evidence exists, append-only
// evidence logs, and child listing.
func Theories(ctx context.Context, t *testing.T, s store.Store) {
	created := time.Now().UTC().Round(time.Microsecond)

	t100 := theory.Theory{
		ID:      "thr-001",
		Version: "1.0.0",
		Scope:   "CFTR modifier hypothesis",
		Criteria: theory.Criteria{
			Genes:    []string{"CFTR", "SLC26A9"},
			Pathways: []string{"chloride transport"},
		},
		EvidenceModel: theory.EvidenceModel{
			Prior:             0.1,
			LikelihoodWeights: map[string]float64{"variant_hit": 2},
		},
		CreatedAt: created,
	}
	if err := s.PutTheory(ctx, t100); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetTheory(ctx, "thr-001", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(t100, got); diff != "" {
		t.Errorf("theory mismatch (-want +got):\n%s", diff)
	}

	if _, err = s.GetTheory(ctx, "thr-001", "9.9.9"); !errors.Is(err, variome.ErrNotFound) {
		t.Errorf("GetTheory of unknown version: got %v, want ErrNotFound", err)
	}
	if _, err = s.LatestTheory(ctx, "thr-missing"); !errors.Is(err, variome.ErrNotFound) {
		t.Errorf("LatestTheory of unknown ID: got %v, want ErrNotFound", err)
	}

	t110 := t100
	t110.Version = "1.1.0"
	t110.Scope = "CFTR modifier hypothesis, narrowed"
	if err = s.PutTheory(ctx, t110); err != nil {
		t.Fatal(err)
	}

	got, err = s.LatestTheory(ctx, "thr-001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != "1.1.0" {
		t.Errorf("LatestTheory got version %s, want 1.1.0", got.Version)
	}

	e1 := theory.Evidence{
		TheoryID:    "thr-001",
		Version:     "1.1.0",
		FamilyID:    "family-001",
		BayesFactor: 2.5,
		Type:        theory.Execution,
		Weight:      1,
		Source:      "run-42",
		At:          created,
	}
	e2 := e1
	e2.FamilyID = "family-002"
	e2.BayesFactor = 3
	e2.Type = theory.LiteratureReview

	if err = s.AddEvidence(ctx, e1); err != nil {
		t.Fatal(err)
	}
	if err = s.AddEvidence(ctx, e2); err != nil {
		t.Fatal(err)
	}

	var evidence []theory.Evidence
	err = s.ListEvidence(ctx, "thr-001", "1.1.0", func(e theory.Evidence) error {
		evidence = append(evidence, e)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]theory.Evidence{e1, e2}, evidence); diff != "" {
		t.Errorf("evidence mismatch (-want +got):\n%s", diff)
	}

	// A version with evidence is frozen; a version without is not.
	if err = s.PutTheory(ctx, t110); !errors.Is(err, theory.ErrFrozen) {
		t.Errorf("PutTheory of evidenced version: got %v, want ErrFrozen", err)
	}
	t100.Scope = "CFTR modifier hypothesis, revised"
	if err = s.PutTheory(ctx, t100); err != nil {
		t.Errorf("PutTheory of unevidenced version: %v", err)
	}

	fork := theory.Theory{
		ID:        "thr-002",
		Version:   "1.0.0",
		Scope:     t110.Scope,
		Criteria:  t110.Criteria,
		ParentID:  "thr-001",
		CreatedAt: created,
	}
	if err = s.PutTheory(ctx, fork); err != nil {
		t.Fatal(err)
	}

	var children []string
	err = s.ListChildren(ctx, "thr-001", func(c theory.Theory) error {
		children = append(children, c.ID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"thr-002"}, children); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}

	var all []string
	err = s.ListTheories(ctx, func(th theory.Theory) error {
		all = append(all, th.ID+"@"+th.Version)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"thr-001@1.0.0", "thr-001@1.1.0", "thr-002@1.0.0"}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("theory list mismatch (-want +got):\n%s", diff)
	}
}
