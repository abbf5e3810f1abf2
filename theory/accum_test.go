package theory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/variome/variome"
	"github.com/variome/variome/store/mem"
	"github.com/variome/variome/theory"
)

func putTestTheory(ctx context.Context, t *testing.T, s *mem.Store) theory.Theory {
	t.Helper()
	thr := theory.Theory{
		ID:      "thr-001",
		Version: "1.0.0",
		Scope:   "CFTR modifier hypothesis",
		Criteria: theory.Criteria{
			Genes:      []string{"CFTR", "TGFB1"},
			Phenotypes: []string{"pulmonary decline"},
		},
		EvidenceModel: theory.EvidenceModel{
			Prior:             0.1,
			LikelihoodWeights: map[string]float64{"variant_hit": 2},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.PutTheory(ctx, thr); err != nil {
		t.Fatal(err)
	}
	return thr
}

func testEvidence(familyID string, bf float64) theory.Evidence {
	return theory.Evidence{
		TheoryID:    "thr-001",
		Version:     "1.0.0",
		FamilyID:    familyID,
		BayesFactor: bf,
		Type:        theory.VariantSegregation,
		Weight:      1,
	}
}

func TestAccumulatorAddEvidence(t *testing.T) {
	ctx := context.Background()
	s := mem.New()
	putTestTheory(ctx, t, s)
	acc := theory.NewAccumulator(s)

	// Invalid records are rejected before touching the store.
	bad := testEvidence("family-001", 0)
	var invalid theory.InvalidEvidenceError
	if err := acc.AddEvidence(ctx, bad); !errors.As(err, &invalid) {
		t.Errorf("got %v, want InvalidEvidenceError", err)
	}

	// Unknown theory versions are rejected.
	missing := testEvidence("family-001", 2)
	missing.Version = "9.0.0"
	if err := acc.AddEvidence(ctx, missing); !errors.Is(err, variome.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	if err := acc.AddEvidence(ctx, testEvidence("family-001", 2)); err != nil {
		t.Fatal(err)
	}

	// A zero timestamp is filled at append time.
	var got []theory.Evidence
	err := s.ListEvidence(ctx, "thr-001", "1.0.0", func(e theory.Evidence) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].At.IsZero() {
		t.Error("stored record has a zero timestamp")
	}
}

func TestAccumulatorPosterior(t *testing.T) {
	ctx := context.Background()
	s := mem.New()
	putTestTheory(ctx, t, s)
	acc := theory.NewAccumulator(s)

	if _, err := acc.Posterior(ctx, "thr-001", "1.0.0", -0.1); err == nil {
		t.Error("negative prior: got nil error")
	}
	if _, err := acc.Posterior(ctx, "thr-001", "1.0.0", 1.1); err == nil {
		t.Error("prior above one: got nil error")
	}
	if _, err := acc.Posterior(ctx, "thr-404", "1.0.0", 0.1); !errors.Is(err, variome.ErrNotFound) {
		t.Error("unknown theory: want ErrNotFound")
	}

	// With zero evidence the posterior is the prior.
	snap, err := acc.Posterior(ctx, "thr-001", "1.0.0", 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Posterior != 0.1 || snap.EvidenceCount != 0 {
		t.Errorf("zero evidence: posterior %g, count %d", snap.Posterior, snap.EvidenceCount)
	}

	for _, e := range []theory.Evidence{
		testEvidence("family-001", 4),
		testEvidence("family-002", 9),
		testEvidence("family-002", 0.5),
	} {
		if err = acc.AddEvidence(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	snap, err = acc.Posterior(ctx, "thr-001", "1.0.0", 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if snap.EvidenceCount != 3 || snap.FamiliesAnalyzed != 2 {
		t.Errorf("counts (%d, %d), want (3, 2)", snap.EvidenceCount, snap.FamiliesAnalyzed)
	}
	if snap.Posterior <= 0.1 {
		t.Errorf("net supporting evidence left posterior at %g", snap.Posterior)
	}
}

func TestAccumulatorStats(t *testing.T) {
	ctx := context.Background()
	s := mem.New()
	putTestTheory(ctx, t, s)
	acc := theory.NewAccumulator(s)

	lit := testEvidence("family-002", 3)
	lit.Type = theory.LiteratureReview
	for _, e := range []theory.Evidence{
		testEvidence("family-001", 2),
		lit,
	} {
		if err := acc.AddEvidence(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := acc.Stats(ctx, "thr-001", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEvidence != 2 || stats.UniqueFamilies != 2 {
		t.Errorf("counts (%d, %d), want (2, 2)", stats.TotalEvidence, stats.UniqueFamilies)
	}
	if stats.TypeCounts[theory.VariantSegregation] != 1 || stats.TypeCounts[theory.LiteratureReview] != 1 {
		t.Errorf("type counts %v", stats.TypeCounts)
	}
	if stats.BayesFactors.Min != 2 || stats.BayesFactors.Max != 3 || stats.BayesFactors.Mean != 2.5 {
		t.Errorf("range %+v", stats.BayesFactors)
	}
}
