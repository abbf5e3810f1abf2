package theory

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifySupport(t *testing.T) {
	cases := []struct {
		posterior float64
		want      SupportClass
	}{
		{0, Weak},
		{0.49, Weak},
		{0.5, Moderate},
		{0.89, Moderate},
		{0.9, Strong},
		{1, Strong},
	}
	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			if got := ClassifySupport(c.posterior); got != c.want {
				t.Errorf("ClassifySupport(%g) = %s, want %s", c.posterior, got, c.want)
			}
		})
	}
}

func TestFamilyWeight(t *testing.T) {
	if got := familyWeight(0); got != 0 {
		t.Errorf("familyWeight(0) = %g, want 0", got)
	}
	if got := familyWeight(1); got != 0.5 {
		t.Errorf("familyWeight(1) = %g, want 0.5", got)
	}
	// Total weight rises toward 1, marginal weights shrink.
	for n := 1; n < 10; n++ {
		if familyWeight(n) >= 1 {
			t.Errorf("familyWeight(%d) = %g, want < 1", n, familyWeight(n))
		}
		marginal := familyWeight(n+1) - familyWeight(n)
		prev := familyWeight(n) - familyWeight(n-1)
		if marginal >= prev {
			t.Errorf("marginal weight grew at n=%d: %g >= %g", n, marginal, prev)
		}
	}
}

func evid(familyID string, bf float64) Evidence {
	return Evidence{
		TheoryID:    "thr-001",
		Version:     "1.0.0",
		FamilyID:    familyID,
		BayesFactor: bf,
		Type:        Execution,
		Weight:      1,
	}
}

func TestAccumulate(t *testing.T) {
	if got := accumulate(nil); got != 1 {
		t.Errorf("accumulate(nil) = %g, want 1", got)
	}

	// A single record gets exponent 1/2.
	got := accumulate([]Evidence{evid("family-001", 81)})
	if got != 9 {
		t.Errorf("accumulate single bf=81: %g, want 9", got)
	}

	// Independent families multiply.
	got = accumulate([]Evidence{evid("family-001", 4), evid("family-002", 9)})
	if want := 2.0 * 3.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("two families: %g, want %g", got, want)
	}
}

func TestAccumulateCommutative(t *testing.T) {
	records := []Evidence{
		evid("family-001", 2.5),
		evid("family-002", 3),
		evid("family-001", 0.5),
		evid("family-001", 10),
		evid("family-002", 1.5),
	}
	want := accumulate(records)

	reversed := make([]Evidence, len(records))
	for i, e := range records {
		reversed[len(records)-1-i] = e
	}
	if got := accumulate(reversed); math.Abs(got-want) > 1e-12 {
		t.Errorf("reversed order: %g, want %g", got, want)
	}
}

func TestAccumulateMonotone(t *testing.T) {
	base := []Evidence{
		evid("family-001", 10),
		evid("family-001", 3),
		evid("family-002", 0.25),
	}
	before := accumulate(base)

	// Supporting evidence can only raise the accumulated factor.
	if after := accumulate(append(base[:3:3], evid("family-001", 1.5))); after <= before {
		t.Errorf("bf>1 lowered the accumulated factor: %g <= %g", after, before)
	}
	if after := accumulate(append(base[:3:3], evid("family-003", 2))); after <= before {
		t.Errorf("new family bf>1 lowered the accumulated factor: %g <= %g", after, before)
	}

	// Contradicting evidence can only lower it.
	if after := accumulate(append(base[:3:3], evid("family-001", 0.8))); after >= before {
		t.Errorf("bf<1 raised the accumulated factor: %g >= %g", after, before)
	}

	// Neutral evidence changes nothing.
	if after := accumulate(append(base[:3:3], evid("family-002", 1))); math.Abs(after-before) > 1e-12 {
		t.Errorf("bf=1 changed the accumulated factor: %g != %g", after, before)
	}
}

func TestComputeSnapshot(t *testing.T) {
	// No evidence: the posterior is the prior.
	snap := ComputeSnapshot("thr-001", "1.0.0", 0.1, nil)
	if snap.Posterior != 0.1 || snap.AccumulatedBF != 1 {
		t.Errorf("zero evidence: posterior %g (BF %g), want 0.1 (1)", snap.Posterior, snap.AccumulatedBF)
	}
	if snap.Support != Weak {
		t.Errorf("zero evidence: support %s, want weak", snap.Support)
	}

	snap = ComputeSnapshot("thr-001", "1.0.0", 0.1, []Evidence{
		evid("family-001", 2.5),
		evid("family-002", 3),
	})
	wantBF := math.Sqrt(2.5) * math.Sqrt(3)
	if math.Abs(snap.AccumulatedBF-wantBF) > 1e-12 {
		t.Errorf("accumulated BF %g, want %g", snap.AccumulatedBF, wantBF)
	}
	wantPost := 0.1 * wantBF / (0.1*wantBF + 0.9)
	if math.Abs(snap.Posterior-wantPost) > 1e-12 {
		t.Errorf("posterior %g, want %g", snap.Posterior, wantPost)
	}
	if snap.Posterior <= 0.1 {
		t.Error("supporting evidence did not raise the posterior")
	}
	if snap.EvidenceCount != 2 || snap.FamiliesAnalyzed != 2 {
		t.Errorf("counts (%d, %d), want (2, 2)", snap.EvidenceCount, snap.FamiliesAnalyzed)
	}

	// An even prior and one family of odds 81:1 lands exactly on the
	// strong-support boundary.
	snap = ComputeSnapshot("thr-001", "1.0.0", 0.5, []Evidence{evid("family-001", 81)})
	if snap.Posterior != 0.9 {
		t.Errorf("posterior %v, want exactly 0.9", snap.Posterior)
	}
	if snap.Support != Strong {
		t.Errorf("support %s, want strong", snap.Support)
	}
}

func TestComputeStats(t *testing.T) {
	records := []Evidence{
		evid("family-001", 2.5),
		evid("family-002", 3),
		evid("family-001", 0.5),
	}
	records[1].Type = LiteratureReview

	got := ComputeStats(records)
	want := Stats{
		TotalEvidence:  3,
		UniqueFamilies: 2,
		TypeCounts: map[EvidenceType]int{
			Execution:        2,
			LiteratureReview: 1,
		},
		BayesFactors: BayesFactorRange{Min: 0.5, Max: 3, Mean: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	empty := ComputeStats(nil)
	if empty.TotalEvidence != 0 || empty.UniqueFamilies != 0 {
		t.Errorf("empty stats: %+v", empty)
	}
}
