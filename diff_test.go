package variome

import (
	"errors"
	"testing"
	"testing/quick"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestComputeDiffIdentityIsEmpty(t *testing.T) {
	vs, err := NewVariantSet([]Variant{
		{Position: 100, Ref: "A", Alt: "T", Quality: 30},
		{Position: 200, Ref: "G", Alt: "C", Quality: 40},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diffs := ComputeDiff(vs, vs); len(diffs) != 0 {
		t.Errorf("got %d diffs for identical sets, want 0", len(diffs))
	}
}

func TestComputeDiff(t *testing.T) {
	anchor, err := NewVariantSet([]Variant{
		{Position: 100, Ref: "A", Alt: "T", Quality: 30},
		{Position: 200, Ref: "G", Alt: "C", Quality: 40},
	})
	if err != nil {
		t.Fatal(err)
	}
	individual, err := NewVariantSet([]Variant{
		{Position: 100, Ref: "A", Alt: "G", Quality: 35}, // changed allele
		{Position: 300, Ref: "T", Alt: "G", Quality: 50}, // novel position
		// position 200 absent: reversion to the build
	})
	if err != nil {
		t.Fatal(err)
	}

	diffs := ComputeDiff(anchor, individual)

	want := []Diff{
		{Position: 100, Ref: "T", Alt: "G", Quality: 35},
		{Position: 200, Ref: "C", Alt: "G", Quality: 40},
		{Position: 300, Ref: "T", Alt: "G", Quality: 50},
	}
	if len(diffs) != len(want) {
		t.Fatalf("got %d diffs, want %d", len(diffs), len(want))
	}
	for i, d := range diffs {
		d.At = time.Time{}
		if d != want[i] {
			t.Errorf("diff %d: got %+v, want %+v", i, d, want[i])
		}
	}
}

func TestDiffRoundTrip(t *testing.T) {
	f := func(anchorSeed, individualSeed []byte) bool {
		anchor := genSet(anchorSeed)
		individual := genSet(individualSeed)

		diffs := ComputeDiff(anchor, individual)
		got, err := ApplyDiff(anchor, diffs)
		if err != nil {
			t.Logf("ApplyDiff: %s", err)
			return false
		}

		if len(got) != len(individual) {
			t.Logf("got %d variants, want %d", len(got), len(individual))
			return false
		}
		for i := range got {
			g, w := got[i], individual[i]
			if g.Position != w.Position || g.Ref != w.Ref || g.Alt != w.Alt {
				t.Logf("variant %d: got %+v, want %+v", i, g, w)
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

var alleles = [...]string{"A", "C", "G", "T"}

// genSet derives a canonical variant set from a byte string. The
// reference allele is a function of position alone, so any two generated
// sets agree on it, like real variant sets against one build.
func genSet(seed []byte) VariantSet {
	var records []Variant
	for i, b := range seed {
		if b%4 == 0 {
			continue
		}
		pos := int64(i + 1)
		ref := alleles[pos%4]
		alt := alleles[(int(b)>>2)%4]
		if alt == ref {
			alt = alleles[(int(b)>>2+1)%4]
		}
		records = append(records, Variant{
			Position: pos,
			Ref:      ref,
			Alt:      alt,
			Quality:  float64(b%50) + 30,
		})
	}
	vs, err := NewVariantSet(records)
	if err != nil {
		panic(err)
	}
	return vs
}

func TestApplyDiffLaterWins(t *testing.T) {
	anchor, err := NewVariantSet([]Variant{
		{Position: 100, Ref: "A", Alt: "T", Quality: 30},
	})
	if err != nil {
		t.Fatal(err)
	}

	t1 := time.Now().UTC()
	t2 := t1.Add(time.Second)

	got, err := ApplyDiff(anchor, []Diff{
		{Position: 100, Ref: "T", Alt: "G", Quality: 35, At: t1},
		{Position: 100, Ref: "T", Alt: "C", Quality: 36, At: t2},
	})
	if err != nil {
		t.Fatal(err)
	}
	want, err := NewVariantSet([]Variant{
		{Position: 100, Ref: "A", Alt: "C", Quality: 36},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Order of supply must not matter.
	got2, err := ApplyDiff(anchor, []Diff{
		{Position: 100, Ref: "T", Alt: "C", Quality: 36, At: t2},
		{Position: 100, Ref: "T", Alt: "G", Quality: 35, At: t1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, got2); diff != "" {
		t.Errorf("supply order changed the result (-want +got):\n%s", diff)
	}
}

func TestApplyDiffEqualTimeConflict(t *testing.T) {
	at := time.Now().UTC()
	_, err := ApplyDiff(nil, []Diff{
		{Position: 100, Ref: "A", Alt: "G", Quality: 35, At: at},
		{Position: 100, Ref: "A", Alt: "C", Quality: 36, At: at},
	})
	if !errors.Is(err, ErrInvariant) {
		t.Errorf("got %v, want ErrInvariant", err)
	}

	// Identical duplicates are not a conflict.
	got, err := ApplyDiff(nil, []Diff{
		{Position: 100, Ref: "A", Alt: "G", Quality: 35, At: at},
		{Position: 100, Ref: "A", Alt: "G", Quality: 35, At: at},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d variants, want 1", len(got))
	}
}

func TestApplyDiffMalformedPosition(t *testing.T) {
	_, err := ApplyDiff(nil, []Diff{{Position: 0, Ref: "A", Alt: "G"}})
	var m MalformedRecordError
	if !errors.As(err, &m) {
		t.Errorf("got %v, want MalformedRecordError", err)
	}
}

func TestApplyDiffReversion(t *testing.T) {
	anchor, err := NewVariantSet([]Variant{
		{Position: 100, Ref: "A", Alt: "T", Quality: 30},
		{Position: 200, Ref: "G", Alt: "C", Quality: 40},
	})
	if err != nil {
		t.Fatal(err)
	}

	// The individual matches the build at position 200.
	got, err := ApplyDiff(anchor, []Diff{
		{Position: 200, Ref: "C", Alt: "G", Quality: 40, At: time.Now().UTC()},
	})
	if err != nil {
		t.Fatal(err)
	}
	want, err := NewVariantSet([]Variant{
		{Position: 100, Ref: "A", Alt: "T", Quality: 30},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
