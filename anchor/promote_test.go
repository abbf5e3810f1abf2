package anchor

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/variome/variome"
	"github.com/variome/variome/store/mem"
)

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	s := mem.New()

	anchorID := putTestAnchor(ctx, t, s)
	p := NewPromoter(s, NewLocks(), DefaultConfig)

	// No individuals, nothing to promote.
	candidate, due, err := p.Evaluate(ctx, anchorID)
	if err != nil {
		t.Fatal(err)
	}
	if candidate != "" || due {
		t.Errorf("empty anchor: got (%q, %v), want (\"\", false)", candidate, due)
	}

	// An individual identical to the anchor is not divergent.
	if err = s.PutDiffs(ctx, anchorID, "ind-same", nil); err != nil {
		t.Fatal(err)
	}
	candidate, due, err = p.Evaluate(ctx, anchorID)
	if err != nil {
		t.Fatal(err)
	}
	if candidate != "" || due {
		t.Errorf("identical individual: got (%q, %v), want (\"\", false)", candidate, due)
	}

	putTestDiffs(ctx, t, s, anchorID)

	candidate, due, err = p.Evaluate(ctx, anchorID)
	if err != nil {
		t.Fatal(err)
	}
	if !due {
		t.Error("due=false with three divergent individuals")
	}
	// ind-c has the highest mean diff quality.
	if candidate != "ind-c" {
		t.Errorf("candidate %q, want ind-c", candidate)
	}
}

func TestRebase(t *testing.T) {
	ctx := context.Background()
	s := mem.New()

	oldID := putTestAnchor(ctx, t, s)
	putTestDiffs(ctx, t, s, oldID)

	// Record each individual's effective variants before the rebase.
	before := make(map[string]variome.VariantSet)
	for _, individualID := range []string{"ind-a", "ind-b", "ind-c"} {
		vs, err := variome.Materialize(ctx, s, individualID, oldID)
		if err != nil {
			t.Fatal(err)
		}
		before[individualID] = vs
	}

	p := NewPromoter(s, NewLocks(), DefaultConfig)
	newID, err := p.Rebase(ctx, oldID, "ind-c")
	if err != nil {
		t.Fatal(err)
	}
	if newID == oldID {
		t.Fatal("rebase produced the same anchor")
	}

	// The new anchor is the candidate's materialized data, so the
	// candidate's diffs under it are empty.
	diffs, err := s.GetDiffs(ctx, newID, "ind-c")
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 0 {
		t.Errorf("candidate has %d diffs under the new anchor, want 0", len(diffs))
	}

	// Rebasing must not change anyone's effective variants, and the old
	// anchor must remain readable.
	for individualID, want := range before {
		got, err := variome.Materialize(ctx, s, individualID, newID)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s changed under new anchor (-want +got):\n%s", individualID, diff)
		}
		got, err = variome.Materialize(ctx, s, individualID, oldID)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s changed under old anchor (-want +got):\n%s", individualID, diff)
		}
	}

	// One rebase event per individual, all pointing at the new anchor.
	var events int
	err = s.ListRebases(ctx, oldID, func(ev variome.RebaseEvent) error {
		events++
		if ev.NewAnchorID != newID {
			t.Errorf("event for %s names anchor %s, want %s", ev.IndividualID, ev.NewAnchorID, newID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if events != 3 {
		t.Errorf("got %d rebase events, want 3", events)
	}
}

func putTestAnchor(ctx context.Context, t *testing.T, s *mem.Store) string {
	t.Helper()
	av := mkset(t,
		variome.Variant{Position: 100, Ref: "A", Alt: "T", Quality: 30},
		variome.Variant{Position: 200, Ref: "G", Alt: "C", Quality: 40},
		variome.Variant{Position: 300, Ref: "T", Alt: "G", Quality: 50},
		variome.Variant{Position: 400, Ref: "C", Alt: "A", Quality: 20},
	)
	anchorID, _, err := s.PutAnchor(ctx, New(av, "GRCh38"), av)
	if err != nil {
		t.Fatal(err)
	}
	return anchorID
}

func putTestDiffs(ctx context.Context, t *testing.T, s *mem.Store, anchorID string) {
	t.Helper()
	now := time.Now().UTC()
	for individualID, diffs := range map[string][]variome.Diff{
		"ind-a": {{Position: 500, Ref: "G", Alt: "T", Quality: 60, At: now}},
		"ind-b": {{Position: 600, Ref: "A", Alt: "C", Quality: 45, At: now}},
		"ind-c": {
			{Position: 500, Ref: "G", Alt: "T", Quality: 60, At: now},
			{Position: 700, Ref: "T", Alt: "A", Quality: 80, At: now},
		},
	} {
		if err := s.PutDiffs(ctx, anchorID, individualID, diffs); err != nil {
			t.Fatal(err)
		}
	}
}
