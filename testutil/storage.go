// Package testutil supplies conformance tests that every storage backend
// must pass.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/variome/variome"
	"github.com/variome/variome/anchor"
	"github.com/variome/variome/store"
)

// Storage exercises the anchor-and-diff half of a Store implementation:
// fingerprint dedup, diff registration and per-position replacement,
// usage counting, and rebase atomicity.
func Storage(ctx context.Context, t *testing.T, s store.Store) {
	vs1 := mkset(
		variome.Variant{Position: 100, Ref: "A", Alt: "T", Quality: 30},
		variome.Variant{Position: 200, Ref: "G", Alt: "C", Quality: 40},
		variome.Variant{Position: 300, Ref: "T", Alt: "G", Quality: 50},
	)

	a1 := anchor.New(vs1, "GRCh38")
	a1.CreatedAt = a1.CreatedAt.Round(time.Microsecond)

	id1, added, err := s.PutAnchor(ctx, a1, vs1)
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Error("first PutAnchor: added=false, want true")
	}
	if id1 != a1.ID {
		t.Errorf("got anchor ID %s, want %s", id1, a1.ID)
	}

	id, added, err := s.PutAnchor(ctx, a1, vs1)
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("duplicate PutAnchor: added=true, want false")
	}
	if id != id1 {
		t.Errorf("duplicate PutAnchor returned ID %s, want %s", id, id1)
	}

	got, err := s.GetAnchor(ctx, id1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a1, got); diff != "" {
		t.Errorf("anchor mismatch (-want +got):\n%s", diff)
	}

	got, err = s.AnchorByFingerprint(ctx, vs1.Fingerprint())
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id1 {
		t.Errorf("AnchorByFingerprint got %s, want %s", got.ID, id1)
	}

	if _, err = s.GetAnchor(ctx, "anchor-missing"); !errors.Is(err, variome.ErrNotFound) {
		t.Errorf("GetAnchor of unknown ID: got %v, want ErrNotFound", err)
	}
	if _, err = s.AnchorByFingerprint(ctx, variome.ZeroFingerprint); !errors.Is(err, variome.ErrNotFound) {
		t.Errorf("AnchorByFingerprint of unknown fingerprint: got %v, want ErrNotFound", err)
	}

	variants, err := s.AnchorVariants(ctx, id1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(vs1, variants); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	// An individual never ingested is distinct from one whose data
	// matched the anchor exactly.
	if _, err = s.GetDiffs(ctx, id1, "ind-1"); !errors.Is(err, variome.ErrNotFound) {
		t.Errorf("GetDiffs before ingestion: got %v, want ErrNotFound", err)
	}
	if err = s.PutDiffs(ctx, id1, "ind-1", nil); err != nil {
		t.Fatal(err)
	}
	diffs, err := s.GetDiffs(ctx, id1, "ind-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 0 {
		t.Errorf("got %d diffs, want 0", len(diffs))
	}

	t1 := time.Now().UTC().Round(time.Microsecond)
	t2 := t1.Add(time.Second)

	d100a := variome.Diff{Position: 100, Ref: "A", Alt: "G", Quality: 35, At: t1}
	d100b := variome.Diff{Position: 100, Ref: "A", Alt: "C", Quality: 36, At: t2}
	d400 := variome.Diff{Position: 400, Ref: "C", Alt: "T", Quality: 45, At: t1}

	if err = s.PutDiffs(ctx, id1, "ind-1", []variome.Diff{d100a, d400}); err != nil {
		t.Fatal(err)
	}
	if err = s.PutDiffs(ctx, id1, "ind-1", []variome.Diff{d100b}); err != nil {
		t.Fatal(err)
	}
	diffs, err = s.GetDiffs(ctx, id1, "ind-1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]variome.Diff{d100b, d400}, diffs); diff != "" {
		t.Errorf("diff mismatch after replacement (-want +got):\n%s", diff)
	}

	got, err = s.GetAnchor(ctx, id1)
	if err != nil {
		t.Fatal(err)
	}
	if got.UsageCount != 3 {
		t.Errorf("got usage count %d, want 3", got.UsageCount)
	}

	if err = s.PutDiffs(ctx, id1, "ind-0", []variome.Diff{d400}); err != nil {
		t.Fatal(err)
	}
	var individuals []string
	err = s.ListIndividuals(ctx, id1, func(individualID string) error {
		individuals = append(individuals, individualID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ind-0", "ind-1"}, individuals); diff != "" {
		t.Errorf("individual mismatch (-want +got):\n%s", diff)
	}

	var labeled []string
	err = s.ListAnchors(ctx, "GRCh38", func(a variome.Anchor) error {
		labeled = append(labeled, a.ID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{id1}, labeled); diff != "" {
		t.Errorf("anchor list mismatch (-want +got):\n%s", diff)
	}
	err = s.ListAnchors(ctx, "T2T", func(a variome.Anchor) error {
		t.Errorf("unexpected anchor %s under unused label", a.ID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// Rebase to a second anchor. Old diffs must survive for historical
	// reads, and the event must be auditable from the old anchor.
	vs2 := mkset(
		variome.Variant{Position: 100, Ref: "A", Alt: "C", Quality: 36},
		variome.Variant{Position: 200, Ref: "G", Alt: "C", Quality: 40},
		variome.Variant{Position: 300, Ref: "T", Alt: "G", Quality: 50},
	)
	a2 := anchor.New(vs2, "GRCh38")
	a2.CreatedAt = a2.CreatedAt.Round(time.Microsecond)
	id2, _, err := s.PutAnchor(ctx, a2, vs2)
	if err != nil {
		t.Fatal(err)
	}

	ev := variome.RebaseEvent{
		OldAnchorID:  id1,
		NewAnchorID:  id2,
		IndividualID: "ind-1",
		At:           t2,
	}
	if err = s.Rebase(ctx, ev, []variome.Diff{d400}); err != nil {
		t.Fatal(err)
	}

	diffs, err = s.GetDiffs(ctx, id2, "ind-1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]variome.Diff{d400}, diffs); diff != "" {
		t.Errorf("rebased diff mismatch (-want +got):\n%s", diff)
	}

	diffs, err = s.GetDiffs(ctx, id1, "ind-1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]variome.Diff{d100b, d400}, diffs); diff != "" {
		t.Errorf("old diffs not retained (-want +got):\n%s", diff)
	}

	var events []variome.RebaseEvent
	err = s.ListRebases(ctx, id1, func(ev variome.RebaseEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]variome.RebaseEvent{ev}, events); diff != "" {
		t.Errorf("rebase event mismatch (-want +got):\n%s", diff)
	}
}

func mkset(records ...variome.Variant) variome.VariantSet {
	vs, err := variome.NewVariantSet(records)
	if err != nil {
		panic(err)
	}
	return vs
}
