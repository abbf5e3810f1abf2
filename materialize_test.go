package variome_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/variome/variome"
	"github.com/variome/variome/anchor"
	"github.com/variome/variome/store/mem"
)

func TestMaterialize(t *testing.T) {
	ctx := context.Background()
	s := mem.New()

	av, err := variome.NewVariantSet([]variome.Variant{
		{Position: 12345, Ref: "G", Alt: "A", Quality: 50},
		{Position: 23456, Ref: "T", Alt: "G", Quality: 40},
	})
	if err != nil {
		t.Fatal(err)
	}
	anchorID, _, err := s.PutAnchor(ctx, anchor.New(av, "GRCh38"), av)
	if err != nil {
		t.Fatal(err)
	}

	// Individual X differs from the anchor only at position 12345.
	err = s.PutDiffs(ctx, anchorID, "X", []variome.Diff{
		{Position: 12345, Ref: "A", Alt: "T", Quality: 55, At: time.Now().UTC()},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := variome.Materialize(ctx, s, "X", anchorID)
	if err != nil {
		t.Fatal(err)
	}
	want, err := variome.NewVariantSet([]variome.Variant{
		{Position: 12345, Ref: "G", Alt: "T", Quality: 55},
		{Position: 23456, Ref: "T", Alt: "G", Quality: 40},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// Materialization has no side effects: a second call yields the same
	// set.
	again, err := variome.Materialize(ctx, s, "X", anchorID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("repeated call mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterializeIdentical(t *testing.T) {
	ctx := context.Background()
	s := mem.New()

	av, err := variome.NewVariantSet([]variome.Variant{
		{Position: 100, Ref: "A", Alt: "T", Quality: 30},
	})
	if err != nil {
		t.Fatal(err)
	}
	anchorID, _, err := s.PutAnchor(ctx, anchor.New(av, "GRCh38"), av)
	if err != nil {
		t.Fatal(err)
	}

	// An individual whose data matched the anchor exactly has an empty
	// diff set and materializes to the anchor itself.
	if err = s.PutDiffs(ctx, anchorID, "Y", nil); err != nil {
		t.Fatal(err)
	}
	got, err := variome.Materialize(ctx, s, "Y", anchorID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(av, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterializeNotFound(t *testing.T) {
	ctx := context.Background()
	s := mem.New()

	av, err := variome.NewVariantSet([]variome.Variant{
		{Position: 100, Ref: "A", Alt: "T", Quality: 30},
	})
	if err != nil {
		t.Fatal(err)
	}
	anchorID, _, err := s.PutAnchor(ctx, anchor.New(av, "GRCh38"), av)
	if err != nil {
		t.Fatal(err)
	}

	if _, err = variome.Materialize(ctx, s, "Z", "anchor-missing"); !errors.Is(err, variome.ErrNotFound) {
		t.Errorf("unknown anchor: got %v, want ErrNotFound", err)
	}
	if _, err = variome.Materialize(ctx, s, "Z", anchorID); !errors.Is(err, variome.ErrNotFound) {
		t.Errorf("unknown individual: got %v, want ErrNotFound", err)
	}
}
