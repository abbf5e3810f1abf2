package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/variome/variome"
	"github.com/variome/variome/anchor"
	"github.com/variome/variome/store/mem"
)

func newIngester() (*Ingester, *mem.Store) {
	s := mem.New()
	return &Ingester{S: s, Locks: anchor.NewLocks(), Cfg: anchor.DefaultConfig}, s
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	ing, s := newIngester()

	records := []variome.Variant{
		{Position: 100, Ref: "A", Alt: "T", Quality: 30},
		{Position: 200, Ref: "G", Alt: "C", Quality: 40},
		{Position: 300, Ref: "T", Alt: "G", Quality: 50},
		{Position: 400, Ref: "C", Alt: "A", Quality: 20},
	}

	result, err := ing.Ingest(ctx, "ind-1", "GRCh38", records)
	if err != nil {
		t.Fatal(err)
	}
	if !result.AnchorCreated {
		t.Error("first ingest did not create an anchor")
	}
	if result.DiffCount != 0 {
		t.Errorf("first individual has %d diffs against its own anchor, want 0", result.DiffCount)
	}
	if len(result.Rejected) != 0 {
		t.Errorf("unexpected rejections: %v", result.Rejected)
	}

	// A second, slightly different individual reuses the anchor and
	// stores only its divergence.
	records[0].Alt = "G"
	result2, err := ing.Ingest(ctx, "ind-2", "GRCh38", records)
	if err != nil {
		t.Fatal(err)
	}
	if result2.AnchorCreated {
		t.Error("second ingest created a fresh anchor")
	}
	if result2.AnchorID != result.AnchorID {
		t.Errorf("second ingest used anchor %s, want %s", result2.AnchorID, result.AnchorID)
	}
	if result2.DiffCount != 1 {
		t.Errorf("got %d diffs, want 1", result2.DiffCount)
	}
	if result2.CompressionRatio <= 0 {
		t.Errorf("compression ratio %.2f, want > 0", result2.CompressionRatio)
	}

	// Both individuals materialize back to what was ingested.
	got, err := variome.Materialize(ctx, s, "ind-2", result2.AnchorID)
	if err != nil {
		t.Fatal(err)
	}
	want, err := variome.NewVariantSet(records)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestIngestPartialSuccess(t *testing.T) {
	ctx := context.Background()
	ing, s := newIngester()

	records := []variome.Variant{
		{Position: 100, Ref: "A", Alt: "T", Quality: 30},
		{Position: 0, Ref: "G", Alt: "C", Quality: 40},   // bad position
		{Position: 300, Ref: "T", Alt: "T", Quality: 50}, // alt == ref
		{Position: 400, Ref: "C", Alt: "A", Quality: 20},
	}

	result, err := ing.Ingest(ctx, "ind-1", "GRCh38", records)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rejected) != 2 {
		t.Fatalf("got %d rejections, want 2", len(result.Rejected))
	}
	for _, i := range []int{1, 2} {
		var m variome.MalformedRecordError
		if !errors.As(result.Rejected[i], &m) {
			t.Errorf("record %d: got %v, want MalformedRecordError", i, result.Rejected[i])
		}
	}

	// The valid remainder was stored.
	got, err := variome.Materialize(ctx, s, "ind-1", result.AnchorID)
	if err != nil {
		t.Fatal(err)
	}
	want, err := variome.NewVariantSet([]variome.Variant{records[0], records[3]})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestIngestAllMalformed(t *testing.T) {
	ctx := context.Background()
	ing, _ := newIngester()

	_, err := ing.Ingest(ctx, "ind-1", "GRCh38", []variome.Variant{
		{Position: 0, Ref: "A", Alt: "T"},
		{Position: 100, Ref: "", Alt: "T"},
	})
	var batch variome.BatchErr
	if !errors.As(err, &batch) {
		t.Fatalf("got %v, want BatchErr", err)
	}
	if len(batch) != 2 {
		t.Errorf("got %d errors, want 2", len(batch))
	}
}

func TestIngestMissingIndividual(t *testing.T) {
	ing, _ := newIngester()
	if _, err := ing.Ingest(context.Background(), "", "GRCh38", nil); err == nil {
		t.Error("got nil error for empty individual ID")
	}
}

func TestParseVariants(t *testing.T) {
	const input = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL
chr7	117559590	rs113993960	ATC	A	42.5
chr7	117587778	.	G	A	.

chr7	117642430	.	T	C
`
	records, err := ParseVariants(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := []variome.Variant{
		{Position: 117559590, Ref: "ATC", Alt: "A", Quality: 42.5},
		{Position: 117587778, Ref: "G", Alt: "A", Quality: 0.9},
		{Position: 117642430, Ref: "T", Alt: "C", Quality: 0.9},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVariantsErrors(t *testing.T) {
	cases := []string{
		"chr7	117559590	.	A\n",         // too few fields
		"chr7	xyz	.	A	T\n",             // non-numeric position
		"chr7	117559590	.	A	T	high\n", // non-numeric quality
	}
	for i, input := range cases {
		if _, err := ParseVariants(strings.NewReader(input)); err == nil {
			t.Errorf("case %d: got nil error", i+1)
		}
	}
}
