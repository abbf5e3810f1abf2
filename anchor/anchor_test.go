package anchor

import (
	"context"
	"strings"
	"testing"

	"github.com/variome/variome"
	"github.com/variome/variome/store/mem"
)

func TestID(t *testing.T) {
	vs := mkset(t, variome.Variant{Position: 100, Ref: "A", Alt: "T", Quality: 30})

	id := ID(vs.Fingerprint())
	if !strings.HasPrefix(id, "anchor-") {
		t.Errorf("ID %s lacks anchor- prefix", id)
	}
	if id != ID(vs.Fingerprint()) {
		t.Error("ID is not deterministic")
	}

	other := mkset(t, variome.Variant{Position: 200, Ref: "G", Alt: "C", Quality: 40})
	if id == ID(other.Fingerprint()) {
		t.Error("different content produced equal IDs")
	}
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	s := mem.New()

	vs := mkset(t,
		variome.Variant{Position: 100, Ref: "A", Alt: "T", Quality: 30},
		variome.Variant{Position: 200, Ref: "G", Alt: "C", Quality: 40},
		variome.Variant{Position: 300, Ref: "T", Alt: "G", Quality: 50},
		variome.Variant{Position: 400, Ref: "C", Alt: "A", Quality: 20},
	)

	// First individual in an empty store becomes its own anchor.
	id1, created, err := Select(ctx, s, vs, "GRCh38", DefaultConfig)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("empty store: created=false, want true")
	}

	// Identical content short-circuits on the fingerprint.
	id, created, err := Select(ctx, s, vs, "GRCh38", DefaultConfig)
	if err != nil {
		t.Fatal(err)
	}
	if created || id != id1 {
		t.Errorf("identical content: got (%s, %v), want (%s, false)", id, created, id1)
	}

	// One changed allele in four variants is within MaxDiffRatio.
	near := mkset(t,
		variome.Variant{Position: 100, Ref: "A", Alt: "G", Quality: 31},
		variome.Variant{Position: 200, Ref: "G", Alt: "C", Quality: 40},
		variome.Variant{Position: 300, Ref: "T", Alt: "G", Quality: 50},
		variome.Variant{Position: 400, Ref: "C", Alt: "A", Quality: 20},
	)
	id, created, err = Select(ctx, s, near, "GRCh38", DefaultConfig)
	if err != nil {
		t.Fatal(err)
	}
	if created || id != id1 {
		t.Errorf("near content: got (%s, %v), want (%s, false)", id, created, id1)
	}

	// Entirely different content becomes a new anchor.
	far := mkset(t,
		variome.Variant{Position: 1100, Ref: "A", Alt: "T", Quality: 30},
		variome.Variant{Position: 1200, Ref: "G", Alt: "C", Quality: 40},
		variome.Variant{Position: 1300, Ref: "T", Alt: "G", Quality: 50},
		variome.Variant{Position: 1400, Ref: "C", Alt: "A", Quality: 20},
	)
	id2, created, err := Select(ctx, s, far, "GRCh38", DefaultConfig)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("far content: created=false, want true")
	}
	if id2 == id1 {
		t.Error("far content reused the near anchor")
	}
}

func mkset(t *testing.T, records ...variome.Variant) variome.VariantSet {
	t.Helper()
	vs, err := variome.NewVariantSet(records)
	if err != nil {
		t.Fatal(err)
	}
	return vs
}
