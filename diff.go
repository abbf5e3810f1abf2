package variome

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Diff is a single per-position divergence between an individual's
// variant set and its anchor.
//
// Ref records the anchor's allele at the position: the anchor variant's
// Alt where the anchor has a variant there, or the reference build's
// allele where it does not. Alt is the individual's allele. A diff whose
// Alt equals the anchor variant's reference allele is a reversion: the
// individual matches the build where the anchor does not.
type Diff struct {
	Position int64     `json:"position"`
	Ref      string    `json:"reference_allele"`
	Alt      string    `json:"alternate_allele"`
	Quality  float64   `json:"quality_score"`
	At       time.Time `json:"at"`
}

// ComputeDiff computes the minimal diff set that reconstructs individual
// from anchor. Positions where the two sets carry the same allele produce
// no diff. Both inputs must be canonical variant sets (see NewVariantSet).
//
// ComputeDiff followed by ApplyDiff reproduces the individual set
// exactly, except that a position where individual and anchor agree
// materializes with the anchor's quality score.
func ComputeDiff(anchor, individual VariantSet) []Diff {
	var (
		diffs []Diff
		now   = time.Now().UTC()
	)

	for _, v := range individual {
		a, ok := anchor.At(v.Position)
		if !ok {
			// Novel position: the anchor agrees with the build here,
			// so the build's allele is the implicit reference.
			diffs = append(diffs, Diff{
				Position: v.Position,
				Ref:      v.Ref,
				Alt:      v.Alt,
				Quality:  v.Quality,
				At:       now,
			})
			continue
		}
		if a.Alt != v.Alt {
			diffs = append(diffs, Diff{
				Position: v.Position,
				Ref:      a.Alt,
				Alt:      v.Alt,
				Quality:  v.Quality,
				At:       now,
			})
		}
	}

	for _, a := range anchor {
		if _, ok := individual.At(a.Position); ok {
			continue
		}
		// The individual matches the build where the anchor does not:
		// revert the anchor's variant.
		diffs = append(diffs, Diff{
			Position: a.Position,
			Ref:      a.Alt,
			Alt:      a.Ref,
			Quality:  a.Quality,
			At:       now,
		})
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Position < diffs[j].Position })
	return diffs
}

// ApplyDiff reconstructs an individual's variant set from an anchor and
// the individual's diffs against it. It is a pure function of its inputs.
//
// If two diffs are supplied for the same position, the later-timestamped
// one wins. Two conflicting diffs at one position with equal timestamps
// is an invariant violation and produces an error.
func ApplyDiff(anchor VariantSet, diffs []Diff) (VariantSet, error) {
	deduped := make(map[int64]Diff, len(diffs))
	for _, d := range diffs {
		if d.Position <= 0 {
			return nil, MalformedRecordError{Field: "position", Reason: "must be a positive integer"}
		}
		prev, ok := deduped[d.Position]
		if !ok || prev.At.Before(d.At) {
			deduped[d.Position] = d
			continue
		}
		if prev.At.Equal(d.At) && (prev.Alt != d.Alt || prev.Ref != d.Ref) {
			return nil, errors.Wrapf(ErrInvariant, "conflicting diffs at position %d with equal timestamps", d.Position)
		}
	}

	byPos := make(map[int64]Variant, len(anchor)+len(deduped))
	for _, a := range anchor {
		byPos[a.Position] = a
	}

	for pos, d := range deduped {
		a, ok := anchor.At(pos)
		if ok {
			if d.Alt == a.Ref {
				// Reversion to the build reference.
				delete(byPos, pos)
				continue
			}
			byPos[pos] = Variant{Position: pos, Ref: a.Ref, Alt: d.Alt, Quality: d.Quality}
			continue
		}
		byPos[pos] = Variant{Position: pos, Ref: d.Ref, Alt: d.Alt, Quality: d.Quality}
	}

	return setFromMap(byPos), nil
}
