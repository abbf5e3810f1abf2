// Package ingest is the write boundary: it validates raw variant
// records, selects an anchor, and stores an individual's data as diffs.
package ingest

import (
	"context"

	"github.com/pkg/errors"

	"github.com/variome/variome"
	"github.com/variome/variome/anchor"
)

// Ingester stores individuals' variant data diff-compressed against
// anchors.
type Ingester struct {
	S     variome.Store
	Locks *anchor.Locks
	Cfg   anchor.Config
}

// Result describes one completed ingestion.
type Result struct {
	AnchorID      string
	AnchorCreated bool

	// DiffCount is the number of diffs stored. Zero means the
	// individual's data matched the anchor exactly.
	DiffCount int

	// CompressionRatio is the size of the full canonical encoding
	// relative to what was actually stored.
	CompressionRatio float64

	// Rejected maps input record indexes to their validation errors.
	// Rejected records do not block the rest of the batch.
	Rejected variome.BatchErr
}

// Ingest validates records, selects or creates an anchor for them, and
// stores the individual's diffs against it.
//
// Malformed records are skipped and reported in Result.Rejected while
// the valid remainder is stored. If every record is malformed, nothing
// is stored and the BatchErr is returned as the error.
func (ing *Ingester) Ingest(ctx context.Context, individualID, referenceLabel string, records []variome.Variant) (Result, error) {
	if individualID == "" {
		return Result{}, errors.New("missing individual ID")
	}

	var (
		valid    []variome.Variant
		rejected = variome.BatchErr{}
	)
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			rejected[i] = err
			continue
		}
		valid = append(valid, rec)
	}
	if len(valid) == 0 {
		return Result{Rejected: rejected}, rejected
	}

	variants, err := variome.NewVariantSet(valid)
	if err != nil {
		return Result{}, errors.Wrap(err, "canonicalizing records")
	}

	anchorID, created, err := anchor.Select(ctx, ing.S, variants, referenceLabel, ing.Cfg)
	if err != nil {
		return Result{}, errors.Wrap(err, "selecting anchor")
	}

	// Reads of the anchor payload and the diff write both happen under
	// the anchor's read lock, so a concurrent rebase cannot interleave.
	mu := ing.Locks.ForAnchor(anchorID)
	mu.RLock()
	defer mu.RUnlock()

	av, err := ing.S.AnchorVariants(ctx, anchorID)
	if err != nil {
		return Result{}, errors.Wrapf(err, "getting variants of anchor %s", anchorID)
	}
	diffs := variome.ComputeDiff(av, variants)
	if err := ing.S.PutDiffs(ctx, anchorID, individualID, diffs); err != nil {
		return Result{}, errors.Wrapf(err, "storing diffs for %s", individualID)
	}

	result := Result{
		AnchorID:         anchorID,
		AnchorCreated:    created,
		DiffCount:        len(diffs),
		CompressionRatio: compressionRatio(variants, diffs),
	}
	if len(rejected) > 0 {
		result.Rejected = rejected
	}
	return result, nil
}

// compressionRatio compares the canonical encoding of the full variant
// set against the storage footprint of the anchor reference plus diffs.
func compressionRatio(variants variome.VariantSet, diffs []variome.Diff) float64 {
	full := len(variants.Encode())

	stored := len(variome.ZeroFingerprint.String())
	for _, d := range diffs {
		stored += len(variome.VariantSet{{
			Position: d.Position,
			Ref:      d.Ref,
			Alt:      d.Alt,
			Quality:  d.Quality,
		}}.Encode())
	}
	if stored == 0 {
		return 0
	}
	return float64(full) / float64(stored)
}
