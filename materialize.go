package variome

import (
	"context"

	"github.com/pkg/errors"
)

// Materialize reconstructs an individual's effective variant set from the
// named anchor and the individual's diffs against it.
//
// A diff is only meaningful relative to the anchor it was computed
// against, so the anchor ID is always explicit; an individual rebased to
// a newer anchor remains materializable under the old one.
//
// Materialize returns ErrNotFound for an unknown anchor and for an
// individual never ingested under it. With no intervening writes,
// repeated calls yield identical output.
func Materialize(ctx context.Context, g Getter, individualID, anchorID string) (VariantSet, error) {
	anchor, err := g.AnchorVariants(ctx, anchorID)
	if err != nil {
		return nil, errors.Wrapf(err, "getting variants of anchor %s", anchorID)
	}
	diffs, err := g.GetDiffs(ctx, anchorID, individualID)
	if err != nil {
		return nil, errors.Wrapf(err, "getting diffs of %s under anchor %s", individualID, anchorID)
	}
	return ApplyDiff(anchor, diffs)
}
