// Package anchor implements anchor selection and the promotion policy
// that keeps diffs small as individuals diverge.
package anchor

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/variome/variome"
)

// Config tunes anchor selection and promotion.
type Config struct {
	// MaxDiffRatio is the largest acceptable ratio of diff count to
	// individual variant count for reusing an existing anchor. Above
	// it, the individual becomes its own anchor.
	MaxDiffRatio float64

	// DivergentRatio is the ratio of an individual's diff count to the
	// anchor's variant count above which the individual counts as
	// divergent for promotion purposes.
	DivergentRatio float64

	// PromoteAfter is the number of divergent individuals under one
	// anchor that triggers promotion.
	PromoteAfter int
}

// DefaultConfig is a reasonable starting configuration.
var DefaultConfig = Config{
	MaxDiffRatio:   0.25,
	DivergentRatio: 0.1,
	PromoteAfter:   3,
}

// ID derives the canonical anchor ID for a payload fingerprint.
// Recreating an anchor from identical content yields the same ID.
func ID(fp variome.Fingerprint) string {
	return "anchor-" + fp.String()[:12]
}

// New builds anchor metadata for a variant set. The quality score is the
// mean of the constituent variants' quality scores at creation time and
// is never recomputed afterward.
func New(variants variome.VariantSet, referenceLabel string) variome.Anchor {
	fp := variants.Fingerprint()
	return variome.Anchor{
		ID:             ID(fp),
		Fingerprint:    fp,
		ReferenceLabel: referenceLabel,
		Quality:        variants.MeanQuality(),
		CreatedAt:      time.Now().UTC(),
	}
}

// Select chooses the anchor to store an individual's variants against.
//
// An anchor whose content fingerprint matches exactly is always reused.
// Otherwise Select reuses the anchor under the reference label with the
// fewest diffs against the variants, provided that count is within
// cfg.MaxDiffRatio of the variant count. If no anchor is close enough,
// the variants become their own new anchor.
func Select(ctx context.Context, s variome.Store, variants variome.VariantSet, referenceLabel string, cfg Config) (anchorID string, created bool, err error) {
	fp := variants.Fingerprint()
	if a, err := s.AnchorByFingerprint(ctx, fp); err == nil {
		return a.ID, false, nil
	} else if !errors.Is(err, variome.ErrNotFound) {
		return "", false, errors.Wrap(err, "looking up anchor by fingerprint")
	}

	var (
		best      string
		bestCount = -1
		limit     = int(cfg.MaxDiffRatio * float64(len(variants)))
	)
	err = s.ListAnchors(ctx, referenceLabel, func(a variome.Anchor) error {
		av, err := s.AnchorVariants(ctx, a.ID)
		if err != nil {
			return errors.Wrapf(err, "getting variants of anchor %s", a.ID)
		}
		n := len(variome.ComputeDiff(av, variants))
		if n <= limit && (bestCount < 0 || n < bestCount) {
			best, bestCount = a.ID, n
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if bestCount >= 0 {
		return best, false, nil
	}

	id, _, err := s.PutAnchor(ctx, New(variants, referenceLabel), variants)
	if err != nil {
		return "", false, errors.Wrap(err, "creating anchor")
	}
	return id, true, nil
}
