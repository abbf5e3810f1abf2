package variome

import "context"

// Getter is the read side of a Store (qv).
type Getter interface {
	// GetAnchor gets an anchor's metadata by ID.
	// It returns ErrNotFound for unknown IDs.
	GetAnchor(context.Context, string) (Anchor, error)

	// AnchorByFingerprint gets an anchor's metadata by content
	// fingerprint. It returns ErrNotFound if no anchor has that
	// fingerprint.
	AnchorByFingerprint(context.Context, Fingerprint) (Anchor, error)

	// AnchorVariants gets an anchor's variant-set payload.
	AnchorVariants(context.Context, string) (VariantSet, error)

	// GetDiffs gets an individual's diffs against the named anchor.
	// It returns ErrNotFound if the individual was never ingested under
	// that anchor; an individual whose data is identical to the anchor
	// has an empty, non-error diff set.
	GetDiffs(ctx context.Context, anchorID, individualID string) ([]Diff, error)

	// ListAnchors calls a function for each anchor carrying the given
	// reference label, in anchor-ID order. If the callback returns an
	// error, ListAnchors exits with that error.
	ListAnchors(ctx context.Context, referenceLabel string, f func(Anchor) error) error

	// ListIndividuals calls a function for each individual with diffs
	// recorded under the named anchor, in individual-ID order.
	ListIndividuals(ctx context.Context, anchorID string, f func(individualID string) error) error

	// ListRebases calls a function for each rebase event whose old
	// anchor is the named anchor, in event order.
	ListRebases(ctx context.Context, anchorID string, f func(RebaseEvent) error) error
}

// Store stores anchors and per-individual diffs.
//
// Diff writes for different individuals under the same anchor are
// independent and may proceed concurrently; the usage count is the only
// shared counter and implementations must bump it atomically.
type Store interface {
	Getter

	// PutAnchor adds an anchor and its payload if no anchor with the
	// same fingerprint is already present. It returns the canonical
	// anchor ID and a boolean that is true iff the anchor had to be
	// added.
	PutAnchor(context.Context, Anchor, VariantSet) (id string, added bool, err error)

	// PutDiffs records an individual's diffs against an anchor,
	// replacing any previous diff at the same position, and registers
	// the individual under the anchor even when diffs is empty. Each
	// call bumps the anchor's usage count by one.
	PutDiffs(ctx context.Context, anchorID, individualID string, diffs []Diff) error

	// Rebase atomically records one individual's recomputed diffs under
	// ev.NewAnchorID together with the rebase event. Diffs under the old
	// anchor are retained for historical materialization. The individual
	// is either fully rebased or not at all.
	Rebase(ctx context.Context, ev RebaseEvent, diffs []Diff) error
}

// PayloadGetter is the read side of a PayloadStore.
type PayloadGetter interface {
	// GetPayload gets a variant-set payload by its fingerprint.
	GetPayload(context.Context, Fingerprint) (VariantSet, error)
}

// PayloadStore stores immutable, content-addressed variant-set payloads.
// Because a payload's key is the hash of its content, entries never
// change once written.
type PayloadStore interface {
	PayloadGetter

	// PutPayload adds a payload if it was not already present.
	// It returns the payload's fingerprint and a boolean that is true
	// iff the payload had to be added.
	PutPayload(context.Context, VariantSet) (Fingerprint, bool, error)
}
