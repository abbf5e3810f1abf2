// Package variome stores large variant datasets as differences against
// shared reference variant sets.
//
// An _anchor_ is a variant set that one or more individuals' data is
// stored against. Instead of persisting every individual's full variant
// set, the store keeps one copy of the anchor and, per individual, only
// the positions where that individual diverges from it: the _diffs_.
// Reconstructing an individual's full variant set from an anchor plus its
// diffs is _materialization_.
//
// Anchors are content-addressed: an anchor's fingerprint is the sha2-256
// hash of its variant set's canonical encoding, so identical data
// deduplicates to a single anchor. An anchor is never edited in place
// once diffs reference it. When too many individuals diverge too far from
// an anchor, a promotion creates a new anchor from one individual's
// materialized data and rebases the others onto it, recording an
// auditable rebase event per individual; the old anchor and its diffs
// remain readable for historical queries.
//
// Subpackages supply the anchor selection and promotion policy (anchor),
// the ingestion boundary (ingest), Bayesian evidence accumulation for
// research theories (theory), pluggable storage backends (store/...), and
// a CLI (cmd/variome).
package variome
