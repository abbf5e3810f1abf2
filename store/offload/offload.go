// Package offload implements a store that keeps anchor metadata, diffs,
// and theories in a nested store while diverting anchor payloads to a
// separate payload store, typically cloud object storage.
package offload

import (
	"context"

	"github.com/pkg/errors"

	"github.com/variome/variome"
	"github.com/variome/variome/store"
	"github.com/variome/variome/store/gcs"
)

var (
	_ store.Store          = &Store{}
	_ variome.PayloadStore = &Store{}
)

// Store delegates everything to a nested store except anchor payloads,
// which live in a PayloadStore. Payloads are content-addressed by the
// anchor's fingerprint, so the two halves cannot disagree about content.
type Store struct {
	store.Store

	payloads variome.PayloadStore
}

// New produces a new Store keeping payloads in `p` and everything else
// in `s`.
func New(s store.Store, p variome.PayloadStore) *Store {
	return &Store{Store: s, payloads: p}
}

// AnchorVariants gets an anchor's variant-set payload from the payload
// store.
func (s *Store) AnchorVariants(ctx context.Context, anchorID string) (variome.VariantSet, error) {
	a, err := s.Store.GetAnchor(ctx, anchorID)
	if err != nil {
		return nil, err
	}
	return s.payloads.GetPayload(ctx, a.Fingerprint)
}

// PutAnchor adds an anchor, diverting its payload to the payload store.
// The payload is written first so a stored anchor always has readable
// variants.
func (s *Store) PutAnchor(ctx context.Context, a variome.Anchor, variants variome.VariantSet) (string, bool, error) {
	if _, _, err := s.payloads.PutPayload(ctx, variants); err != nil {
		return "", false, errors.Wrap(err, "offloading payload")
	}
	return s.Store.PutAnchor(ctx, a, variants)
}

// GetPayload gets a payload from the payload store.
func (s *Store) GetPayload(ctx context.Context, fp variome.Fingerprint) (variome.VariantSet, error) {
	return s.payloads.GetPayload(ctx, fp)
}

// PutPayload adds a payload to the payload store.
func (s *Store) PutPayload(ctx context.Context, variants variome.VariantSet) (variome.Fingerprint, bool, error) {
	return s.payloads.PutPayload(ctx, variants)
}

func init() {
	store.Register("offload", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedStore, err := store.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		payloads, err := gcs.FromConfig(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "creating payload store")
		}
		return New(nestedStore, payloads), nil
	})
}
