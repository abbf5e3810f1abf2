// Package lru implements a store that caches anchor payloads from a nested store
// in a least-recently-used cache.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/variome/variome"
	"github.com/variome/variome/store"
)

var _ store.Store = &Store{}

// Store implements a memory-based least-recently-used cache for anchor
// payloads. Payloads are content-addressed and immutable, so cached
// entries never go stale. Everything other than AnchorVariants passes
// through to the nested store.
type Store struct {
	store.Store

	c *lru.Cache // anchorID -> variome.VariantSet
}

// New produces a new Store backed by `s` and caching up to `size` anchor
// payloads.
func New(s store.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{Store: s, c: c}, err
}

// AnchorVariants gets an anchor's variant-set payload, from cache when
// possible.
func (s *Store) AnchorVariants(ctx context.Context, anchorID string) (variome.VariantSet, error) {
	if got, ok := s.c.Get(anchorID); ok {
		return got.(variome.VariantSet), nil
	}
	variants, err := s.Store.AnchorVariants(ctx, anchorID)
	if err != nil {
		return nil, err
	}
	s.c.Add(anchorID, variants)
	return variants, nil
}

// PutAnchor adds an anchor to the nested store and warms the cache.
func (s *Store) PutAnchor(ctx context.Context, a variome.Anchor, variants variome.VariantSet) (string, bool, error) {
	id, added, err := s.Store.PutAnchor(ctx, a, variants)
	if err != nil {
		return id, added, err
	}
	s.c.Add(id, variants)
	return id, added, nil
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		size, ok := conf["size"].(int)
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
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
		return New(nestedStore, size)
	})
}
