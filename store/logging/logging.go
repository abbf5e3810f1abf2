// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/variome/variome"
	"github.com/variome/variome/store"
	"github.com/variome/variome/theory"
)

var _ store.Store = &Store{}

type Store struct {
	s store.Store
}

func New(s store.Store) *Store {
	return &Store{s: s}
}

func (s *Store) GetAnchor(ctx context.Context, anchorID string) (variome.Anchor, error) {
	a, err := s.s.GetAnchor(ctx, anchorID)
	if err != nil {
		log.Printf("ERROR GetAnchor %s: %s", anchorID, err)
	} else {
		log.Printf("GetAnchor %s", anchorID)
	}
	return a, err
}

func (s *Store) AnchorByFingerprint(ctx context.Context, fp variome.Fingerprint) (variome.Anchor, error) {
	a, err := s.s.AnchorByFingerprint(ctx, fp)
	if err != nil {
		log.Printf("ERROR AnchorByFingerprint %s: %s", fp, err)
	} else {
		log.Printf("AnchorByFingerprint %s: %s", fp, a.ID)
	}
	return a, err
}

func (s *Store) AnchorVariants(ctx context.Context, anchorID string) (variome.VariantSet, error) {
	variants, err := s.s.AnchorVariants(ctx, anchorID)
	if err != nil {
		log.Printf("ERROR AnchorVariants %s: %s", anchorID, err)
	} else {
		log.Printf("AnchorVariants %s: %d variants", anchorID, len(variants))
	}
	return variants, err
}

func (s *Store) GetDiffs(ctx context.Context, anchorID, individualID string) ([]variome.Diff, error) {
	diffs, err := s.s.GetDiffs(ctx, anchorID, individualID)
	if err != nil {
		log.Printf("ERROR GetDiffs(%s, %s): %s", anchorID, individualID, err)
	} else {
		log.Printf("GetDiffs(%s, %s): %d diffs", anchorID, individualID, len(diffs))
	}
	return diffs, err
}

func (s *Store) ListAnchors(ctx context.Context, referenceLabel string, f func(variome.Anchor) error) error {
	log.Printf("ListAnchors, label=%s", referenceLabel)
	return s.s.ListAnchors(ctx, referenceLabel, func(a variome.Anchor) error {
		err := f(a)
		if err != nil {
			log.Printf("  ERROR in ListAnchors: %s: %s", a.ID, err)
		} else {
			log.Printf("  ListAnchors: %s", a.ID)
		}
		return err
	})
}

func (s *Store) ListIndividuals(ctx context.Context, anchorID string, f func(string) error) error {
	log.Printf("ListIndividuals, anchor=%s", anchorID)
	return s.s.ListIndividuals(ctx, anchorID, func(individualID string) error {
		err := f(individualID)
		if err != nil {
			log.Printf("  ERROR in ListIndividuals: %s: %s", individualID, err)
		} else {
			log.Printf("  ListIndividuals: %s", individualID)
		}
		return err
	})
}

func (s *Store) ListRebases(ctx context.Context, anchorID string, f func(variome.RebaseEvent) error) error {
	log.Printf("ListRebases, anchor=%s", anchorID)
	return s.s.ListRebases(ctx, anchorID, func(ev variome.RebaseEvent) error {
		err := f(ev)
		if err != nil {
			log.Printf("  ERROR in ListRebases at (%s -> %s, %s): %s", ev.OldAnchorID, ev.NewAnchorID, ev.IndividualID, err)
		} else {
			log.Printf("  ListRebases: (%s -> %s, %s)", ev.OldAnchorID, ev.NewAnchorID, ev.IndividualID)
		}
		return err
	})
}

func (s *Store) PutAnchor(ctx context.Context, a variome.Anchor, variants variome.VariantSet) (string, bool, error) {
	id, added, err := s.s.PutAnchor(ctx, a, variants)
	if err != nil {
		log.Printf("ERROR in PutAnchor: %s", err)
	} else {
		log.Printf("PutAnchor %s, added=%v", id, added)
	}
	return id, added, err
}

func (s *Store) PutDiffs(ctx context.Context, anchorID, individualID string, diffs []variome.Diff) error {
	err := s.s.PutDiffs(ctx, anchorID, individualID, diffs)
	if err != nil {
		log.Printf("ERROR in PutDiffs(%s, %s): %s", anchorID, individualID, err)
	} else {
		log.Printf("PutDiffs(%s, %s): %d diffs", anchorID, individualID, len(diffs))
	}
	return err
}

func (s *Store) Rebase(ctx context.Context, ev variome.RebaseEvent, diffs []variome.Diff) error {
	err := s.s.Rebase(ctx, ev, diffs)
	if err != nil {
		log.Printf("ERROR in Rebase(%s -> %s, %s): %s", ev.OldAnchorID, ev.NewAnchorID, ev.IndividualID, err)
	} else {
		log.Printf("Rebase(%s -> %s, %s): %d diffs", ev.OldAnchorID, ev.NewAnchorID, ev.IndividualID, len(diffs))
	}
	return err
}

func (s *Store) PutTheory(ctx context.Context, t theory.Theory) error {
	err := s.s.PutTheory(ctx, t)
	if err != nil {
		log.Printf("ERROR in PutTheory %s@%s: %s", t.ID, t.Version, err)
	} else {
		log.Printf("PutTheory %s@%s", t.ID, t.Version)
	}
	return err
}

func (s *Store) GetTheory(ctx context.Context, theoryID, version string) (theory.Theory, error) {
	t, err := s.s.GetTheory(ctx, theoryID, version)
	if err != nil {
		log.Printf("ERROR GetTheory %s@%s: %s", theoryID, version, err)
	} else {
		log.Printf("GetTheory %s@%s", theoryID, version)
	}
	return t, err
}

func (s *Store) LatestTheory(ctx context.Context, theoryID string) (theory.Theory, error) {
	t, err := s.s.LatestTheory(ctx, theoryID)
	if err != nil {
		log.Printf("ERROR LatestTheory %s: %s", theoryID, err)
	} else {
		log.Printf("LatestTheory %s: %s", theoryID, t.Version)
	}
	return t, err
}

func (s *Store) ListTheories(ctx context.Context, f func(theory.Theory) error) error {
	log.Printf("ListTheories")
	return s.s.ListTheories(ctx, func(t theory.Theory) error {
		err := f(t)
		if err != nil {
			log.Printf("  ERROR in ListTheories: %s@%s: %s", t.ID, t.Version, err)
		} else {
			log.Printf("  ListTheories: %s@%s", t.ID, t.Version)
		}
		return err
	})
}

func (s *Store) ListChildren(ctx context.Context, theoryID string, f func(theory.Theory) error) error {
	log.Printf("ListChildren, parent=%s", theoryID)
	return s.s.ListChildren(ctx, theoryID, func(t theory.Theory) error {
		err := f(t)
		if err != nil {
			log.Printf("  ERROR in ListChildren: %s@%s: %s", t.ID, t.Version, err)
		} else {
			log.Printf("  ListChildren: %s@%s", t.ID, t.Version)
		}
		return err
	})
}

func (s *Store) AddEvidence(ctx context.Context, e theory.Evidence) error {
	err := s.s.AddEvidence(ctx, e)
	if err != nil {
		log.Printf("ERROR in AddEvidence %s@%s family=%s: %s", e.TheoryID, e.Version, e.FamilyID, err)
	} else {
		log.Printf("AddEvidence %s@%s family=%s bf=%g", e.TheoryID, e.Version, e.FamilyID, e.BayesFactor)
	}
	return err
}

func (s *Store) ListEvidence(ctx context.Context, theoryID, version string, f func(theory.Evidence) error) error {
	log.Printf("ListEvidence %s@%s", theoryID, version)
	return s.s.ListEvidence(ctx, theoryID, version, func(e theory.Evidence) error {
		err := f(e)
		if err != nil {
			log.Printf("  ERROR in ListEvidence: family %s: %s", e.FamilyID, err)
		} else {
			log.Printf("  ListEvidence: family %s", e.FamilyID)
		}
		return err
	})
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
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
		return New(nestedStore), nil
	})
}
