// Package mem implements an in-memory variant store.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/variome/variome"
	"github.com/variome/variome/store"
	"github.com/variome/variome/theory"
)

var (
	_ store.Store          = &Store{}
	_ variome.PayloadStore = &Store{}
)

// Store is a memory-based implementation of a variant store.
type Store struct {
	mu          sync.Mutex
	anchors     map[string]variome.Anchor
	fingers     map[variome.Fingerprint]string
	payloads    map[variome.Fingerprint]variome.VariantSet
	diffs       map[string]map[string]map[int64]variome.Diff
	rebases     map[string][]variome.RebaseEvent
	theories    map[string]map[string]theory.Theory
	evidence    map[string][]theory.Evidence
	anchorOrder []string
}

// New produces a new Store.
func New() *Store {
	return &Store{
		anchors:  make(map[string]variome.Anchor),
		fingers:  make(map[variome.Fingerprint]string),
		payloads: make(map[variome.Fingerprint]variome.VariantSet),
		diffs:    make(map[string]map[string]map[int64]variome.Diff),
		rebases:  make(map[string][]variome.RebaseEvent),
		theories: make(map[string]map[string]theory.Theory),
		evidence: make(map[string][]theory.Evidence),
	}
}

// GetAnchor gets an anchor's metadata by ID.
func (s *Store) GetAnchor(_ context.Context, anchorID string) (variome.Anchor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAnchor(anchorID)
}

// Caller must obtain a lock.
func (s *Store) getAnchor(anchorID string) (variome.Anchor, error) {
	if a, ok := s.anchors[anchorID]; ok {
		return a, nil
	}
	return variome.Anchor{}, variome.ErrNotFound
}

// AnchorByFingerprint gets an anchor's metadata by content fingerprint.
func (s *Store) AnchorByFingerprint(_ context.Context, fp variome.Fingerprint) (variome.Anchor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.fingers[fp]; ok {
		return s.anchors[id], nil
	}
	return variome.Anchor{}, variome.ErrNotFound
}

// AnchorVariants gets an anchor's variant-set payload.
func (s *Store) AnchorVariants(_ context.Context, anchorID string) (variome.VariantSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.getAnchor(anchorID)
	if err != nil {
		return nil, err
	}
	payload, ok := s.payloads[a.Fingerprint]
	if !ok {
		return nil, variome.ErrNotFound
	}
	return payload, nil
}

// GetDiffs gets an individual's diffs against the named anchor.
func (s *Store) GetDiffs(_ context.Context, anchorID, individualID string) ([]variome.Diff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPos, ok := s.diffs[anchorID][individualID]
	if !ok {
		return nil, variome.ErrNotFound
	}
	out := make([]variome.Diff, 0, len(byPos))
	for _, d := range byPos {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// ListAnchors calls f for each anchor carrying the given reference label,
// in anchor-ID order.
func (s *Store) ListAnchors(_ context.Context, referenceLabel string, f func(variome.Anchor) error) error {
	s.mu.Lock()
	matched := make([]variome.Anchor, 0, len(s.anchorOrder))
	for _, id := range s.anchorOrder {
		if a := s.anchors[id]; a.ReferenceLabel == referenceLabel {
			matched = append(matched, a)
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	for _, a := range matched {
		if err := f(a); err != nil {
			return err
		}
	}
	return nil
}

// ListIndividuals calls f for each individual with diffs recorded under
// the named anchor, in individual-ID order.
func (s *Store) ListIndividuals(_ context.Context, anchorID string, f func(string) error) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.diffs[anchorID]))
	for id := range s.diffs[anchorID] {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		if err := f(id); err != nil {
			return err
		}
	}
	return nil
}

// ListRebases calls f for each rebase event away from the named anchor,
// in event order.
func (s *Store) ListRebases(_ context.Context, anchorID string, f func(variome.RebaseEvent) error) error {
	s.mu.Lock()
	evs := make([]variome.RebaseEvent, len(s.rebases[anchorID]))
	copy(evs, s.rebases[anchorID])
	s.mu.Unlock()

	for _, ev := range evs {
		if err := f(ev); err != nil {
			return err
		}
	}
	return nil
}

// PutAnchor adds an anchor and its payload if no anchor with the same
// fingerprint is already present.
func (s *Store) PutAnchor(_ context.Context, a variome.Anchor, variants variome.VariantSet) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.fingers[a.Fingerprint]; ok {
		return id, false, nil
	}
	s.anchors[a.ID] = a
	s.fingers[a.Fingerprint] = a.ID
	s.payloads[a.Fingerprint] = variants
	s.anchorOrder = append(s.anchorOrder, a.ID)
	return a.ID, true, nil
}

// PutDiffs records an individual's diffs against an anchor, replacing any
// previous diff at the same position, and bumps the anchor's usage count.
func (s *Store) PutDiffs(_ context.Context, anchorID, individualID string, diffs []variome.Diff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getAnchor(anchorID); err != nil {
		return err
	}
	s.putDiffs(anchorID, individualID, diffs)

	a := s.anchors[anchorID]
	a.UsageCount++
	s.anchors[anchorID] = a
	return nil
}

// Caller must obtain a lock.
func (s *Store) putDiffs(anchorID, individualID string, diffs []variome.Diff) {
	if s.diffs[anchorID] == nil {
		s.diffs[anchorID] = make(map[string]map[int64]variome.Diff)
	}
	byPos := s.diffs[anchorID][individualID]
	if byPos == nil {
		byPos = make(map[int64]variome.Diff)
		s.diffs[anchorID][individualID] = byPos
	}
	for _, d := range diffs {
		byPos[d.Position] = d
	}
}

// Rebase atomically records one individual's recomputed diffs under the
// new anchor together with the rebase event. Old diffs are retained.
func (s *Store) Rebase(_ context.Context, ev variome.RebaseEvent, diffs []variome.Diff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getAnchor(ev.NewAnchorID); err != nil {
		return errors.Wrapf(err, "getting anchor %s", ev.NewAnchorID)
	}
	s.putDiffs(ev.NewAnchorID, ev.IndividualID, diffs)
	s.rebases[ev.OldAnchorID] = append(s.rebases[ev.OldAnchorID], ev)
	return nil
}

// GetPayload gets a variant-set payload by fingerprint.
func (s *Store) GetPayload(_ context.Context, fp variome.Fingerprint) (variome.VariantSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payload, ok := s.payloads[fp]; ok {
		return payload, nil
	}
	return nil, variome.ErrNotFound
}

// PutPayload adds a payload if it was not already present.
func (s *Store) PutPayload(_ context.Context, variants variome.VariantSet) (variome.Fingerprint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp := variants.Fingerprint()
	if _, ok := s.payloads[fp]; ok {
		return fp, false, nil
	}
	s.payloads[fp] = variants
	return fp, true, nil
}

// PutTheory adds or replaces a theory version. Replacing a version that
// already has evidence returns theory.ErrFrozen.
func (s *Store) PutTheory(_ context.Context, t theory.Theory) error {
	if _, err := theory.ParseVersion(t.Version); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.theories[t.ID][t.Version]; exists {
		if len(s.evidence[evidenceKey(t.ID, t.Version)]) > 0 {
			return theory.ErrFrozen
		}
	}
	if s.theories[t.ID] == nil {
		s.theories[t.ID] = make(map[string]theory.Theory)
	}
	s.theories[t.ID][t.Version] = t
	return nil
}

// GetTheory gets one theory version.
func (s *Store) GetTheory(_ context.Context, theoryID, version string) (theory.Theory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.theories[theoryID][version]; ok {
		return t, nil
	}
	return theory.Theory{}, variome.ErrNotFound
}

// LatestTheory gets the highest version of a theory ID.
func (s *Store) LatestTheory(_ context.Context, theoryID string) (theory.Theory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.theories[theoryID]
	if len(versions) == 0 {
		return theory.Theory{}, variome.ErrNotFound
	}

	var (
		best       theory.Theory
		bestParsed theory.Version
		found      bool
	)
	for vs, t := range versions {
		parsed, err := theory.ParseVersion(vs)
		if err != nil {
			return theory.Theory{}, err
		}
		if !found || bestParsed.Compare(parsed) < 0 {
			best, bestParsed, found = t, parsed, true
		}
	}
	return best, nil
}

// ListTheories calls f for every stored theory version, in (ID, version)
// order.
func (s *Store) ListTheories(_ context.Context, f func(theory.Theory) error) error {
	s.mu.Lock()
	all := make([]theory.Theory, 0, len(s.theories))
	for _, versions := range s.theories {
		for _, t := range versions {
			all = append(all, t)
		}
	}
	s.mu.Unlock()

	sortTheories(all)
	for _, t := range all {
		if err := f(t); err != nil {
			return err
		}
	}
	return nil
}

// ListChildren calls f for each theory whose parent is the named theory
// ID, in (ID, version) order.
func (s *Store) ListChildren(_ context.Context, theoryID string, f func(theory.Theory) error) error {
	s.mu.Lock()
	var children []theory.Theory
	for _, versions := range s.theories {
		for _, t := range versions {
			if t.ParentID == theoryID {
				children = append(children, t)
			}
		}
	}
	s.mu.Unlock()

	sortTheories(children)
	for _, t := range children {
		if err := f(t); err != nil {
			return err
		}
	}
	return nil
}

// AddEvidence appends one evidence record.
func (s *Store) AddEvidence(_ context.Context, e theory.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := evidenceKey(e.TheoryID, e.Version)
	s.evidence[key] = append(s.evidence[key], e)
	return nil
}

// ListEvidence calls f for each evidence record of one theory version.
func (s *Store) ListEvidence(_ context.Context, theoryID, version string, f func(theory.Evidence) error) error {
	s.mu.Lock()
	key := evidenceKey(theoryID, version)
	evs := make([]theory.Evidence, len(s.evidence[key]))
	copy(evs, s.evidence[key])
	s.mu.Unlock()

	for _, e := range evs {
		if err := f(e); err != nil {
			return err
		}
	}
	return nil
}

func evidenceKey(theoryID, version string) string {
	return theoryID + "@" + version
}

func sortTheories(ts []theory.Theory) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].ID != ts[j].ID {
			return ts[i].ID < ts[j].ID
		}
		vi, erri := theory.ParseVersion(ts[i].Version)
		vj, errj := theory.ParseVersion(ts[j].Version)
		if erri != nil || errj != nil {
			return ts[i].Version < ts[j].Version
		}
		return vi.Compare(vj) < 0
	})
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (store.Store, error) {
		return New(), nil
	})
}
