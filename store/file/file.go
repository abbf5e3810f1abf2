// Package file implements a variant store as a file hierarchy.
package file

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
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

// Store is a file-based implementation of a variant store.
//
// Read-modify-write sequences (usage counts, per-position diff merges)
// are guarded by a process-level mutex; the store is safe for concurrent
// use within one process only.
type Store struct {
	mu   sync.Mutex
	root string
}

// New produces a new Store storing data beneath `root`.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) anchorpath(anchorID string) string {
	return filepath.Join(s.root, "anchors", url.PathEscape(anchorID)+".json")
}

func (s *Store) fingerpath(fp variome.Fingerprint) string {
	return filepath.Join(s.root, "fingerprints", fp.String())
}

func (s *Store) payloadpath(fp variome.Fingerprint) string {
	return filepath.Join(s.root, "payloads", fp.String())
}

func (s *Store) diffpath(anchorID, individualID string) string {
	return filepath.Join(s.root, "diffs", url.PathEscape(anchorID), url.PathEscape(individualID)+".json")
}

func (s *Store) rebasepath(anchorID string) string {
	return filepath.Join(s.root, "rebases", url.PathEscape(anchorID)+".log")
}

func (s *Store) theorypath(theoryID, version string) string {
	return filepath.Join(s.root, "theories", url.PathEscape(theoryID)+"@"+version+".json")
}

func (s *Store) evidencepath(theoryID, version string) string {
	return filepath.Join(s.root, "evidence", url.PathEscape(theoryID)+"@"+version+".log")
}

// GetAnchor gets an anchor's metadata by ID.
func (s *Store) GetAnchor(_ context.Context, anchorID string) (variome.Anchor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAnchor(anchorID)
}

// Caller must obtain a lock.
func (s *Store) getAnchor(anchorID string) (variome.Anchor, error) {
	var a variome.Anchor
	err := readJSON(s.anchorpath(anchorID), &a)
	return a, err
}

// AnchorByFingerprint gets an anchor's metadata by content fingerprint.
func (s *Store) AnchorByFingerprint(_ context.Context, fp variome.Fingerprint) (variome.Anchor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idb, err := ioutil.ReadFile(s.fingerpath(fp))
	if os.IsNotExist(err) {
		return variome.Anchor{}, variome.ErrNotFound
	}
	if err != nil {
		return variome.Anchor{}, errors.Wrap(err, "reading fingerprint index")
	}
	return s.getAnchor(string(idb))
}

// AnchorVariants gets an anchor's variant-set payload.
func (s *Store) AnchorVariants(ctx context.Context, anchorID string) (variome.VariantSet, error) {
	a, err := s.GetAnchor(ctx, anchorID)
	if err != nil {
		return nil, err
	}
	return s.GetPayload(ctx, a.Fingerprint)
}

// GetDiffs gets an individual's diffs against the named anchor.
func (s *Store) GetDiffs(_ context.Context, anchorID, individualID string) ([]variome.Diff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getDiffs(anchorID, individualID)
}

// Caller must obtain a lock.
func (s *Store) getDiffs(anchorID, individualID string) ([]variome.Diff, error) {
	var diffs []variome.Diff
	if err := readJSON(s.diffpath(anchorID, individualID), &diffs); err != nil {
		return nil, err
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Position < diffs[j].Position })
	return diffs, nil
}

// ListAnchors calls f for each anchor carrying the given reference label,
// in anchor-ID order.
func (s *Store) ListAnchors(_ context.Context, referenceLabel string, f func(variome.Anchor) error) error {
	dir := filepath.Join(s.root, "anchors")
	infos, err := ioutil.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", dir)
	}

	var matched []variome.Anchor
	s.mu.Lock()
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		var a variome.Anchor
		if err := readJSON(filepath.Join(dir, info.Name()), &a); err != nil {
			s.mu.Unlock()
			return errors.Wrapf(err, "reading anchor file %s", info.Name())
		}
		if a.ReferenceLabel == referenceLabel {
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

// ListIndividuals calls f for each individual with a diff file under the
// named anchor, in individual-ID order.
func (s *Store) ListIndividuals(_ context.Context, anchorID string, f func(string) error) error {
	dir := filepath.Join(s.root, "diffs", url.PathEscape(anchorID))
	infos, err := ioutil.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", dir)
	}

	var ids []string
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(info.Name(), ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
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
	var evs []variome.RebaseEvent
	err := readLog(s.rebasepath(anchorID), func(line []byte) error {
		var ev variome.RebaseEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return errors.Wrap(err, "unmarshaling rebase event")
		}
		evs = append(evs, ev)
		return nil
	})
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if err := f(ev); err != nil {
			return err
		}
	}
	return nil
}

// PutAnchor adds an anchor and its payload if no anchor with the same
// fingerprint is already present.
func (s *Store) PutAnchor(ctx context.Context, a variome.Anchor, variants variome.VariantSet) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.fingerpath(a.Fingerprint)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", false, errors.Wrap(err, "ensuring fingerprint dir exists")
	}

	fl, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		idb, err := ioutil.ReadFile(path)
		if err != nil {
			return "", false, errors.Wrap(err, "reading fingerprint index")
		}
		return string(idb), false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "creating %s", path)
	}
	defer fl.Close()

	if _, err = fl.WriteString(a.ID); err != nil {
		return "", false, errors.Wrap(err, "writing fingerprint index")
	}
	if err = writeJSON(s.anchorpath(a.ID), a); err != nil {
		return "", false, errors.Wrap(err, "writing anchor file")
	}
	if err = s.putPayload(a.Fingerprint, variants); err != nil {
		return "", false, err
	}
	return a.ID, true, nil
}

// PutDiffs records an individual's diffs against an anchor, replacing any
// previous diff at the same position, and bumps the anchor's usage count.
func (s *Store) PutDiffs(_ context.Context, anchorID, individualID string, diffs []variome.Diff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.getAnchor(anchorID)
	if err != nil {
		return err
	}
	if err = s.putDiffs(anchorID, individualID, diffs); err != nil {
		return err
	}
	a.UsageCount++
	return errors.Wrap(writeJSON(s.anchorpath(anchorID), a), "updating usage count")
}

// Caller must obtain a lock.
func (s *Store) putDiffs(anchorID, individualID string, diffs []variome.Diff) error {
	existing, err := s.getDiffs(anchorID, individualID)
	if err != nil && !errors.Is(err, variome.ErrNotFound) {
		return err
	}

	byPos := make(map[int64]variome.Diff, len(existing)+len(diffs))
	for _, d := range existing {
		byPos[d.Position] = d
	}
	for _, d := range diffs {
		byPos[d.Position] = d
	}
	merged := make([]variome.Diff, 0, len(byPos))
	for _, d := range byPos {
		merged = append(merged, d)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Position < merged[j].Position })

	return errors.Wrap(writeJSON(s.diffpath(anchorID, individualID), merged), "writing diff file")
}

// Rebase records one individual's recomputed diffs under the new anchor
// together with the rebase event. Old diffs are retained.
func (s *Store) Rebase(_ context.Context, ev variome.RebaseEvent, diffs []variome.Diff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getAnchor(ev.NewAnchorID); err != nil {
		return errors.Wrapf(err, "getting anchor %s", ev.NewAnchorID)
	}
	if err := s.putDiffs(ev.NewAnchorID, ev.IndividualID, diffs); err != nil {
		return err
	}
	return appendLog(s.rebasepath(ev.OldAnchorID), ev)
}

// GetPayload gets a variant-set payload by fingerprint.
func (s *Store) GetPayload(_ context.Context, fp variome.Fingerprint) (variome.VariantSet, error) {
	path := s.payloadpath(fp)
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, variome.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return variome.DecodeVariantSet(data)
}

// PutPayload adds a payload if it was not already present.
func (s *Store) PutPayload(_ context.Context, variants variome.VariantSet) (variome.Fingerprint, bool, error) {
	fp := variants.Fingerprint()
	if _, err := os.Stat(s.payloadpath(fp)); err == nil {
		return fp, false, nil
	}
	err := s.putPayload(fp, variants)
	return fp, err == nil, err
}

func (s *Store) putPayload(fp variome.Fingerprint, variants variome.VariantSet) error {
	path := s.payloadpath(fp)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "ensuring payload dir exists")
	}
	return errors.Wrapf(ioutil.WriteFile(path, variants.Encode(), 0644), "writing %s", path)
}

// PutTheory adds or replaces a theory version. Replacing a version that
// already has evidence returns theory.ErrFrozen.
func (s *Store) PutTheory(_ context.Context, t theory.Theory) error {
	if _, err := theory.ParseVersion(t.Version); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if info, err := os.Stat(s.evidencepath(t.ID, t.Version)); err == nil && info.Size() > 0 {
		return theory.ErrFrozen
	}
	return errors.Wrap(writeJSON(s.theorypath(t.ID, t.Version), t), "writing theory file")
}

// GetTheory gets one theory version.
func (s *Store) GetTheory(_ context.Context, theoryID, version string) (theory.Theory, error) {
	var t theory.Theory
	err := readJSON(s.theorypath(theoryID, version), &t)
	return t, err
}

// LatestTheory gets the highest version of a theory ID.
func (s *Store) LatestTheory(ctx context.Context, theoryID string) (theory.Theory, error) {
	var (
		best  theory.Theory
		found bool
	)
	err := s.forTheoryFiles(func(t theory.Theory) error {
		if t.ID != theoryID {
			return nil
		}
		if !found {
			best, found = t, true
			return nil
		}
		bv, err := theory.ParseVersion(best.Version)
		if err != nil {
			return err
		}
		tv, err := theory.ParseVersion(t.Version)
		if err != nil {
			return err
		}
		if bv.Compare(tv) < 0 {
			best = t
		}
		return nil
	})
	if err != nil {
		return theory.Theory{}, err
	}
	if !found {
		return theory.Theory{}, variome.ErrNotFound
	}
	return best, nil
}

// ListTheories calls f for every stored theory version, in (ID, version)
// order.
func (s *Store) ListTheories(_ context.Context, f func(theory.Theory) error) error {
	return s.listTheories(func(theory.Theory) bool { return true }, f)
}

// ListChildren calls f for each theory whose parent is the named theory
// ID, in (ID, version) order.
func (s *Store) ListChildren(_ context.Context, theoryID string, f func(theory.Theory) error) error {
	return s.listTheories(func(t theory.Theory) bool { return t.ParentID == theoryID }, f)
}

func (s *Store) listTheories(keep func(theory.Theory) bool, f func(theory.Theory) error) error {
	var all []theory.Theory
	err := s.forTheoryFiles(func(t theory.Theory) error {
		if keep(t) {
			all = append(all, t)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].ID != all[j].ID {
			return all[i].ID < all[j].ID
		}
		vi, erri := theory.ParseVersion(all[i].Version)
		vj, errj := theory.ParseVersion(all[j].Version)
		if erri != nil || errj != nil {
			return all[i].Version < all[j].Version
		}
		return vi.Compare(vj) < 0
	})
	for _, t := range all {
		if err := f(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) forTheoryFiles(f func(theory.Theory) error) error {
	dir := filepath.Join(s.root, "theories")
	infos, err := ioutil.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", dir)
	}
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		var t theory.Theory
		if err := readJSON(filepath.Join(dir, info.Name()), &t); err != nil {
			return errors.Wrapf(err, "reading theory file %s", info.Name())
		}
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
	return appendLog(s.evidencepath(e.TheoryID, e.Version), e)
}

// ListEvidence calls f for each evidence record of one theory version, in
// append order.
func (s *Store) ListEvidence(_ context.Context, theoryID, version string, f func(theory.Evidence) error) error {
	return readLog(s.evidencepath(theoryID, version), func(line []byte) error {
		var e theory.Evidence
		if err := json.Unmarshal(line, &e); err != nil {
			return errors.Wrap(err, "unmarshaling evidence")
		}
		return f(e)
	})
}

func readJSON(path string, into interface{}) error {
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return variome.ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	return errors.Wrapf(json.Unmarshal(data, into), "unmarshaling %s", path)
}

func writeJSON(path string, val interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", filepath.Dir(path))
	}
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "marshaling")
	}
	return errors.Wrapf(ioutil.WriteFile(path, data, 0644), "writing %s", path)
}

func appendLog(path string, val interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", filepath.Dir(path))
	}
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "marshaling")
	}
	fl, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer fl.Close()

	if _, err = fl.Write(append(data, '\n')); err != nil {
		return errors.Wrapf(err, "appending to %s", path)
	}
	return nil
}

func readLog(path string, f func(line []byte) error) error {
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		if err := f([]byte(line)); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (store.Store, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
