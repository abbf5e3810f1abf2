// Package pg implements a Postgresql-based variant store.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrs "errors"
	"time"

	"github.com/bobg/sqlutil"
	_ "github.com/lib/pq" // register the postgres type for sql.Open
	"github.com/pkg/errors"

	"github.com/variome/variome"
	"github.com/variome/variome/store"
	"github.com/variome/variome/theory"
)

var (
	_ store.Store          = &Store{}
	_ variome.PayloadStore = &Store{}
)

// Store is a Postgresql-based variant store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the store's tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS anchors (
  id TEXT PRIMARY KEY NOT NULL,
  fingerprint BYTEA NOT NULL UNIQUE,
  reference_label TEXT NOT NULL,
  quality DOUBLE PRECISION NOT NULL,
  usage_count BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS anchor_label_idx ON anchors (reference_label, id);

CREATE TABLE IF NOT EXISTS payloads (
  fingerprint BYTEA PRIMARY KEY NOT NULL,
  data BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS individuals (
  anchor_id TEXT NOT NULL,
  individual_id TEXT NOT NULL,
  PRIMARY KEY (anchor_id, individual_id)
);

CREATE TABLE IF NOT EXISTS diffs (
  anchor_id TEXT NOT NULL,
  individual_id TEXT NOT NULL,
  position BIGINT NOT NULL,
  ref TEXT NOT NULL,
  alt TEXT NOT NULL,
  quality DOUBLE PRECISION NOT NULL,
  at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (anchor_id, individual_id, position)
);

CREATE TABLE IF NOT EXISTS rebases (
  seq BIGSERIAL PRIMARY KEY,
  old_anchor_id TEXT NOT NULL,
  new_anchor_id TEXT NOT NULL,
  individual_id TEXT NOT NULL,
  at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS rebase_idx ON rebases (old_anchor_id, seq);

CREATE TABLE IF NOT EXISTS theories (
  id TEXT NOT NULL,
  version TEXT NOT NULL,
  major INT NOT NULL,
  minor INT NOT NULL,
  patch INT NOT NULL,
  parent_id TEXT NOT NULL DEFAULT '',
  data BYTEA NOT NULL,
  PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS theory_parent_idx ON theories (parent_id);

CREATE TABLE IF NOT EXISTS evidence (
  seq BIGSERIAL PRIMARY KEY,
  theory_id TEXT NOT NULL,
  version TEXT NOT NULL,
  data BYTEA NOT NULL
);

CREATE INDEX IF NOT EXISTS evidence_idx ON evidence (theory_id, version, seq);
`

// New produces a new Store using `db` for storage.
// It expects to create the store's tables,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, err
}

// GetAnchor gets an anchor's metadata by ID.
func (s *Store) GetAnchor(ctx context.Context, anchorID string) (variome.Anchor, error) {
	const q = `SELECT id, fingerprint, reference_label, quality, usage_count, created_at FROM anchors WHERE id = $1`
	return s.queryAnchor(ctx, q, anchorID)
}

// AnchorByFingerprint gets an anchor's metadata by content fingerprint.
func (s *Store) AnchorByFingerprint(ctx context.Context, fp variome.Fingerprint) (variome.Anchor, error) {
	const q = `SELECT id, fingerprint, reference_label, quality, usage_count, created_at FROM anchors WHERE fingerprint = $1`
	return s.queryAnchor(ctx, q, fp[:])
}

func (s *Store) queryAnchor(ctx context.Context, q string, arg interface{}) (variome.Anchor, error) {
	var (
		a   variome.Anchor
		fpb []byte
	)
	err := s.db.QueryRowContext(ctx, q, arg).Scan(&a.ID, &fpb, &a.ReferenceLabel, &a.Quality, &a.UsageCount, &a.CreatedAt)
	if stderrs.Is(err, sql.ErrNoRows) {
		return variome.Anchor{}, variome.ErrNotFound
	}
	if err != nil {
		return variome.Anchor{}, errors.Wrap(err, "querying anchor")
	}
	a.Fingerprint = variome.FingerprintFromBytes(fpb)
	return a, nil
}

// AnchorVariants gets an anchor's variant-set payload.
func (s *Store) AnchorVariants(ctx context.Context, anchorID string) (variome.VariantSet, error) {
	const q = `SELECT payloads.data
		FROM anchors JOIN payloads ON anchors.fingerprint = payloads.fingerprint
		WHERE anchors.id = $1`

	var data []byte
	err := s.db.QueryRowContext(ctx, q, anchorID).Scan(&data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, variome.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying payload")
	}
	return variome.DecodeVariantSet(data)
}

// GetDiffs gets an individual's diffs against the named anchor.
func (s *Store) GetDiffs(ctx context.Context, anchorID, individualID string) ([]variome.Diff, error) {
	const q = `SELECT 1 FROM individuals WHERE anchor_id = $1 AND individual_id = $2`

	var one int
	err := s.db.QueryRowContext(ctx, q, anchorID, individualID).Scan(&one)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, variome.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying individual")
	}

	const q2 = `SELECT position, ref, alt, quality, at
		FROM diffs WHERE anchor_id = $1 AND individual_id = $2 ORDER BY position`

	var diffs []variome.Diff
	err = sqlutil.ForQueryRows(ctx, s.db, q2, anchorID, individualID, func(pos int64, ref, alt string, quality float64, at time.Time) {
		diffs = append(diffs, variome.Diff{Position: pos, Ref: ref, Alt: alt, Quality: quality, At: at})
	})
	return diffs, errors.Wrap(err, "querying diffs")
}

// ListAnchors calls f for each anchor carrying the given reference label,
// in anchor-ID order.
func (s *Store) ListAnchors(ctx context.Context, referenceLabel string, f func(variome.Anchor) error) error {
	const q = `SELECT id, fingerprint, quality, usage_count, created_at
		FROM anchors WHERE reference_label = $1 ORDER BY id`

	return sqlutil.ForQueryRows(ctx, s.db, q, referenceLabel, func(id string, fpb []byte, quality float64, usage int64, at time.Time) error {
		return f(variome.Anchor{
			ID:             id,
			Fingerprint:    variome.FingerprintFromBytes(fpb),
			ReferenceLabel: referenceLabel,
			Quality:        quality,
			UsageCount:     usage,
			CreatedAt:      at,
		})
	})
}

// ListIndividuals calls f for each individual registered under the named
// anchor, in individual-ID order.
func (s *Store) ListIndividuals(ctx context.Context, anchorID string, f func(string) error) error {
	const q = `SELECT individual_id FROM individuals WHERE anchor_id = $1 ORDER BY individual_id`
	return sqlutil.ForQueryRows(ctx, s.db, q, anchorID, f)
}

// ListRebases calls f for each rebase event away from the named anchor,
// in event order.
func (s *Store) ListRebases(ctx context.Context, anchorID string, f func(variome.RebaseEvent) error) error {
	const q = `SELECT new_anchor_id, individual_id, at
		FROM rebases WHERE old_anchor_id = $1 ORDER BY seq`

	return sqlutil.ForQueryRows(ctx, s.db, q, anchorID, func(newID, individualID string, at time.Time) error {
		return f(variome.RebaseEvent{
			OldAnchorID:  anchorID,
			NewAnchorID:  newID,
			IndividualID: individualID,
			At:           at,
		})
	})
}

// PutAnchor adds an anchor and its payload if no anchor with the same
// fingerprint is already present.
func (s *Store) PutAnchor(ctx context.Context, a variome.Anchor, variants variome.VariantSet) (string, bool, error) {
	const q = `INSERT INTO anchors (id, fingerprint, reference_label, quality, usage_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`

	res, err := s.db.ExecContext(ctx, q, a.ID, a.Fingerprint[:], a.ReferenceLabel, a.Quality, a.UsageCount, a.CreatedAt.UTC())
	if err != nil {
		return "", false, errors.Wrap(err, "inserting anchor")
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return "", false, errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		existing, err := s.AnchorByFingerprint(ctx, a.Fingerprint)
		if err != nil {
			return "", false, err
		}
		return existing.ID, false, nil
	}

	const q2 = `INSERT INTO payloads (fingerprint, data) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	_, err = s.db.ExecContext(ctx, q2, a.Fingerprint[:], variants.Encode())
	return a.ID, true, errors.Wrap(err, "inserting payload")
}

// PutDiffs records an individual's diffs against an anchor, replacing any
// previous diff at the same position, and bumps the anchor's usage count.
// The write is transactional.
func (s *Store) PutDiffs(ctx context.Context, anchorID, individualID string, diffs []variome.Diff) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `UPDATE anchors SET usage_count = usage_count + 1 WHERE id = $1`

	res, err := tx.ExecContext(ctx, q, anchorID)
	if err != nil {
		return errors.Wrap(err, "updating usage count")
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		return variome.ErrNotFound
	}

	if err = putDiffs(ctx, tx, anchorID, individualID, diffs); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing")
}

func putDiffs(ctx context.Context, tx *sql.Tx, anchorID, individualID string, diffs []variome.Diff) error {
	const q = `INSERT INTO individuals (anchor_id, individual_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	_, err := tx.ExecContext(ctx, q, anchorID, individualID)
	if err != nil {
		return errors.Wrap(err, "registering individual")
	}

	const q2 = `INSERT INTO diffs (anchor_id, individual_id, position, ref, alt, quality, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (anchor_id, individual_id, position)
		DO UPDATE SET ref = EXCLUDED.ref, alt = EXCLUDED.alt, quality = EXCLUDED.quality, at = EXCLUDED.at`

	for _, d := range diffs {
		_, err = tx.ExecContext(ctx, q2, anchorID, individualID, d.Position, d.Ref, d.Alt, d.Quality, d.At.UTC())
		if err != nil {
			return errors.Wrapf(err, "upserting diff at position %d", d.Position)
		}
	}
	return nil
}

// Rebase atomically records one individual's recomputed diffs under the
// new anchor together with the rebase event. Old diffs are retained.
func (s *Store) Rebase(ctx context.Context, ev variome.RebaseEvent, diffs []variome.Diff) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if err = putDiffs(ctx, tx, ev.NewAnchorID, ev.IndividualID, diffs); err != nil {
		return err
	}

	const q = `INSERT INTO rebases (old_anchor_id, new_anchor_id, individual_id, at) VALUES ($1, $2, $3, $4)`

	_, err = tx.ExecContext(ctx, q, ev.OldAnchorID, ev.NewAnchorID, ev.IndividualID, ev.At.UTC())
	if err != nil {
		return errors.Wrap(err, "inserting rebase event")
	}
	return errors.Wrap(tx.Commit(), "committing")
}

// GetPayload gets a variant-set payload by fingerprint.
func (s *Store) GetPayload(ctx context.Context, fp variome.Fingerprint) (variome.VariantSet, error) {
	const q = `SELECT data FROM payloads WHERE fingerprint = $1`

	var data []byte
	err := s.db.QueryRowContext(ctx, q, fp[:]).Scan(&data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, variome.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying payload")
	}
	return variome.DecodeVariantSet(data)
}

// PutPayload adds a payload if it was not already present.
func (s *Store) PutPayload(ctx context.Context, variants variome.VariantSet) (variome.Fingerprint, bool, error) {
	const q = `INSERT INTO payloads (fingerprint, data) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	fp := variants.Fingerprint()
	res, err := s.db.ExecContext(ctx, q, fp[:], variants.Encode())
	if err != nil {
		return variome.Fingerprint{}, false, errors.Wrap(err, "inserting payload")
	}
	aff, err := res.RowsAffected()
	return fp, aff > 0, errors.Wrap(err, "counting affected rows")
}

// PutTheory adds or replaces a theory version. Replacing a version that
// already has evidence returns theory.ErrFrozen.
func (s *Store) PutTheory(ctx context.Context, t theory.Theory) error {
	v, err := theory.ParseVersion(t.Version)
	if err != nil {
		return err
	}

	const q = `SELECT COUNT(*) FROM evidence WHERE theory_id = $1 AND version = $2`

	var n int
	if err := s.db.QueryRowContext(ctx, q, t.ID, t.Version).Scan(&n); err != nil {
		return errors.Wrap(err, "counting evidence")
	}
	if n > 0 {
		return theory.ErrFrozen
	}

	data, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "marshaling theory")
	}

	const q2 = `INSERT INTO theories (id, version, major, minor, patch, parent_id, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id, version) DO UPDATE SET parent_id = EXCLUDED.parent_id, data = EXCLUDED.data`

	_, err = s.db.ExecContext(ctx, q2, t.ID, t.Version, v.Major, v.Minor, v.Patch, t.ParentID, data)
	return errors.Wrap(err, "upserting theory")
}

// GetTheory gets one theory version.
func (s *Store) GetTheory(ctx context.Context, theoryID, version string) (theory.Theory, error) {
	const q = `SELECT data FROM theories WHERE id = $1 AND version = $2`
	return s.queryTheory(ctx, q, theoryID, version)
}

// LatestTheory gets the highest version of a theory ID.
func (s *Store) LatestTheory(ctx context.Context, theoryID string) (theory.Theory, error) {
	const q = `SELECT data FROM theories WHERE id = $1 ORDER BY major DESC, minor DESC, patch DESC LIMIT 1`
	return s.queryTheory(ctx, q, theoryID)
}

func (s *Store) queryTheory(ctx context.Context, q string, args ...interface{}) (theory.Theory, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return theory.Theory{}, variome.ErrNotFound
	}
	if err != nil {
		return theory.Theory{}, errors.Wrap(err, "querying theory")
	}
	var t theory.Theory
	err = json.Unmarshal(data, &t)
	return t, errors.Wrap(err, "unmarshaling theory")
}

// ListTheories calls f for every stored theory version, in (ID, version)
// order.
func (s *Store) ListTheories(ctx context.Context, f func(theory.Theory) error) error {
	const q = `SELECT data FROM theories ORDER BY id, major, minor, patch`
	return sqlutil.ForQueryRows(ctx, s.db, q, unmarshalTheories(f))
}

// ListChildren calls f for each theory whose parent is the named theory
// ID, in (ID, version) order.
func (s *Store) ListChildren(ctx context.Context, theoryID string, f func(theory.Theory) error) error {
	const q = `SELECT data FROM theories WHERE parent_id = $1 ORDER BY id, major, minor, patch`
	return sqlutil.ForQueryRows(ctx, s.db, q, theoryID, unmarshalTheories(f))
}

func unmarshalTheories(f func(theory.Theory) error) func([]byte) error {
	return func(data []byte) error {
		var t theory.Theory
		if err := json.Unmarshal(data, &t); err != nil {
			return errors.Wrap(err, "unmarshaling theory")
		}
		return f(t)
	}
}

// AddEvidence appends one evidence record.
func (s *Store) AddEvidence(ctx context.Context, e theory.Evidence) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshaling evidence")
	}

	const q = `INSERT INTO evidence (theory_id, version, data) VALUES ($1, $2, $3)`

	_, err = s.db.ExecContext(ctx, q, e.TheoryID, e.Version, data)
	return errors.Wrap(err, "inserting evidence")
}

// ListEvidence calls f for each evidence record of one theory version, in
// append order.
func (s *Store) ListEvidence(ctx context.Context, theoryID, version string, f func(theory.Evidence) error) error {
	const q = `SELECT data FROM evidence WHERE theory_id = $1 AND version = $2 ORDER BY seq`

	return sqlutil.ForQueryRows(ctx, s.db, q, theoryID, version, func(data []byte) error {
		var e theory.Evidence
		if err := json.Unmarshal(data, &e); err != nil {
			return errors.Wrap(err, "unmarshaling evidence")
		}
		return f(e)
	})
}

func init() {
	store.Register("pg", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("postgres", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
