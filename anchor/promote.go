package anchor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/variome/variome"
)

// Locks serializes diff writes behind anchor rebases. Ingestion holds the
// read side of an anchor's lock while writing diffs; a rebase holds the
// write side, so concurrent diff writes for individuals under that anchor
// queue behind it. Reads (materialization) never take a lock.
//
// Locks is explicit shared state: construct one and hand the same
// instance to every Ingester and Promoter operating on a store.
type Locks struct {
	mu sync.Mutex
	m  map[string]*sync.RWMutex
}

// NewLocks produces a new Locks.
func NewLocks() *Locks {
	return &Locks{m: make(map[string]*sync.RWMutex)}
}

// ForAnchor returns the lock guarding diff writes under the named anchor.
func (l *Locks) ForAnchor(anchorID string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.m[anchorID]
	if !ok {
		mu = new(sync.RWMutex)
		l.m[anchorID] = mu
	}
	return mu
}

// Promoter decides when a frequently-diverging individual's data should
// become a new anchor, and performs the rebase.
type Promoter struct {
	s     variome.Store
	locks *Locks
	cfg   Config
}

// NewPromoter produces a Promoter over s. locks must be the same Locks
// instance used by ingestion against s.
func NewPromoter(s variome.Store, locks *Locks, cfg Config) *Promoter {
	return &Promoter{s: s, locks: locks, cfg: cfg}
}

// Evaluate reports whether the named anchor is due for promotion, and if
// so which individual's materialized data should become the new anchor.
//
// Promotion triggers when the number of divergent individuals (diff count
// above cfg.DivergentRatio of the anchor's size) reaches
// cfg.PromoteAfter, or when some individual's mean diff quality exceeds
// the anchor's own quality score.
func (p *Promoter) Evaluate(ctx context.Context, anchorID string) (candidateID string, due bool, err error) {
	a, err := p.s.GetAnchor(ctx, anchorID)
	if err != nil {
		return "", false, errors.Wrapf(err, "getting anchor %s", anchorID)
	}
	av, err := p.s.AnchorVariants(ctx, anchorID)
	if err != nil {
		return "", false, errors.Wrapf(err, "getting variants of anchor %s", anchorID)
	}

	var (
		divergent     int
		candidate     string
		candQuality   float64
		qualityBetter bool
		threshold     = int(p.cfg.DivergentRatio * float64(len(av)))
	)
	err = p.s.ListIndividuals(ctx, anchorID, func(individualID string) error {
		diffs, err := p.s.GetDiffs(ctx, anchorID, individualID)
		if err != nil {
			return errors.Wrapf(err, "getting diffs of %s", individualID)
		}
		if len(diffs) == 0 {
			return nil
		}
		var sum float64
		for _, d := range diffs {
			sum += d.Quality
		}
		mean := sum / float64(len(diffs))
		if len(diffs) > threshold {
			divergent++
			if candidate == "" || mean > candQuality {
				candidate, candQuality = individualID, mean
			}
		}
		if mean > a.Quality {
			qualityBetter = true
			if candidate == "" || mean > candQuality {
				candidate, candQuality = individualID, mean
			}
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}

	if candidate == "" {
		return "", false, nil
	}
	return candidate, divergent >= p.cfg.PromoteAfter || qualityBetter, nil
}

// Rebase promotes the named individual's materialized data to a new
// anchor and rebases every individual under the old anchor onto it.
//
// The old anchor's lock is held for writing throughout, so concurrent
// diff writes under it queue behind the rebase. Each individual is
// rebased atomically by the store; the old anchor and its diffs remain
// readable, so an interrupted rebase leaves some individuals on the old
// anchor and some on the new one, never in between.
func (p *Promoter) Rebase(ctx context.Context, oldAnchorID, candidateID string) (newAnchorID string, err error) {
	mu := p.locks.ForAnchor(oldAnchorID)
	mu.Lock()
	defer mu.Unlock()

	old, err := p.s.GetAnchor(ctx, oldAnchorID)
	if err != nil {
		return "", errors.Wrapf(err, "getting anchor %s", oldAnchorID)
	}

	promoted, err := variome.Materialize(ctx, p.s, candidateID, oldAnchorID)
	if err != nil {
		return "", errors.Wrapf(err, "materializing candidate %s", candidateID)
	}

	newAnchorID, _, err = p.s.PutAnchor(ctx, New(promoted, old.ReferenceLabel), promoted)
	if err != nil {
		return "", errors.Wrap(err, "creating promoted anchor")
	}

	var individuals []string
	err = p.s.ListIndividuals(ctx, oldAnchorID, func(individualID string) error {
		individuals = append(individuals, individualID)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "listing individuals")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, individualID := range individuals {
		individualID := individualID
		g.Go(func() error {
			full, err := variome.Materialize(gctx, p.s, individualID, oldAnchorID)
			if err != nil {
				return errors.Wrapf(err, "materializing %s", individualID)
			}
			diffs := variome.ComputeDiff(promoted, full)
			ev := variome.RebaseEvent{
				OldAnchorID:  oldAnchorID,
				NewAnchorID:  newAnchorID,
				IndividualID: individualID,
				At:           time.Now().UTC(),
			}
			return errors.Wrapf(p.s.Rebase(gctx, ev, diffs), "rebasing %s", individualID)
		})
	}
	if err = g.Wait(); err != nil {
		return "", err
	}

	return newAnchorID, nil
}
