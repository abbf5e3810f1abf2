package theory

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Fork creates a new theory derived from an existing version. The fork
// inherits the parent's scope, criteria, and evidence model as a starting
// point (the caller may modify and re-put it before recording evidence)
// and starts at version 1.0.0 with zero evidence records.
func Fork(ctx context.Context, s Store, parentID, parentVersion, newID string) (Theory, error) {
	if newID == "" {
		return Theory{}, errors.New("missing new theory ID")
	}
	if newID == parentID {
		return Theory{}, errors.New("fork must use a new theory ID")
	}
	parent, err := s.GetTheory(ctx, parentID, parentVersion)
	if err != nil {
		return Theory{}, errors.Wrapf(err, "getting parent theory %s@%s", parentID, parentVersion)
	}

	forked := Theory{
		ID:            newID,
		Version:       "1.0.0",
		Scope:         parent.Scope,
		Criteria:      cloneCriteria(parent.Criteria),
		EvidenceModel: cloneModel(parent.EvidenceModel),
		ParentID:      parent.ID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.PutTheory(ctx, forked); err != nil {
		return Theory{}, errors.Wrap(err, "storing fork")
	}
	return forked, nil
}

// Ancestry returns a theory's ancestor IDs, nearest first, by walking
// parent pointers. A cycle in the walk returns ErrLineageCycle: forks
// point only at pre-existing theories, so a cycle is a stored-data
// defect.
func Ancestry(ctx context.Context, s Store, theoryID string) ([]string, error) {
	var (
		ancestors []string
		visited   = map[string]struct{}{theoryID: {}}
	)

	current, err := s.LatestTheory(ctx, theoryID)
	if err != nil {
		return nil, errors.Wrapf(err, "getting theory %s", theoryID)
	}
	for current.ParentID != "" {
		parentID := current.ParentID
		if _, ok := visited[parentID]; ok {
			return nil, errors.Wrapf(ErrLineageCycle, "walking ancestry of %s", theoryID)
		}
		visited[parentID] = struct{}{}
		ancestors = append(ancestors, parentID)

		current, err = s.LatestTheory(ctx, parentID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting ancestor theory %s", parentID)
		}
	}
	return ancestors, nil
}

// Children returns the IDs of the direct forks of a theory.
func Children(ctx context.Context, s Store, theoryID string) ([]string, error) {
	var (
		children []string
		seen     = make(map[string]struct{})
	)
	err := s.ListChildren(ctx, theoryID, func(t Theory) error {
		if _, ok := seen[t.ID]; !ok {
			seen[t.ID] = struct{}{}
			children = append(children, t.ID)
		}
		return nil
	})
	return children, errors.Wrapf(err, "listing children of %s", theoryID)
}

func cloneCriteria(c Criteria) Criteria {
	return Criteria{
		Genes:      append([]string(nil), c.Genes...),
		Pathways:   append([]string(nil), c.Pathways...),
		Phenotypes: append([]string(nil), c.Phenotypes...),
	}
}

func cloneModel(m EvidenceModel) EvidenceModel {
	out := EvidenceModel{Prior: m.Prior}
	if m.LikelihoodWeights != nil {
		out.LikelihoodWeights = make(map[string]float64, len(m.LikelihoodWeights))
		for k, v := range m.LikelihoodWeights {
			out.LikelihoodWeights[k] = v
		}
	}
	return out
}
