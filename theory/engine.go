package theory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/variome/variome"
)

// ErrTimeout is the error returned when a theory execution exceeds its
// wall-clock budget. An execution either fully succeeds and produces one
// Bayes factor, or produces nothing.
var ErrTimeout = errors.New("execution budget exceeded")

// DefaultBudget is the wall-clock budget applied when the caller's
// context carries no deadline.
const DefaultBudget = 30 * time.Second

// Region is a gene's coordinate range on the reference build.
type Region struct {
	From, To int64
}

// Engine executes theories against materialized variant sets, producing
// one Bayes factor per family dataset.
type Engine struct {
	// Regions maps gene symbols named in theory criteria to coordinate
	// ranges.
	Regions map[string]Region

	// Budget bounds one execution. Zero means DefaultBudget.
	Budget time.Duration
}

// ExecutionResult is the result of executing one theory against one family's
// variants.
type ExecutionResult struct {
	TheoryID         string  `json:"theory_id"`
	Version          string  `json:"version"`
	FamilyID         string  `json:"family_id"`
	BayesFactor      float64 `json:"bayes_factor"`
	VariantsAnalyzed int     `json:"variants_analyzed"`
	GeneHits         int     `json:"gene_hits"`
	ElapsedMS        int64   `json:"execution_time_ms"`
	ArtifactHash     string  `json:"artifact_hash"`
}

// Execute runs one theory against a family's variant set under the
// engine's wall-clock budget. Exceeding the budget returns ErrTimeout
// and no partial result.
func (e *Engine) Execute(ctx context.Context, t Theory, variants variome.VariantSet, familyID string) (ExecutionResult, error) {
	budget := e.Budget
	if budget == 0 {
		budget = DefaultBudget
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	if ctx.Err() != nil {
		return ExecutionResult{}, ErrTimeout
	}

	ch := make(chan ExecutionResult, 1)
	go func() { ch <- e.run(t, variants, familyID) }()

	select {
	case <-ctx.Done():
		return ExecutionResult{}, ErrTimeout
	case result := <-ch:
		return result, nil
	}
}

func (e *Engine) run(t Theory, variants variome.VariantSet, familyID string) ExecutionResult {
	start := time.Now()

	hits := e.geneHits(t.Criteria.Genes, variants)
	likelihood := e.likelihood(t, hits)
	null := nullLikelihood(len(variants))

	elapsed := time.Since(start).Milliseconds()
	if elapsed < 1 {
		elapsed = 1
	}

	return ExecutionResult{
		TheoryID:         t.ID,
		Version:          t.Version,
		FamilyID:         familyID,
		BayesFactor:      likelihood / null,
		VariantsAnalyzed: len(variants),
		GeneHits:         hits,
		ElapsedMS:        elapsed,
		ArtifactHash:     artifactHash(t, variants, familyID),
	}
}

// likelihood scores the observed variants under the theory's criteria
// and likelihood weights.
func (e *Engine) likelihood(t Theory, geneHits int) float64 {
	weights := t.EvidenceModel.LikelihoodWeights

	likelihood := 1.0
	if len(t.Criteria.Genes) > 0 {
		w := weightOr(weights, "variant_hit", 1.0)
		likelihood *= 1 + float64(geneHits)*w
	}
	if n := len(t.Criteria.Pathways); n > 0 {
		w := weightOr(weights, "pathway", 1.0)
		likelihood *= 1 + float64(n)*w*0.1
	}
	return likelihood
}

func (e *Engine) geneHits(genes []string, variants variome.VariantSet) int {
	var hits int
	for _, v := range variants {
		for _, gene := range genes {
			region, ok := e.Regions[gene]
			if ok && region.From <= v.Position && v.Position <= region.To {
				hits++
				break
			}
		}
	}
	return hits
}

// nullLikelihood models random variants at a baseline rate.
func nullLikelihood(variantCount int) float64 {
	const baselineRate = 0.001
	return math.Max(baselineRate*float64(variantCount), baselineRate)
}

// artifactHash is a reproducibility hash binding a result to its exact
// inputs.
func artifactHash(t Theory, variants variome.VariantSet, familyID string) string {
	content := struct {
		TheoryID  string `json:"theory_id"`
		Version   string `json:"theory_version"`
		InputHash string `json:"input_hash"`
		FamilyID  string `json:"family_id"`
	}{
		TheoryID:  t.ID,
		Version:   t.Version,
		InputHash: variants.Fingerprint().String(),
		FamilyID:  familyID,
	}
	b, _ := json.Marshal(content)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func weightOr(weights map[string]float64, key string, fallback float64) float64 {
	if w, ok := weights[key]; ok {
		return w
	}
	return fallback
}
