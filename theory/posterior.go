package theory

import (
	"fmt"
	"math"
	"sort"
)

// SupportClass is the coarse bucketing of a theory's posterior
// probability.
type SupportClass int

const (
	Weak SupportClass = iota
	Moderate
	Strong
)

var supportClassNames = [...]string{
	Weak:     "weak",
	Moderate: "moderate",
	Strong:   "strong",
}

func (c SupportClass) String() string {
	if c < 0 || int(c) >= len(supportClassNames) {
		return fmt.Sprintf("SupportClass(%d)", int(c))
	}
	return supportClassNames[c]
}

// ClassifySupport buckets a posterior probability. Boundaries are
// lower-bound inclusive: exactly 0.5 is Moderate and exactly 0.9 is
// Strong.
func ClassifySupport(posterior float64) SupportClass {
	switch {
	case posterior >= 0.9:
		return Strong
	case posterior >= 0.5:
		return Moderate
	}
	return Weak
}

// Snapshot is the posterior state of a theory version, recomputed on
// demand from its evidence log.
type Snapshot struct {
	TheoryID         string       `json:"theory_id"`
	Version          string       `json:"version"`
	Prior            float64      `json:"prior"`
	AccumulatedBF    float64      `json:"accumulated_bayes_factor"`
	Posterior        float64      `json:"posterior"`
	Support          SupportClass `json:"support_class"`
	EvidenceCount    int          `json:"evidence_count"`
	FamiliesAnalyzed int          `json:"families_analyzed"`
}

// familyWeight is the total exponent a family's evidence receives in the
// accumulated Bayes factor: n/(n+1) for n records. It rises monotonically
// toward 1, so a family asymptotically counts as one unit of evidence no
// matter how many records it contributes.
func familyWeight(n int) float64 {
	return 1 - 1/float64(1+n)
}

// accumulate computes the accumulated Bayes factor over an unordered
// evidence set.
//
// Within a family, the marginal exponents familyWeight(k)-familyWeight(k-1)
// are assigned in decreasing order of |ln bf| (ties: larger bf first).
// The assignment is a pure function of the record multiset, which keeps
// accumulation commutative, and inserting a record only shifts smaller-
// magnitude records to smaller exponents, which keeps the product
// strictly monotone in each record's direction.
func accumulate(evidence []Evidence) float64 {
	families := make(map[string][]Evidence)
	for _, e := range evidence {
		families[e.FamilyID] = append(families[e.FamilyID], e)
	}

	acc := 1.0
	for _, recs := range families {
		sort.Slice(recs, func(i, j int) bool {
			mi := math.Abs(math.Log(recs[i].BayesFactor))
			mj := math.Abs(math.Log(recs[j].BayesFactor))
			if mi != mj {
				return mi > mj
			}
			return recs[i].BayesFactor > recs[j].BayesFactor
		})
		for k, e := range recs {
			w := familyWeight(k+1) - familyWeight(k)
			acc *= math.Pow(e.BayesFactor, w)
		}
	}
	return acc
}

// posterior applies Bayes' theorem to a prior and an accumulated Bayes
// factor.
func posterior(prior, accumulatedBF float64) float64 {
	numerator := prior * accumulatedBF
	denominator := numerator + (1 - prior)
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator
}

// ComputeSnapshot derives the posterior state of a theory version from
// its evidence records and a prior. With no evidence the accumulated
// Bayes factor is 1 and the posterior equals the prior.
func ComputeSnapshot(theoryID, version string, prior float64, evidence []Evidence) Snapshot {
	accumulated := accumulate(evidence)
	post := posterior(prior, accumulated)

	families := make(map[string]struct{})
	for _, e := range evidence {
		families[e.FamilyID] = struct{}{}
	}

	return Snapshot{
		TheoryID:         theoryID,
		Version:          version,
		Prior:            prior,
		AccumulatedBF:    accumulated,
		Posterior:        post,
		Support:          ClassifySupport(post),
		EvidenceCount:    len(evidence),
		FamiliesAnalyzed: len(families),
	}
}

// BayesFactorRange summarizes the spread of raw Bayes factors in an
// evidence log.
type BayesFactorRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Stats is a pure aggregation over a theory version's evidence log.
type Stats struct {
	TotalEvidence  int                  `json:"total_evidence"`
	UniqueFamilies int                  `json:"unique_families"`
	TypeCounts     map[EvidenceType]int `json:"evidence_type_counts"`
	BayesFactors   BayesFactorRange     `json:"bayes_factor_range"`
}

// ComputeStats aggregates an evidence log.
func ComputeStats(evidence []Evidence) Stats {
	stats := Stats{TypeCounts: make(map[EvidenceType]int)}
	families := make(map[string]struct{})

	var sum float64
	for _, e := range evidence {
		stats.TotalEvidence++
		stats.TypeCounts[e.Type]++
		families[e.FamilyID] = struct{}{}
		sum += e.BayesFactor
		if stats.TotalEvidence == 1 || e.BayesFactor < stats.BayesFactors.Min {
			stats.BayesFactors.Min = e.BayesFactor
		}
		if e.BayesFactor > stats.BayesFactors.Max {
			stats.BayesFactors.Max = e.BayesFactor
		}
	}
	stats.UniqueFamilies = len(families)
	if stats.TotalEvidence > 0 {
		stats.BayesFactors.Mean = sum / float64(stats.TotalEvidence)
	}
	return stats
}
