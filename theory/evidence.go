package theory

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// EvidenceType enumerates the closed set of evidence provenances.
// Keeping this a closed type, rather than an open string, means a typo
// cannot create unclassifiable evidence.
type EvidenceType int

const (
	Execution EvidenceType = iota
	VariantSegregation
	PathwayAnalysis
	LiteratureReview
	ManualEntry
)

var evidenceTypeNames = [...]string{
	Execution:          "execution",
	VariantSegregation: "variant_segregation",
	PathwayAnalysis:    "pathway_analysis",
	LiteratureReview:   "literature_review",
	ManualEntry:        "manual_entry",
}

func (t EvidenceType) String() string {
	if t < 0 || int(t) >= len(evidenceTypeNames) {
		return fmt.Sprintf("EvidenceType(%d)", int(t))
	}
	return evidenceTypeNames[t]
}

func (t EvidenceType) valid() bool {
	return t >= 0 && int(t) < len(evidenceTypeNames)
}

// ParseEvidenceType parses the wire name of an evidence type.
func ParseEvidenceType(s string) (EvidenceType, error) {
	for i, name := range evidenceTypeNames {
		if s == name {
			return EvidenceType(i), nil
		}
	}
	return 0, errors.Errorf("unknown evidence type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t EvidenceType) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, errors.Errorf("unknown evidence type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EvidenceType) UnmarshalText(b []byte) error {
	parsed, err := ParseEvidenceType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Evidence is one family's contribution to a theory version: a Bayes
// factor greater than zero, where exactly 1.0 is neutral. Records are
// append-only and never mutated.
type Evidence struct {
	TheoryID    string       `json:"theory_id"`
	Version     string       `json:"theory_version"`
	FamilyID    string       `json:"family_id"`
	BayesFactor float64      `json:"bayes_factor"`
	Type        EvidenceType `json:"evidence_type"`
	Weight      float64      `json:"weight"`
	Source      string       `json:"source"`
	At          time.Time    `json:"timestamp"`
}

// InvalidEvidenceError reports an evidence record that fails validation,
// naming the offending field and the reason.
type InvalidEvidenceError struct {
	Field  string
	Reason string
}

func (e InvalidEvidenceError) Error() string {
	return fmt.Sprintf("invalid evidence: %s %s", e.Field, e.Reason)
}

// Validate reports whether e is acceptable for accumulation.
func (e Evidence) Validate() error {
	if e.TheoryID == "" {
		return InvalidEvidenceError{Field: "theory_id", Reason: "must not be empty"}
	}
	if _, err := ParseVersion(e.Version); err != nil {
		return InvalidEvidenceError{Field: "theory_version", Reason: "must be a semantic version"}
	}
	if e.FamilyID == "" {
		return InvalidEvidenceError{Field: "family_id", Reason: "must not be empty"}
	}
	if !(e.BayesFactor > 0) {
		return InvalidEvidenceError{Field: "bayes_factor", Reason: "must be strictly positive"}
	}
	if !(e.Weight > 0) {
		return InvalidEvidenceError{Field: "weight", Reason: "must be strictly positive"}
	}
	if !e.Type.valid() {
		return InvalidEvidenceError{Field: "evidence_type", Reason: "unknown"}
	}
	return nil
}
