package variome

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"time"
)

// Variant is one parsed VCF-like record: an allele substitution at a
// 1-based genomic position, relative to a named reference build.
type Variant struct {
	Position int64   `json:"position"`
	Ref      string  `json:"ref"`
	Alt      string  `json:"alt"`
	Quality  float64 `json:"quality"`
}

// VariantSet is a position-sorted collection of variants with at most one
// variant per position. Build one with NewVariantSet; the zero value is a
// valid empty set.
type VariantSet []Variant

// NewVariantSet produces a canonical VariantSet from records.
// Records are validated (see Variant.Validate); a later record at the
// same position replaces an earlier one.
func NewVariantSet(records []Variant) (VariantSet, error) {
	byPos := make(map[int64]Variant, len(records))
	for i, r := range records {
		if err := r.Validate(); err != nil {
			var m MalformedRecordError
			if errors.As(err, &m) {
				m.Index = i
				return nil, m
			}
			return nil, err
		}
		byPos[r.Position] = r
	}
	return setFromMap(byPos), nil
}

// Validate reports whether v is a well-formed variant record.
func (v Variant) Validate() error {
	if v.Position <= 0 {
		return MalformedRecordError{Field: "position", Reason: "must be a positive integer"}
	}
	if v.Ref == "" {
		return MalformedRecordError{Field: "reference_allele", Reason: "must not be empty"}
	}
	if v.Alt == "" {
		return MalformedRecordError{Field: "alternate_allele", Reason: "must not be empty"}
	}
	if v.Alt == v.Ref {
		return MalformedRecordError{Field: "alternate_allele", Reason: "identical to reference allele"}
	}
	return nil
}

// At returns the variant at the given position, if any.
func (s VariantSet) At(pos int64) (Variant, bool) {
	i := sort.Search(len(s), func(n int) bool { return s[n].Position >= pos })
	if i < len(s) && s[i].Position == pos {
		return s[i], true
	}
	return Variant{}, false
}

// Encode produces the canonical byte encoding of s:
// one tab-separated line per variant, in position order.
// Equal sets always encode to equal bytes.
func (s VariantSet) Encode() []byte {
	buf := new(bytes.Buffer)
	for _, v := range s {
		buf.WriteString(strconv.FormatInt(v.Position, 10))
		buf.WriteByte('\t')
		buf.WriteString(v.Ref)
		buf.WriteByte('\t')
		buf.WriteString(v.Alt)
		buf.WriteByte('\t')
		buf.WriteString(strconv.FormatFloat(v.Quality, 'g', -1, 64))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// DecodeVariantSet parses the canonical encoding produced by Encode.
func DecodeVariantSet(b []byte) (VariantSet, error) {
	var records []Variant
	for _, line := range bytes.Split(b, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		fields := bytes.Split(line, []byte{'\t'})
		if len(fields) != 4 {
			return nil, MalformedRecordError{Field: "record", Reason: "wrong number of fields"}
		}
		pos, err := strconv.ParseInt(string(fields[0]), 10, 64)
		if err != nil {
			return nil, MalformedRecordError{Field: "position", Reason: "not an integer"}
		}
		qual, err := strconv.ParseFloat(string(fields[3]), 64)
		if err != nil {
			return nil, MalformedRecordError{Field: "quality", Reason: "not a number"}
		}
		records = append(records, Variant{
			Position: pos,
			Ref:      string(fields[1]),
			Alt:      string(fields[2]),
			Quality:  qual,
		})
	}
	return NewVariantSet(records)
}

// Fingerprint computes the content fingerprint of s.
func (s VariantSet) Fingerprint() Fingerprint {
	return sha256.Sum256(s.Encode())
}

// MeanQuality is the mean of the constituent variants' quality scores,
// or zero for an empty set.
func (s VariantSet) MeanQuality() float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v.Quality
	}
	return sum / float64(len(s))
}

func setFromMap(byPos map[int64]Variant) VariantSet {
	out := make(VariantSet, 0, len(byPos))
	for _, v := range byPos {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Fingerprint is the sha2-256 hash of a variant set's canonical encoding.
type Fingerprint [sha256.Size]byte

// ZeroFingerprint is the zero value of a Fingerprint.
var ZeroFingerprint Fingerprint

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

func (f Fingerprint) Less(other Fingerprint) bool {
	return bytes.Compare(f[:], other[:]) < 0
}

func (f *Fingerprint) FromHex(s string) error {
	if len(s) != 2*sha256.Size {
		return errors.New("wrong length")
	}
	_, err := hex.Decode(f[:], []byte(s))
	return err
}

// MarshalText implements encoding.TextMarshaler, rendering f as hex.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(b []byte) error {
	return f.FromHex(string(b))
}

func FingerprintFromBytes(b []byte) Fingerprint {
	var out Fingerprint
	copy(out[:], b)
	return out
}

func FingerprintFromHex(s string) (Fingerprint, error) {
	var out Fingerprint
	err := out.FromHex(s)
	return out, err
}

// Anchor is the metadata of a reference variant set that individuals'
// data is stored as diffs against.
type Anchor struct {
	ID             string      `json:"id"`
	Fingerprint    Fingerprint `json:"fingerprint"`
	ReferenceLabel string      `json:"reference_label"`
	Quality        float64     `json:"quality_score"`
	UsageCount     int64       `json:"usage_count"`
	CreatedAt      time.Time   `json:"created_at"`
}

// RebaseEvent records the promotion of one individual's diffs from an old
// anchor to a new one. Rebases are recorded per individual; the set of
// events with equal old/new anchor IDs describes one promotion.
type RebaseEvent struct {
	OldAnchorID  string    `json:"old_anchor_id"`
	NewAnchorID  string    `json:"new_anchor_id"`
	IndividualID string    `json:"individual_id"`
	At           time.Time `json:"at"`
}
