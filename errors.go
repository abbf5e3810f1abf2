package variome

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is the error returned when a Getter is asked for an anchor
// that does not exist, or for the diffs of an individual that was never
// ingested under the named anchor.
var ErrNotFound = errors.New("not found")

// ErrInvariant reports a state that should be unreachable, such as two
// conflicting diffs at one position with equal timestamps. It is a
// defect, not a condition to retry.
var ErrInvariant = errors.New("invariant violation")

// MalformedRecordError reports an input record that cannot be stored,
// naming the offending field and the reason.
type MalformedRecordError struct {
	Index  int
	Field  string
	Reason string
}

func (e MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %d: %s %s", e.Index, e.Field, e.Reason)
}

// BatchErr is a type of error returned by batch operations such as
// ingestion. It maps input-record indexes to the errors encountered
// validating those specific records. A batch operation may return a
// successful partial result alongside a BatchErr: records absent from the
// map were processed.
type BatchErr map[int]error

// Error implements the error interface.
func (e BatchErr) Error() string {
	indexes := make([]int, 0, len(e))
	for i := range e {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	strs := make([]string, 0, len(indexes))
	for _, i := range indexes {
		strs = append(strs, fmt.Sprintf("%d: %s", i, e[i]))
	}
	return "error(s): " + strings.Join(strs, "; ")
}
