package ingest

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/variome/variome"
)

// defaultQuality substitutes for a missing QUAL field.
const defaultQuality = 0.9

// ParseVariants reads VCF-style lines from r, one variant per line.
// Header lines (leading '#') and blank lines are skipped. Only the
// positional columns matter: CHROM POS ID REF ALT [QUAL], tab-separated,
// with a missing or "." QUAL defaulting to 0.9.
//
// Parsing is permissive on content and strict on shape: a line with too
// few columns or a non-numeric position is an error, but allele strings
// are taken as-is and validated later at ingestion.
func ParseVariants(r io.Reader) ([]variome.Variant, error) {
	var (
		records []variome.Variant
		scanner = bufio.NewScanner(r)
		lineno  int
	)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			return nil, errors.Errorf("line %d: want at least 5 tab-separated fields, got %d", lineno, len(fields))
		}
		pos, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: parsing position", lineno)
		}
		qual := defaultQuality
		if len(fields) > 5 && fields[5] != "." && fields[5] != "" {
			qual, err = strconv.ParseFloat(fields[5], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: parsing quality", lineno)
			}
		}
		records = append(records, variome.Variant{
			Position: pos,
			Ref:      fields[3],
			Alt:      fields[4],
			Quality:  qual,
		})
	}
	return records, errors.Wrap(scanner.Err(), "reading input")
}
