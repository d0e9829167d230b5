package resolve

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/county"
)

// PostcodeLookup maps a postcode prefix to a canonical county name.
type PostcodeLookup map[string]string

// nsplRow is the slice of the national postcode reference table we consume.
type nsplRow struct {
	Postcode string `csv:"pcds"`
	County   string `csv:"cty25cd"`
	District string `csv:"lad25cd"`
}

// LoadPostcodeLookup streams the postcode reference CSV and builds the
// prefix-to-county table. The county geography code is preferred; rows where
// it does not map (unitary-only areas) fall back to the district code. The
// first row seen for a prefix wins.
func LoadPostcodeLookup(path string) (PostcodeLookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: open postcode reference")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: read postcode reference header")
	}

	lookup := make(PostcodeLookup)
	rows := 0
	for {
		var row nsplRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "resolve: decode postcode reference row")
		}
		rows++

		prefix := PostcodePrefix(row.Postcode)
		if prefix == "" {
			continue
		}
		if _, ok := lookup[prefix]; ok {
			continue
		}

		name := county.CountyForCode(row.County)
		if name == "" {
			name = county.CountyForCode(row.District)
		}
		if name == "" {
			continue
		}
		lookup[prefix] = name
	}

	zap.L().Info("postcode reference loaded",
		zap.String("path", path),
		zap.Int("rows", rows),
		zap.Int("prefixes", len(lookup)),
	)
	return lookup, nil
}

// CountyFor resolves a raw postcode to a county via its prefix, or "".
func (l PostcodeLookup) CountyFor(postcode string) string {
	return l[PostcodePrefix(postcode)]
}

// PostcodePrefix canonicalizes a postcode to its lookup key: spaces removed,
// uppercased, truncated to four characters.
func PostcodePrefix(postcode string) string {
	p := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
	if len(p) > 4 {
		p = p[:4]
	}
	return p
}
