package analyze

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

// CSV analyzes an ad hoc tabular upload. Postcode and county columns are
// detected by case-insensitive substring, matching how snapshot columns are
// bound; a file with neither column is rejected.
func CSV(r io.Reader) (*Analysis, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "analyze: read csv header")
	}

	postcodeIdx, countyIdx, resolvedIdx := -1, -1, -1
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case resolvedIdx < 0 && strings.Contains(name, "resolvedcounty"):
			resolvedIdx = i
		case countyIdx < 0 && strings.Contains(name, "county"):
			countyIdx = i
		case postcodeIdx < 0 && strings.Contains(name, "postcode"):
			postcodeIdx = i
		}
	}
	if postcodeIdx < 0 && countyIdx < 0 {
		return nil, eris.Wrap(
			resilience.NewValidation("no postcode or county column found"),
			"analyze: detect columns")
	}

	var rows []Row
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "analyze: read csv row")
		}
		rows = append(rows, Row{
			Postcode:       field(rec, postcodeIdx),
			County:         field(rec, countyIdx),
			ResolvedCounty: field(rec, resolvedIdx),
		})
	}

	return Rows(rows), nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
