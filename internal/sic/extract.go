// Package sic extracts companies matching a SIC code set from the bulk
// registry snapshot and caches the result as a keyed artifact.
package sic

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

const writeBatch = 4096

// Extractor streams the bulk snapshot and writes matching rows into the
// Stage A artifact directory.
type Extractor struct {
	SnapshotPath string
	OutputDir    string
}

// Params are the extraction inputs.
type Params struct {
	SICCodes     []string
	ForceRefresh bool
}

// Result describes the produced (or reused) artifact. Stats carries the run
// counters recorded in the sidecar, so a cache hit reports the same numbers
// as the run that built the artifact.
type Result struct {
	Key       string         `json:"key"`
	Path      string         `json:"path"`
	RowCount  int            `json:"row_count"`
	FromCache bool           `json:"from_cache"`
	SICCodes  []string       `json:"sic_codes"`
	Stats     map[string]int `json:"stats,omitempty"`
}

// snapshot column detection is by case-insensitive substring, so renamed
// snapshot editions (e.g. "RegAddress.PostCode" vs " RegAddress.PostCode")
// still bind.
type columns struct {
	name     int
	number   int
	sicText  []int
	postcode int
	county   int
	addr1    int
	addr2    int
	town     int
}

// Extract runs Stage A. The artifact key is derived from the normalized SIC
// code set alone, so repeated requests for the same codes reuse the cached
// artifact unless ForceRefresh is set.
func (e *Extractor) Extract(ctx context.Context, p Params) (*Result, error) {
	codes, err := NormalizeCodes(p.SICCodes)
	if err != nil {
		return nil, err
	}

	key := artifact.Key(codes...)
	if !p.ForceRefresh && artifact.Exists(e.OutputDir, key) {
		meta, err := artifact.ReadMeta(e.OutputDir, key)
		if err != nil {
			return nil, err
		}
		zap.L().Info("sic extract cache hit",
			zap.String("key", key),
			zap.Int("rows", meta.RowCount),
		)
		return &Result{
			Key:       key,
			Path:      artifact.Path(e.OutputDir, key),
			RowCount:  meta.RowCount,
			FromCache: true,
			SICCodes:  codes,
			Stats:     meta.Stats,
		}, nil
	}

	f, err := os.Open(e.SnapshotPath)
	if err != nil {
		return nil, eris.Wrap(err, "sic: open snapshot")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "sic: read snapshot header")
	}
	cols, err := detectColumns(header)
	if err != nil {
		return nil, err
	}

	w, err := artifact.NewWriter[model.ExtractRecord](e.OutputDir, key, artifact.Meta{
		Stage:  "sic_extract",
		Source: e.SnapshotPath,
		Params: map[string]string{"sic_codes": strings.Join(codes, "|")},
	})
	if err != nil {
		return nil, err
	}

	batch := make([]model.ExtractRecord, 0, writeBatch)
	scanned := 0
	for {
		if ctx.Err() != nil {
			w.Abort()
			return nil, eris.Wrap(ctx.Err(), "sic: extract cancelled")
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.Abort()
			return nil, eris.Wrap(err, "sic: read snapshot row")
		}
		scanned++
		if scanned%1_000_000 == 0 {
			zap.L().Debug("sic extract progress",
				zap.Int("scanned", scanned),
				zap.Int("matched", w.Count()+len(batch)),
			)
		}

		rec, ok := matchRow(row, cols, codes)
		if !ok {
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= writeBatch {
			if err := w.Write(batch); err != nil {
				w.Abort()
				return nil, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := w.Write(batch); err != nil {
			w.Abort()
			return nil, err
		}
	}

	rows := w.Count()
	stats := map[string]int{
		"total_companies": rows,
		"rows_scanned":    scanned,
	}
	w.SetStats(stats)
	if err := w.Close(); err != nil {
		return nil, err
	}

	zap.L().Info("sic extract complete",
		zap.String("key", key),
		zap.Int("scanned", scanned),
		zap.Int("matched", rows),
	)

	return &Result{
		Key:      key,
		Path:     artifact.Path(e.OutputDir, key),
		RowCount: rows,
		SICCodes: codes,
		Stats:    stats,
	}, nil
}

// NormalizeCodes trims, dedupes and sorts the requested SIC codes. An empty
// set after cleaning is a validation error.
func NormalizeCodes(codes []string) ([]string, error) {
	seen := make(map[string]bool, len(codes))
	clean := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		clean = append(clean, c)
	}
	if len(clean) == 0 {
		return nil, eris.Wrap(resilience.NewValidation("no SIC codes supplied"), "sic: normalize codes")
	}
	sort.Strings(clean)
	return clean, nil
}

func detectColumns(header []string) (columns, error) {
	find := func(substr string) int {
		for i, h := range header {
			if strings.Contains(strings.ToLower(strings.TrimSpace(h)), substr) {
				return i
			}
		}
		return -1
	}

	cols := columns{
		name:     find("companyname"),
		number:   find("companynumber"),
		postcode: find("regaddress.postcode"),
		county:   find("regaddress.county"),
		addr1:    find("regaddress.addressline1"),
		addr2:    find("regaddress.addressline2"),
		town:     find("regaddress.posttown"),
	}
	for i, h := range header {
		if strings.Contains(strings.ToLower(strings.TrimSpace(h)), "siccode.sictext") {
			cols.sicText = append(cols.sicText, i)
		}
	}

	if cols.name < 0 || cols.number < 0 {
		return columns{}, eris.Wrap(
			resilience.NewValidation("snapshot is missing company name/number columns; available: %s", headerPreview(header)),
			"sic: detect columns")
	}
	if len(cols.sicText) == 0 {
		return columns{}, eris.Wrap(
			resilience.NewValidation("snapshot is missing SIC text columns; available: %s", headerPreview(header)),
			"sic: detect columns")
	}
	return cols, nil
}

// headerPreview renders the first few column names for validation messages.
func headerPreview(header []string) string {
	if len(header) > 10 {
		header = header[:10]
	}
	return strings.Join(header, ", ")
}

// matchRow tests one snapshot row against the requested codes and builds its
// extract record. All SIC text cells are concatenated into one string and a
// row matches when that string contains any code as a literal substring; a
// code matching inside a longer code is an accepted imprecision. The SIC
// column records the requested codes, not the company's own.
func matchRow(row []string, cols columns, codes []string) (model.ExtractRecord, bool) {
	var sb strings.Builder
	for _, i := range cols.sicText {
		txt := strings.TrimSpace(cell(row, i))
		if txt == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(txt)
	}

	matched := false
	for _, c := range codes {
		if strings.Contains(sb.String(), c) {
			matched = true
			break
		}
	}
	if !matched {
		return model.ExtractRecord{}, false
	}

	return model.ExtractRecord{
		CompanyNumber: padCompanyNumber(strings.TrimSpace(cell(row, cols.number))),
		BusinessName:  strings.TrimSpace(cell(row, cols.name)),
		SIC:           strings.Join(codes, "; "),
		Postcode:      strings.TrimSpace(cell(row, cols.postcode)),
		County:        strings.TrimSpace(cell(row, cols.county)),
		AddressLine1:  strings.TrimSpace(cell(row, cols.addr1)),
		AddressLine2:  strings.TrimSpace(cell(row, cols.addr2)),
		Town:          strings.TrimSpace(cell(row, cols.town)),
	}, true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// padCompanyNumber left-pads the registry number to eight characters. The
// snapshot stores some numeric-only numbers with leading zeros dropped.
func padCompanyNumber(n string) string {
	for len(n) > 0 && len(n) < 8 {
		n = "0" + n
	}
	return n
}
