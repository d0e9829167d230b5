// Package analyze computes the regional and quality breakdown of a company
// dataset (Stage B).
package analyze

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/county"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

// Analysis is the full Stage B report.
type Analysis struct {
	TotalRows    int               `json:"total_rows"`
	EnglandRows  int               `json:"england_rows"`
	Regions      []RegionBreakdown `json:"regions"`
	Provenance   Provenance        `json:"provenance"`
	QualityScore float64           `json:"quality_score"`
}

// RegionBreakdown is one region's share of the in-scope rows. Pct is
// pre-formatted to one decimal place with a trailing percent sign.
type RegionBreakdown struct {
	Region   string        `json:"region"`
	Code     string        `json:"code"`
	Count    int           `json:"count"`
	Pct      string        `json:"pct"`
	Counties []CountyCount `json:"counties"`
}

// CountyCount is one county's share of the in-scope rows.
type CountyCount struct {
	County string `json:"county"`
	Count  int    `json:"count"`
	Pct    string `json:"pct"`
}

// Provenance counts how in-scope rows got their county.
type Provenance struct {
	Direct           int `json:"direct"`
	PostcodeResolved int `json:"postcode_resolved"`
	Unresolved       int `json:"unresolved"`
}

// Row is the minimal projection the analyzer needs from any dataset shape.
type Row struct {
	Postcode       string
	County         string
	ResolvedCounty string
}

// Artifact analyzes a keyed artifact. Stage A artifacts (no resolved county
// column) are analyzed on the raw county field alone.
func Artifact(dir, key string) (*Analysis, error) {
	if !artifact.Exists(dir, key) {
		return nil, eris.Wrap(resilience.NewNotFound("artifact", key), "analyze: artifact")
	}
	meta, err := artifact.ReadMeta(dir, key)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if meta.Stage == "sic_extract" {
		recs, err := artifact.ReadRows[model.ExtractRecord](dir, key)
		if err != nil {
			return nil, err
		}
		rows = make([]Row, len(recs))
		for i, r := range recs {
			rows[i] = Row{Postcode: r.Postcode, County: r.County}
		}
	} else {
		recs, err := artifact.ReadRows[model.ResolvedRecord](dir, key)
		if err != nil {
			return nil, err
		}
		rows = make([]Row, len(recs))
		for i, r := range recs {
			rows[i] = Row{Postcode: r.Postcode, County: r.County, ResolvedCounty: r.ResolvedCounty}
		}
	}

	return Rows(rows), nil
}

// Rows computes the report over an in-memory projection. The effective
// county of a row is its resolved county when present, else its raw county
// canonicalized. Rows outside the England taxonomy stay in TotalRows but are
// excluded from everything else: the regional breakdown, the provenance and
// missing-data counts, and the quality score all cover in-scope rows only.
func Rows(rows []Row) *Analysis {
	a := &Analysis{TotalRows: len(rows)}

	countyCounts := make(map[string]int)
	postcodeMissing := 0
	countyMissing := 0

	for _, r := range rows {
		effective := r.ResolvedCounty
		if effective == "" {
			effective = county.Normalize(r.County)
		}
		if !county.IsEnglandCounty(effective) {
			continue
		}
		a.EnglandRows++
		countyCounts[effective]++

		if r.Postcode == "" {
			postcodeMissing++
		}
		switch {
		case effective == "":
			countyMissing++
			a.Provenance.Unresolved++
		case r.County != "":
			a.Provenance.Direct++
		default:
			a.Provenance.PostcodeResolved++
		}
	}

	for _, region := range county.EnglandRegions {
		rb := RegionBreakdown{Region: region.Name, Code: region.Code}
		for _, c := range region.Counties {
			n := countyCounts[c]
			if n == 0 {
				continue
			}
			rb.Count += n
			rb.Counties = append(rb.Counties, CountyCount{County: c, Count: n, Pct: pct(n, a.EnglandRows)})
		}
		if rb.Count == 0 {
			continue
		}
		rb.Pct = pct(rb.Count, a.EnglandRows)
		sort.Slice(rb.Counties, func(i, j int) bool {
			if rb.Counties[i].Count != rb.Counties[j].Count {
				return rb.Counties[i].Count > rb.Counties[j].Count
			}
			return rb.Counties[i].County < rb.Counties[j].County
		})
		a.Regions = append(a.Regions, rb)
	}

	sort.Slice(a.Regions, func(i, j int) bool {
		if a.Regions[i].Count != a.Regions[j].Count {
			return a.Regions[i].Count > a.Regions[j].Count
		}
		return a.Regions[i].Region < a.Regions[j].Region
	})

	a.QualityScore = quality(a.EnglandRows, postcodeMissing, countyMissing)
	return a
}

// quality weights county completeness over postcode completeness, over the
// in-scope rows. A dataset with no in-scope rows scores zero.
func quality(total, postcodeMissing, countyMissing int) float64 {
	if total == 0 {
		return 0
	}
	pcScore := (1 - float64(postcodeMissing)/float64(total)) * 40
	ctyScore := (1 - float64(countyMissing)/float64(total)) * 60
	return round1(pcScore + ctyScore)
}

func pct(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
