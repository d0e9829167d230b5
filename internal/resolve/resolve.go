// Package resolve assigns a canonical county to each extracted company and
// optionally filters to a requested county set (Stage C).
package resolve

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/county"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

// Resolver runs county resolution over a Stage A artifact.
type Resolver struct {
	OutputDir string
	Lookup    PostcodeLookup
	Aliases   county.AliasTable
}

// Params are the resolution inputs. SourceDir/SourceKey locate the upstream
// extract artifact. An empty Counties list resolves without filtering.
type Params struct {
	SourceDir    string
	SourceKey    string
	Counties     []string
	ForceRefresh bool
}

// Stats breaks down how counties were established.
type Stats struct {
	Total            int `json:"total"`
	DirectCounty     int `json:"direct_county"`
	PostcodeResolved int `json:"postcode_resolved"`
	Unresolved       int `json:"unresolved"`
	Kept             int `json:"kept"`
}

// Result describes the produced (or reused) artifact.
type Result struct {
	Key       string   `json:"key"`
	Path      string   `json:"path"`
	RowCount  int      `json:"row_count"`
	FromCache bool     `json:"from_cache"`
	Counties  []string `json:"counties,omitempty"`
	Stats     Stats    `json:"stats"`
}

// Resolve runs Stage C. The artifact key is the upstream key when no county
// filter applies, otherwise a composite of the upstream key and the
// canonicalized filter set, so the unfiltered and filtered artifacts coexist.
func (r *Resolver) Resolve(ctx context.Context, p Params) (*Result, error) {
	if p.SourceKey == "" {
		return nil, eris.Wrap(resilience.NewValidation("no source artifact key supplied"), "resolve: params")
	}
	if !artifact.Exists(p.SourceDir, p.SourceKey) {
		return nil, eris.Wrap(resilience.NewNotFound("artifact", p.SourceKey), "resolve: source")
	}

	filter := canonicalFilter(p.Counties, r.Aliases)
	key := p.SourceKey
	if len(filter) > 0 {
		key = artifact.CompositeKey(p.SourceKey, filter...)
	}

	if !p.ForceRefresh && artifact.Exists(r.OutputDir, key) {
		meta, err := artifact.ReadMeta(r.OutputDir, key)
		if err != nil {
			return nil, err
		}
		zap.L().Info("county resolve cache hit", zap.String("key", key), zap.Int("rows", meta.RowCount))
		return &Result{
			Key:       key,
			Path:      artifact.Path(r.OutputDir, key),
			RowCount:  meta.RowCount,
			FromCache: true,
			Counties:  filter,
			Stats:     statsFromMeta(meta.Stats),
		}, nil
	}

	source, err := artifact.ReadRows[model.ExtractRecord](p.SourceDir, p.SourceKey)
	if err != nil {
		return nil, err
	}
	if len(source) == 0 {
		return nil, eris.Wrap(resilience.NewValidation("extract artifact %q has no rows", p.SourceKey), "resolve: source")
	}

	keep := make(map[string]bool, len(filter))
	for _, c := range filter {
		keep[c] = true
	}

	var stats Stats
	out := make([]model.ResolvedRecord, 0, len(source))
	for _, rec := range source {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "resolve: cancelled")
		}
		stats.Total++

		resolved := county.MapToCanonical(rec.County, r.Aliases)
		switch {
		case resolved != "":
			stats.DirectCounty++
		default:
			resolved = r.Lookup.CountyFor(rec.Postcode)
			if resolved != "" {
				stats.PostcodeResolved++
			} else {
				stats.Unresolved++
			}
		}

		if len(keep) > 0 && !keep[resolved] {
			continue
		}
		stats.Kept++
		out = append(out, rec.Resolved(resolved))
	}

	meta := artifact.Meta{
		Stage:  "county_resolve",
		Source: artifact.Path(p.SourceDir, p.SourceKey),
		Params: map[string]string{"counties": strings.Join(filter, "|")},
		Stats:  stats.toMap(),
	}
	if err := artifact.WriteRows(r.OutputDir, key, out, meta); err != nil {
		return nil, err
	}

	zap.L().Info("county resolve complete",
		zap.String("key", key),
		zap.Int("total", stats.Total),
		zap.Int("direct", stats.DirectCounty),
		zap.Int("postcode", stats.PostcodeResolved),
		zap.Int("unresolved", stats.Unresolved),
		zap.Int("kept", stats.Kept),
	)

	return &Result{
		Key:      key,
		Path:     artifact.Path(r.OutputDir, key),
		RowCount: len(out),
		Counties: filter,
		Stats:    stats,
	}, nil
}

// toMap renders the stats for the artifact sidecar, so a later cache hit can
// hand back the same numbers the original run reported.
func (s Stats) toMap() map[string]int {
	return map[string]int{
		"total":             s.Total,
		"direct_county":     s.DirectCounty,
		"postcode_resolved": s.PostcodeResolved,
		"unresolved":        s.Unresolved,
		"kept":              s.Kept,
	}
}

func statsFromMeta(m map[string]int) Stats {
	return Stats{
		Total:            m["total"],
		DirectCounty:     m["direct_county"],
		PostcodeResolved: m["postcode_resolved"],
		Unresolved:       m["unresolved"],
		Kept:             m["kept"],
	}
}

// canonicalFilter normalizes and dedupes the requested counties, preserving
// sorted order via the artifact key derivation later.
func canonicalFilter(counties []string, aliases county.AliasTable) []string {
	seen := make(map[string]bool, len(counties))
	out := make([]string, 0, len(counties))
	for _, c := range counties {
		canon := county.MapToCanonical(c, aliases)
		if canon == "" || seen[canon] {
			continue
		}
		seen[canon] = true
		out = append(out, canon)
	}
	return out
}
