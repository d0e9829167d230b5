package store

import (
	"context"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/pipeline"
)

// ImportArtifact loads a keyed artifact into the store as a named dataset.
// Extract-stage artifacts are imported without resolved counties.
func ImportArtifact(ctx context.Context, s Store, dir, key, name string) (*Dataset, error) {
	meta, err := artifact.ReadMeta(dir, key)
	if err != nil {
		return nil, err
	}

	var rows []model.ResolvedRecord
	if meta.Stage == "sic_extract" {
		extracted, err := artifact.ReadRows[model.ExtractRecord](dir, key)
		if err != nil {
			return nil, err
		}
		rows = make([]model.ResolvedRecord, 0, len(extracted))
		for _, rec := range extracted {
			rows = append(rows, rec.Resolved(""))
		}
	} else {
		rows, err = artifact.ReadRows[model.ResolvedRecord](dir, key)
		if err != nil {
			return nil, err
		}
	}

	state := pipeline.StateAllCompanies
	if meta.Params["counties"] != "" {
		state = pipeline.StateCountyFiltered
	}

	ds, err := s.CreateDataset(ctx, name, key, state)
	if err != nil {
		return nil, err
	}
	if _, err := s.ImportCompanies(ctx, ds.ID, rows); err != nil {
		return nil, err
	}
	return s.GetDataset(ctx, ds.ID)
}
