package enrich

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
	"github.com/RedWaffle007/sic-data-software/pkg/companieshouse"
)

// fakeRegistry serves canned registry data and counts profile fetches.
type fakeRegistry struct {
	profiles map[string]*companieshouse.CompanyProfile
	pscs     map[string][]companieshouse.PSC
	officers map[string][]companieshouse.Officer
	fetched  []string
}

func (f *fakeRegistry) Profile(_ context.Context, n string) (*companieshouse.CompanyProfile, error) {
	f.fetched = append(f.fetched, n)
	return f.profiles[n], nil
}

func (f *fakeRegistry) PSCs(_ context.Context, n string) ([]companieshouse.PSC, error) {
	return f.pscs[n], nil
}

func (f *fakeRegistry) Officers(_ context.Context, n string) ([]companieshouse.Officer, error) {
	return f.officers[n], nil
}

func activeProfile(name, number string) *companieshouse.CompanyProfile {
	return &companieshouse.CompanyProfile{
		CompanyName:    name,
		CompanyNumber:  number,
		CompanyStatus:  "active",
		Type:           "ltd",
		DateOfCreation: "2010-06-01",
	}
}

func seedResolved(t *testing.T, rows []model.ResolvedRecord) (string, string) {
	t.Helper()
	dir := t.TempDir()
	key := artifact.Key("resolved-input")
	require.NoError(t, artifact.WriteRows(dir, key, rows, artifact.Meta{Stage: "county_resolve"}))
	return dir, key
}

func threeCompanies() []model.ResolvedRecord {
	return []model.ResolvedRecord{
		{CompanyNumber: "00000001", BusinessName: "ALPHA LTD", ResolvedCounty: "Essex", Postcode: "CM1 1AA"},
		{CompanyNumber: "00000002", BusinessName: "BETA LTD", ResolvedCounty: "Kent", Postcode: "ME1 1AA"},
		{CompanyNumber: "00000003", BusinessName: "GAMMA LTD", ResolvedCounty: "Essex", Postcode: "CM2 2BB"},
	}
}

func TestRun_PSCPreferredOverOfficer(t *testing.T) {
	srcDir, srcKey := seedResolved(t, threeCompanies())
	reg := &fakeRegistry{
		profiles: map[string]*companieshouse.CompanyProfile{
			"00000001": activeProfile("ALPHA LTD", "00000001"),
			"00000002": activeProfile("BETA LTD", "00000002"),
			"00000003": activeProfile("GAMMA LTD", "00000003"),
		},
		pscs: map[string][]companieshouse.PSC{
			"00000001": {
				{
					Name:             "Mrs Olivia Owner",
					Kind:             individualPSCKind,
					NaturesOfControl: []string{"ownership-of-shares-75-to-100-percent", "voting-rights-75-to-100-percent"},
				},
				{
					Name:             "HOLDCO LTD",
					Kind:             "corporate-entity-person-with-significant-control",
					NaturesOfControl: []string{"ownership-of-shares-25-to-50-percent", "voting-rights-75-to-100-percent"},
				},
			},
			"00000002": {{
				Name:             "Mr Dan Director",
				Kind:             "corporate-entity-person-with-significant-control",
				NaturesOfControl: []string{"significant-influence-or-control"},
			}},
		},
		officers: map[string][]companieshouse.Officer{
			"00000001": {
				{Name: "OWNER, Olivia", OfficerRole: "director"},
				{Name: "ACME SECRETARIES LTD", OfficerRole: "secretary"},
			},
			"00000002": {{Name: "DIRECTOR, Dan", OfficerRole: "director"}},
		},
	}

	e := &Engine{Registry: reg, OutputDir: t.TempDir(), BatchSize: 2}
	res, err := e.Run(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowCount)
	assert.Equal(t, 3, res.Enriched)
	assert.Zero(t, res.Failed)

	rows, err := artifact.ReadRows[model.EnrichedRecord](e.OutputDir, res.Key)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	alpha := rows[0]
	assert.Equal(t, "psc", alpha.SelectedPersonSource)
	// Every PSC name and the deduped union of natures, not just the
	// selected PSC's.
	assert.Equal(t, "Mrs Olivia Owner; HOLDCO LTD", alpha.PersonWithSignificantControl)
	assert.Equal(t,
		"ownership-of-shares-75-to-100-percent; voting-rights-75-to-100-percent; ownership-of-shares-25-to-50-percent",
		alpha.NatureOfControl)
	assert.Equal(t, "75-100%", alpha.SelectedPSCShareTier)
	assert.Equal(t,
		"ownership-of-shares-75-to-100-percent; voting-rights-75-to-100-percent",
		alpha.SelectedPSCNatureOfControl)
	assert.Equal(t, "Olivia", alpha.Fname)
	assert.Equal(t, "Owner", alpha.Sname)
	assert.Equal(t, "active", alpha.CompanyStatus)
	// All officer roles feed Position even when a PSC was selected.
	assert.Equal(t, "director; secretary", alpha.Position)

	beta := rows[1]
	assert.Equal(t, "officer", beta.SelectedPersonSource)
	assert.Equal(t, "director", beta.Position)
	assert.Equal(t, "Dan", beta.Fname)
	assert.Equal(t, "Director", beta.Sname)
	// Title recovered from the PSC free text naming the same person.
	assert.Equal(t, "Mr", beta.Title)

	gamma := rows[2]
	assert.Equal(t, "none", gamma.SelectedPersonSource)
	assert.Empty(t, gamma.Position)
}

func TestRun_MissingCompanyRecordsError(t *testing.T) {
	srcDir, srcKey := seedResolved(t, []model.ResolvedRecord{
		{CompanyNumber: "99999999", BusinessName: "GHOST LTD"},
	})
	reg := &fakeRegistry{profiles: map[string]*companieshouse.CompanyProfile{}}

	e := &Engine{Registry: reg, OutputDir: t.TempDir()}
	res, err := e.Run(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	rows, err := artifact.ReadRows[model.EnrichedRecord](e.OutputDir, res.Key)
	require.NoError(t, err)
	assert.Equal(t, "company not found", rows[0].EnrichmentError)
}

func TestRun_ResumesFromCheckpoint(t *testing.T) {
	srcDir, srcKey := seedResolved(t, threeCompanies())
	outDir := t.TempDir()

	// Two of three rows already checkpointed from an interrupted run.
	key := artifact.CompositeKey(srcKey, "enrich", "v1")
	cpPath := filepath.Join(outDir, key+"_checkpoint.parquet")
	require.NoError(t, saveCheckpoint(cpPath, []model.EnrichedRecord{
		{CompanyNumber: "00000001", BusinessName: "ALPHA LTD", SelectedPersonSource: "none", CompanyStatus: "active"},
		{CompanyNumber: "00000002", BusinessName: "BETA LTD", SelectedPersonSource: "none", CompanyStatus: "active"},
	}))

	reg := &fakeRegistry{
		profiles: map[string]*companieshouse.CompanyProfile{
			"00000003": activeProfile("GAMMA LTD", "00000003"),
		},
	}

	e := &Engine{Registry: reg, OutputDir: outDir}
	res, err := e.Run(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)

	assert.Equal(t, []string{"00000003"}, reg.fetched, "checkpointed rows are not re-fetched")
	assert.Equal(t, 2, res.Resumed)
	assert.Equal(t, 3, res.RowCount)

	// Checkpoint is gone, final artifact holds all rows.
	assert.Empty(t, loadCheckpoint[model.EnrichedRecord](cpPath))
	rows, err := artifact.ReadRows[model.EnrichedRecord](outDir, res.Key)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRun_FullyCheckpointedRunFinalizes(t *testing.T) {
	srcDir, srcKey := seedResolved(t, threeCompanies()[:2])
	outDir := t.TempDir()

	key := artifact.CompositeKey(srcKey, "enrich", "v1")
	cpPath := filepath.Join(outDir, key+"_checkpoint.parquet")
	require.NoError(t, saveCheckpoint(cpPath, []model.EnrichedRecord{
		{CompanyNumber: "00000001", BusinessName: "ALPHA LTD"},
		{CompanyNumber: "00000002", BusinessName: "BETA LTD"},
	}))

	reg := &fakeRegistry{}
	e := &Engine{Registry: reg, OutputDir: outDir}
	res, err := e.Run(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)

	assert.Empty(t, reg.fetched)
	assert.Equal(t, 2, res.RowCount)
	assert.True(t, artifact.Exists(outDir, res.Key))
}

func TestRun_OutputCacheShortCircuits(t *testing.T) {
	srcDir, srcKey := seedResolved(t, threeCompanies())
	reg := &fakeRegistry{
		profiles: map[string]*companieshouse.CompanyProfile{
			"00000001": activeProfile("ALPHA LTD", "00000001"),
			"00000002": activeProfile("BETA LTD", "00000002"),
			"00000003": activeProfile("GAMMA LTD", "00000003"),
		},
	}
	e := &Engine{Registry: reg, OutputDir: t.TempDir()}
	ctx := context.Background()

	first, err := e.Run(ctx, Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	fetchedOnce := len(reg.fetched)

	second, err := e.Run(ctx, Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, fetchedOnce, len(reg.fetched), "cache hit performs no API calls")
}

func TestRun_LimitAndProgress(t *testing.T) {
	srcDir, srcKey := seedResolved(t, threeCompanies())
	reg := &fakeRegistry{
		profiles: map[string]*companieshouse.CompanyProfile{
			"00000001": activeProfile("ALPHA LTD", "00000001"),
			"00000002": activeProfile("BETA LTD", "00000002"),
		},
	}
	e := &Engine{Registry: reg, OutputDir: t.TempDir()}

	var calls [][2]int
	res, err := e.Run(context.Background(), Params{
		SourceDir: srcDir,
		SourceKey: srcKey,
		Limit:     2,
		Progress:  func(done, total int) { calls = append(calls, [2]int{done, total}) },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}

func TestRun_MissingSource(t *testing.T) {
	e := &Engine{Registry: &fakeRegistry{}, OutputDir: t.TempDir()}
	_, err := e.Run(context.Background(), Params{SourceDir: t.TempDir(), SourceKey: "deadbeef0000"})
	require.Error(t, err)
	assert.True(t, resilience.IsNotFound(err))
}
