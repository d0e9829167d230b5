package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/county"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

func seedExtract(t *testing.T, rows []model.ExtractRecord) (string, string) {
	t.Helper()
	dir := t.TempDir()
	key := artifact.Key("test-extract")
	require.NoError(t, artifact.WriteRows(dir, key, rows, artifact.Meta{Stage: "sic_extract"}))
	return dir, key
}

func testRows() []model.ExtractRecord {
	return []model.ExtractRecord{
		{CompanyNumber: "00000001", BusinessName: "DIRECT LTD", County: "ESSEX COUNTY", Postcode: "CM1 1AA"},
		{CompanyNumber: "00000002", BusinessName: "POSTCODE LTD", County: "", Postcode: "LS1 4AP"},
		{CompanyNumber: "00000003", BusinessName: "LOST LTD", County: "", Postcode: "ZZ99 9ZZ"},
		{CompanyNumber: "00000004", BusinessName: "LONDON LTD", County: "East London", Postcode: "E1 6AN"},
	}
}

func testLookup() PostcodeLookup {
	return PostcodeLookup{"LS14": "West Yorkshire"}
}

func TestResolve_ProvenanceAndStats(t *testing.T) {
	srcDir, srcKey := seedExtract(t, testRows())
	r := &Resolver{OutputDir: t.TempDir(), Lookup: testLookup()}

	res, err := r.Resolve(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)

	assert.Equal(t, srcKey, res.Key, "unfiltered resolve reuses the upstream key")
	assert.Equal(t, 4, res.Stats.Total)
	assert.Equal(t, 2, res.Stats.DirectCounty)
	assert.Equal(t, 1, res.Stats.PostcodeResolved)
	assert.Equal(t, 1, res.Stats.Unresolved)
	assert.Equal(t, 4, res.Stats.Kept)

	rows, err := artifact.ReadRows[model.ResolvedRecord](r.OutputDir, res.Key)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Essex", rows[0].ResolvedCounty)
	assert.Equal(t, "West Yorkshire", rows[1].ResolvedCounty)
	assert.Equal(t, "", rows[2].ResolvedCounty)
	assert.Equal(t, "Greater London", rows[3].ResolvedCounty)
	// Source columns survive untouched.
	assert.Equal(t, "ESSEX COUNTY", rows[0].County)
}

func TestResolve_FilterIsSubset(t *testing.T) {
	srcDir, srcKey := seedExtract(t, testRows())
	r := &Resolver{OutputDir: t.TempDir(), Lookup: testLookup()}

	res, err := r.Resolve(context.Background(), Params{
		SourceDir: srcDir,
		SourceKey: srcKey,
		Counties:  []string{"essex", "West Yorkshire"},
	})
	require.NoError(t, err)

	assert.NotEqual(t, srcKey, res.Key, "filtered artifact gets its own key")
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, 2, res.Stats.Kept)

	rows, err := artifact.ReadRows[model.ResolvedRecord](r.OutputDir, res.Key)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Contains(t, []string{"Essex", "West Yorkshire"}, row.ResolvedCounty)
	}
}

func TestResolve_FilterKeyOrderIndependent(t *testing.T) {
	srcDir, srcKey := seedExtract(t, testRows())
	r := &Resolver{OutputDir: t.TempDir(), Lookup: testLookup()}
	ctx := context.Background()

	a, err := r.Resolve(ctx, Params{SourceDir: srcDir, SourceKey: srcKey, Counties: []string{"Essex", "Kent"}})
	require.NoError(t, err)
	b, err := r.Resolve(ctx, Params{SourceDir: srcDir, SourceKey: srcKey, Counties: []string{"kent", "ESSEX"}})
	require.NoError(t, err)

	assert.Equal(t, a.Key, b.Key)
	assert.True(t, b.FromCache)
}

func TestResolve_AliasAppliedToFilterAndRows(t *testing.T) {
	srcDir, srcKey := seedExtract(t, []model.ExtractRecord{
		{CompanyNumber: "00000005", BusinessName: "SALOP LTD", County: "Salop"},
	})
	r := &Resolver{
		OutputDir: t.TempDir(),
		Lookup:    PostcodeLookup{},
		Aliases:   county.AliasTable{"Salop": "Shropshire"},
	}

	res, err := r.Resolve(context.Background(), Params{
		SourceDir: srcDir, SourceKey: srcKey, Counties: []string{"Shropshire"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)

	rows, err := artifact.ReadRows[model.ResolvedRecord](r.OutputDir, res.Key)
	require.NoError(t, err)
	assert.Equal(t, "Shropshire", rows[0].ResolvedCounty)
}

func TestResolve_CacheHitReturnsStats(t *testing.T) {
	srcDir, srcKey := seedExtract(t, testRows())
	r := &Resolver{OutputDir: t.TempDir(), Lookup: testLookup()}
	ctx := context.Background()

	first, err := r.Resolve(ctx, Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)

	second, err := r.Resolve(ctx, Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	// The sidecar carries the original run's breakdown through the cache.
	assert.Equal(t, first.Stats, second.Stats)
}

func TestResolve_EmptySource(t *testing.T) {
	srcDir, srcKey := seedExtract(t, []model.ExtractRecord{})
	r := &Resolver{OutputDir: t.TempDir(), Lookup: PostcodeLookup{}}

	_, err := r.Resolve(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.Error(t, err)
	assert.True(t, resilience.IsValidation(err))
}

func TestResolve_MissingSource(t *testing.T) {
	r := &Resolver{OutputDir: t.TempDir(), Lookup: PostcodeLookup{}}
	_, err := r.Resolve(context.Background(), Params{SourceDir: t.TempDir(), SourceKey: "deadbeef0000"})
	require.Error(t, err)
	assert.True(t, resilience.IsNotFound(err))
}

func TestLoadPostcodeLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nspl.csv")
	data := "pcds,cty25cd,lad25cd,extra\n" +
		"CM1 1AA,E10000012,E07000070,x\n" +
		"CM1 1AB,E10000016,E07000070,x\n" + // duplicate prefix, first wins
		"LS1 4AP,,E08000035,x\n" + // no county code, district fallback has no mapping
		"BS1 2AB,,E06000023,x\n" + // unitary fallback maps to Bristol
		"E1 6AN,E09000001,E09000001,x\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	lookup, err := LoadPostcodeLookup(path)
	require.NoError(t, err)

	assert.Equal(t, "Essex", lookup.CountyFor("CM1 1AA"))
	assert.Equal(t, "Essex", lookup.CountyFor("cm1 1ab"))
	assert.Equal(t, "Bristol", lookup.CountyFor("BS1 2AB"))
	assert.Equal(t, "Greater London", lookup.CountyFor("E1 6AN"))
	assert.Equal(t, "", lookup.CountyFor("LS1 4AP"))
	assert.Equal(t, "", lookup.CountyFor(""))
}

func TestPostcodePrefix(t *testing.T) {
	assert.Equal(t, "CM11", PostcodePrefix("cm1 1aa"))
	assert.Equal(t, "E16A", PostcodePrefix("E1 6AN"))
	assert.Equal(t, "CM1", PostcodePrefix("CM1"))
	assert.Equal(t, "", PostcodePrefix("  "))
}
