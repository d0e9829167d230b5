package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/pkg/anthropic"
	"github.com/RedWaffle007/sic-data-software/pkg/serper"
)

type fakeSearch struct {
	results map[string][]serper.Result
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]serper.Result, error) {
	f.queries = append(f.queries, query)
	for _, r := range f.results {
		return r, nil
	}
	return nil, nil
}

type fakePages struct {
	pages   map[string]string
	fetched []string
}

func (f *fakePages) Fetch(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	return f.pages[url], nil
}

// fakeLLM replays scripted replies in call order.
type fakeLLM struct {
	replies []string
	calls   int
}

func (f *fakeLLM) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	reply := "{}"
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: reply}},
	}, nil
}

func seedEnriched(t *testing.T, rows []model.EnrichedRecord) (string, string) {
	t.Helper()
	dir := t.TempDir()
	key := artifact.Key("v1-output")
	require.NoError(t, artifact.WriteRows(dir, key, rows, artifact.Meta{Stage: "enrich_v1"}))
	return dir, key
}

const listingURL = "https://www.endole.co.uk/company/01234567/acme-ltd"

func acmeRecord() model.EnrichedRecord {
	return model.EnrichedRecord{
		CompanyNumber: "01234567",
		BusinessName:  "ACME LTD",
		AddressLine1:  "1 High St",
		Town:          "Chelmsford",
		County:        "Essex",
		Postcode:      "CM1 1AA",
	}
}

func directoryHit() []serper.Result {
	return []serper.Result{{
		Title:   "ACME LTD - Company Profile - Endole",
		Link:    listingURL,
		Snippet: "ACME LTD, 1 High St, Chelmsford CM1 1AA.",
	}}
}

func acmePages() map[string]string {
	return map[string]string{
		listingURL:            "ACME LTD. Website: acme.example. Tel: 01234 567890.",
		"https://acme.example": "Contact us: ACME LTD, 1 High St, Chelmsford, Essex CM1 1AA",
	}
}

func newV2Engine(search SearchClient, pages PageFetcher, llm anthropic.Client, outDir string) *DirectoryEngine {
	return &DirectoryEngine{
		Search:              search,
		Pages:               pages,
		LLM:                 llm,
		OutputDir:           outDir,
		Model:               "claude-haiku-4-5-20251001",
		DirectoryDomain:     "endole.co.uk",
		BatchSize:           10,
		ConfidenceThreshold: 70,
	}
}

func TestV2Run_HighConfidenceRow(t *testing.T) {
	srcDir, srcKey := seedEnriched(t, []model.EnrichedRecord{acmeRecord()})

	search := &fakeSearch{results: map[string][]serper.Result{"acme": directoryHit()}}
	pages := &fakePages{pages: acmePages()}
	llm := &fakeLLM{replies: []string{
		`{"website":"https://acme.example","phone":"01234 567890","email":"info@acme.example"}`,
		`{"address":"1 High St, Chelmsford, Essex CM1 1AA"}`,
		`{"address_line_1":"1 High St","address_line_2":"","town":"Chelmsford","county":"Essex","postcode":"CM1 1AA"}`,
	}}

	e := newV2Engine(search, pages, llm, t.TempDir())
	res, err := e.Run(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Enriched)
	assert.Zero(t, res.NeedReview)

	require.Len(t, search.queries, 1)
	assert.Equal(t, "ACME LTD Chelmsford CM1 1AA site:endole.co.uk", search.queries[0])

	// The listing page is fetched before extraction, then the discovered
	// website is visited for its address.
	assert.Equal(t, []string{listingURL, "https://acme.example"}, pages.fetched)
	assert.Equal(t, 3, llm.calls, "contacts, address, normalization")

	rows, err := artifact.ReadRows[model.EnrichedV2Record](e.OutputDir, res.Key)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "https://acme.example", row.Website)
	assert.Equal(t, "01234 567890", row.Phone)
	assert.Equal(t, "1 High St", row.WebsiteAddressLine1)
	assert.Equal(t, "Chelmsford", row.WebsiteTown)
	assert.True(t, row.WebsiteAddressMatch)
	assert.Equal(t, 100, row.ConfidenceScore)
	assert.False(t, row.ReviewFlag)
}

func TestV2Run_AddressMatchComparesWholeAddress(t *testing.T) {
	srcDir, srcKey := seedEnriched(t, []model.EnrichedRecord{acmeRecord()})

	search := &fakeSearch{results: map[string][]serper.Result{"acme": directoryHit()}}
	pages := &fakePages{pages: acmePages()}
	// The website's address shares only the postcode with the registered
	// address.
	llm := &fakeLLM{replies: []string{
		`{"website":"https://acme.example","phone":"Unreported","email":"Unreported"}`,
		`{"address":"Unit 5, 99 Other Rd, Leeds"}`,
		`{"address_line_1":"99 Other Rd","address_line_2":"Unit 5","town":"Leeds","county":"West Yorkshire","postcode":"CM1 1AA"}`,
	}}

	e := newV2Engine(search, pages, llm, t.TempDir())
	res, err := e.Run(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)

	rows, err := artifact.ReadRows[model.EnrichedV2Record](e.OutputDir, res.Key)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.False(t, row.WebsiteAddressMatch, "a shared postcode alone is not an address match")
	// 40 directory + 15 website + 10 normalized + 5 clean pipeline.
	assert.Equal(t, 70, row.ConfidenceScore)
	assert.Equal(t, "99 Other Rd", row.WebsiteAddressLine1)
}

func TestV2Run_UnreportedWebsiteSkipsSiteVisit(t *testing.T) {
	srcDir, srcKey := seedEnriched(t, []model.EnrichedRecord{acmeRecord()})

	search := &fakeSearch{results: map[string][]serper.Result{"acme": directoryHit()}}
	pages := &fakePages{pages: acmePages()}
	llm := &fakeLLM{replies: []string{
		`{"website":"Unreported","phone":"01234 567890","email":"Unreported"}`,
	}}

	e := newV2Engine(search, pages, llm, t.TempDir())
	res, err := e.Run(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NeedReview)

	assert.Equal(t, []string{listingURL}, pages.fetched, "no website, no site visit")
	assert.Equal(t, 1, llm.calls)

	rows, err := artifact.ReadRows[model.EnrichedV2Record](e.OutputDir, res.Key)
	require.NoError(t, err)
	row := rows[0]
	assert.False(t, row.WebsiteAddressMatch)
	assert.Equal(t, "Unreported", row.WebsiteAddressLine1)
	// 40 directory + 15 phone + 5 clean pipeline.
	assert.Equal(t, 60, row.ConfidenceScore)
	assert.True(t, row.ReviewFlag)
}

func TestV2Run_NoResultsFlagsForReview(t *testing.T) {
	srcDir, srcKey := seedEnriched(t, []model.EnrichedRecord{{
		CompanyNumber: "07654321",
		BusinessName:  "OBSCURE LTD",
		Postcode:      "LS1 4AP",
	}})

	search := &fakeSearch{}
	pages := &fakePages{}
	llm := &fakeLLM{}
	e := newV2Engine(search, pages, llm, t.TempDir())

	res, err := e.Run(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NeedReview)
	assert.Zero(t, llm.calls, "no listing means nothing to extract")
	assert.Empty(t, pages.fetched)

	rows, err := artifact.ReadRows[model.EnrichedV2Record](e.OutputDir, res.Key)
	require.NoError(t, err)
	row := rows[0]
	assert.Equal(t, "Unreported", row.Website)
	assert.Equal(t, "Unreported", row.Phone)
	assert.Equal(t, "Unreported", row.Email)
	assert.Equal(t, 0, row.ConfidenceScore)
	assert.True(t, row.ReviewFlag)
}

func TestV2Run_PersistentCacheSkipsLookups(t *testing.T) {
	rows := []model.EnrichedRecord{acmeRecord()}
	srcDir, srcKey := seedEnriched(t, rows)

	search := &fakeSearch{results: map[string][]serper.Result{"acme": directoryHit()}}
	pages := &fakePages{pages: acmePages()}
	llm := &fakeLLM{replies: []string{
		`{"website":"Unreported","phone":"Unreported","email":"Unreported"}`,
	}}
	outDir := t.TempDir()

	e := newV2Engine(search, pages, llm, outDir)
	_, err := e.Run(context.Background(), Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls)

	// A different dataset containing the same company reuses cached facts.
	srcDir2, srcKey2 := seedEnriched(t, rows)
	res, err := e.Run(context.Background(), Params{SourceDir: srcDir2, SourceKey: srcKey2})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CacheHits)
	assert.Equal(t, 1, llm.calls, "cached company triggers no new LLM call")
	assert.Len(t, search.queries, 1)
	assert.Len(t, pages.fetched, 1)
}

func TestV2Run_OutputExistsShortCircuits(t *testing.T) {
	srcDir, srcKey := seedEnriched(t, []model.EnrichedRecord{{
		CompanyNumber: "01234567",
		BusinessName:  "ACME LTD",
	}})

	search := &fakeSearch{}
	e := newV2Engine(search, &fakePages{}, &fakeLLM{}, t.TempDir())
	ctx := context.Background()

	first, err := e.Run(ctx, Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	queriesAfterFirst := len(search.queries)

	second, err := e.Run(ctx, Params{SourceDir: srcDir, SourceKey: srcKey})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, queriesAfterFirst, len(search.queries))
}
