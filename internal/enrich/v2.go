package enrich

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
	"github.com/RedWaffle007/sic-data-software/pkg/anthropic"
	"github.com/RedWaffle007/sic-data-software/pkg/serper"
)

// SearchClient is the slice of the web search API the engine uses.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]serper.Result, error)
}

// PageFetcher retrieves a web page as text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DirectoryEngine runs directory enrichment (v2) over a registry-enriched
// artifact: web search against a business directory, a fetch of the listing
// page with LLM contact extraction, a visit to the discovered website with
// LLM address extraction and normalization, and confidence scoring.
type DirectoryEngine struct {
	Search              SearchClient
	Pages               PageFetcher
	LLM                 anthropic.Client
	OutputDir           string
	Model               string
	DirectoryDomain     string
	BatchSize           int
	ConfidenceThreshold int
}

// reviewThreshold is the confidence score below which a row is flagged for
// manual review.
const reviewThreshold = 70

// V2Result describes the produced (or reused) artifact.
type V2Result struct {
	Key        string `json:"key"`
	Path       string `json:"path"`
	RowCount   int    `json:"row_count"`
	FromCache  bool   `json:"from_cache"`
	Enriched   int    `json:"enriched"`
	Failed     int    `json:"failed"`
	Resumed    int    `json:"resumed"`
	CacheHits  int    `json:"cache_hits"`
	NeedReview int    `json:"need_review"`
}

// directoryFacts is what one company's web lookup established. Entries are
// kept in a persistent cache keyed by company number, separate from the
// run checkpoint, so re-runs over overlapping datasets skip paid lookups.
type directoryFacts struct {
	CompanyNumber     string `parquet:"CompanyNumber"`
	Website           string `parquet:"Website"`
	Phone             string `parquet:"Phone"`
	Email             string `parquet:"Email"`
	AddressLine1      string `parquet:"AddressLine1"`
	AddressLine2      string `parquet:"AddressLine2"`
	Town              string `parquet:"Town"`
	County            string `parquet:"County"`
	Postcode          string `parquet:"Postcode"`
	DirectoryHit      bool   `parquet:"DirectoryHit"`
	AddressNormalized bool   `parquet:"AddressNormalized"`
	AddressMatch      bool   `parquet:"AddressMatch"`
	LLMOK             bool   `parquet:"LLMOK"`
	LookupError       string `parquet:"LookupError"`
}

// contactInfo is the strict shape the contact-extraction reply must take.
// Replies are decoded, never evaluated.
type contactInfo struct {
	Website string `json:"website"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// pageAddress is the free-text address pulled off a company website.
type pageAddress struct {
	Address string `json:"address"`
}

// postalAddress is the normalized shape of a free-text UK address.
type postalAddress struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Town         string `json:"town"`
	County       string `json:"county"`
	Postcode     string `json:"postcode"`
}

const contactSystem = `You extract UK company contact details from the text of a business directory page.
Reply with a single JSON object and nothing else, using exactly these keys:
website, phone, email.
Use "Unreported" for anything the page does not state. Never guess.`

const addressSystem = `You find the company's postal address in the text of its website.
Reply with a single JSON object and nothing else: {"address": "<the full address as written>"}.
Use an empty string when the page states no address. Never guess.`

const normalizeSystem = `You normalize a free-form UK postal address into structured fields.
Reply with a single JSON object and nothing else, using exactly these keys:
address_line_1, address_line_2, town, county, postcode.
Use an empty string for any field the address does not contain.`

// Run enriches every row of a registry-enriched artifact with directory
// data. An existing output short-circuits the whole run unless ForceRefresh
// is set; the run checkpoint resumes partial runs.
func (e *DirectoryEngine) Run(ctx context.Context, p Params) (*V2Result, error) {
	if p.SourceKey == "" {
		return nil, eris.Wrap(resilience.NewValidation("no source artifact key supplied"), "enrich: v2 params")
	}
	if !artifact.Exists(p.SourceDir, p.SourceKey) {
		return nil, eris.Wrap(resilience.NewNotFound("artifact", p.SourceKey), "enrich: v2 source")
	}

	key := artifact.CompositeKey(p.SourceKey, "enrich", "v2")
	if !p.ForceRefresh && artifact.Exists(e.OutputDir, key) {
		meta, err := artifact.ReadMeta(e.OutputDir, key)
		if err != nil {
			return nil, err
		}
		zap.L().Info("directory enrichment cache hit", zap.String("key", key), zap.Int("rows", meta.RowCount))
		return &V2Result{
			Key:       key,
			Path:      artifact.Path(e.OutputDir, key),
			RowCount:  meta.RowCount,
			FromCache: true,
		}, nil
	}

	source, err := artifact.ReadRows[model.EnrichedRecord](p.SourceDir, p.SourceKey)
	if err != nil {
		return nil, err
	}
	if p.Limit > 0 && len(source) > p.Limit {
		source = source[:p.Limit]
	}

	cachePath := filepath.Join(e.OutputDir, "v2_cache.parquet")
	cache := make(map[string]directoryFacts)
	for _, f := range loadCheckpoint[directoryFacts](cachePath) {
		cache[f.CompanyNumber] = f
	}

	cpPath := filepath.Join(e.OutputDir, key+"_checkpoint.parquet")
	done := loadCheckpoint[model.EnrichedV2Record](cpPath)
	seen := make(map[string]bool, len(done))
	for _, r := range done {
		seen[r.CompanyNumber] = true
	}

	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	threshold := e.ConfidenceThreshold
	if threshold <= 0 {
		threshold = reviewThreshold
	}

	result := &V2Result{Key: key, Resumed: len(done)}
	pending := 0
	processed := len(done)

	for _, rec := range source {
		if ctx.Err() != nil {
			if pending > 0 {
				if err := saveCheckpoint(cpPath, done); err != nil {
					zap.L().Error("v2 checkpoint save failed during cancel", zap.Error(err))
				}
				if err := e.flushCache(cachePath, cache); err != nil {
					zap.L().Error("v2 cache save failed during cancel", zap.Error(err))
				}
			}
			return nil, eris.Wrap(ctx.Err(), "enrich: v2 cancelled")
		}
		if seen[rec.CompanyNumber] {
			continue
		}

		facts, hit := cache[rec.CompanyNumber]
		if hit {
			result.CacheHits++
		} else {
			facts = e.lookup(ctx, rec)
			cache[rec.CompanyNumber] = facts
		}

		row := e.compose(rec, facts, threshold)
		if row.EnrichmentError == "" {
			result.Enriched++
		} else {
			result.Failed++
		}
		if row.ReviewFlag {
			result.NeedReview++
		}

		done = append(done, row)
		seen[rec.CompanyNumber] = true
		pending++
		processed++

		if p.Progress != nil {
			p.Progress(processed, len(source))
		}

		if pending >= batchSize {
			if err := saveCheckpoint(cpPath, done); err != nil {
				return nil, err
			}
			if err := e.flushCache(cachePath, cache); err != nil {
				return nil, err
			}
			pending = 0
		}
	}

	meta := artifact.Meta{
		Stage:  "enrich_v2",
		Source: artifact.Path(p.SourceDir, p.SourceKey),
	}
	if err := artifact.WriteRows(e.OutputDir, key, done, meta); err != nil {
		return nil, err
	}
	if err := e.flushCache(cachePath, cache); err != nil {
		return nil, err
	}
	removeCheckpoint(cpPath)

	result.Path = artifact.Path(e.OutputDir, key)
	result.RowCount = len(done)
	zap.L().Info("directory enrichment complete",
		zap.String("key", key),
		zap.Int("rows", len(done)),
		zap.Int("cache_hits", result.CacheHits),
		zap.Int("need_review", result.NeedReview),
	)
	return result, nil
}

// lookup runs the full web pipeline for one company: directory search,
// listing-page contact extraction, website visit with address extraction
// and normalization. Failures degrade the sub-step that hit them; the row
// still completes with a low score.
func (e *DirectoryEngine) lookup(ctx context.Context, rec model.EnrichedRecord) directoryFacts {
	facts := directoryFacts{CompanyNumber: rec.CompanyNumber}

	query := fmt.Sprintf("%s %s %s site:%s", rec.BusinessName, rec.Town, rec.Postcode, e.DirectoryDomain)
	results, err := e.Search.Search(ctx, strings.Join(strings.Fields(query), " "))
	if err != nil {
		facts.LookupError = "search: " + rootMessage(err)
		return facts
	}

	var listingURL string
	for _, r := range results {
		if strings.Contains(r.Link, e.DirectoryDomain) {
			listingURL = r.Link
			break
		}
	}
	if listingURL == "" {
		return facts
	}
	facts.DirectoryHit = true

	listing := e.fetchPage(ctx, listingURL)
	info, err := e.extractContacts(ctx, rec, listing)
	if err != nil {
		facts.LookupError = "extract: " + rootMessage(err)
		return facts
	}
	facts.LLMOK = true
	facts.Website = info.Website
	facts.Phone = info.Phone
	facts.Email = info.Email

	if !reported(facts.Website) {
		return facts
	}
	site := e.fetchPage(ctx, facts.Website)
	if site == "" {
		return facts
	}
	raw, err := e.extractAddress(ctx, site)
	if err != nil {
		zap.L().Warn("website address extraction failed",
			zap.String("company", rec.CompanyNumber), zap.Error(err))
		return facts
	}
	if strings.TrimSpace(raw) == "" {
		return facts
	}
	addr, err := e.normalizeAddress(ctx, raw)
	if err != nil {
		zap.L().Warn("address normalization failed",
			zap.String("company", rec.CompanyNumber), zap.Error(err))
		return facts
	}

	facts.AddressNormalized = true
	facts.AddressLine1 = addr.AddressLine1
	facts.AddressLine2 = addr.AddressLine2
	facts.Town = addr.Town
	facts.County = addr.County
	facts.Postcode = addr.Postcode
	facts.AddressMatch = addressesMatch(
		joinedAddress(rec.AddressLine1, rec.AddressLine2, rec.Town, rec.County, rec.Postcode),
		joinedAddress(addr.AddressLine1, addr.AddressLine2, addr.Town, addr.County, addr.Postcode),
	)
	return facts
}

// fetchPage retrieves a page, treating fetch failures as an empty page: the
// pipeline carries on with whatever text it got.
func (e *DirectoryEngine) fetchPage(ctx context.Context, url string) string {
	text, err := e.Pages.Fetch(ctx, url)
	if err != nil {
		zap.L().Warn("page fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return text
}

// extractContacts asks the model to pull contact details out of the fetched
// listing page.
func (e *DirectoryEngine) extractContacts(ctx context.Context, rec model.EnrichedRecord, page string) (*contactInfo, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s (registered %s, %s)\n\nDirectory page:\n%s", rec.BusinessName, rec.Postcode, rec.Town, page)

	var info contactInfo
	if err := e.ask(ctx, contactSystem, sb.String(), "contact_extraction", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// extractAddress asks the model for the free-text postal address on a
// company website.
func (e *DirectoryEngine) extractAddress(ctx context.Context, page string) (string, error) {
	var addr pageAddress
	if err := e.ask(ctx, addressSystem, "Website text:\n"+page, "address_extraction", &addr); err != nil {
		return "", err
	}
	return addr.Address, nil
}

// normalizeAddress asks the model to structure a free-text UK address.
func (e *DirectoryEngine) normalizeAddress(ctx context.Context, raw string) (*postalAddress, error) {
	var addr postalAddress
	if err := e.ask(ctx, normalizeSystem, "Address:\n"+raw, "address_normalization", &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

// ask runs one strict-JSON model call and decodes the reply into out.
func (e *DirectoryEngine) ask(ctx context.Context, system, user, purpose string, out any) error {
	temp := 0.0
	resp, err := e.LLM.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.Model,
		MaxTokens:   1024,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		return err
	}
	resp.Usage.LogCost(e.Model, purpose)
	return anthropic.UnmarshalResponse(resp.Text(), out)
}

// compose builds the output row from the registry row and the looked-up
// facts, filling placeholders and scoring confidence.
func (e *DirectoryEngine) compose(rec model.EnrichedRecord, facts directoryFacts, threshold int) model.EnrichedV2Record {
	row := model.EnrichedV2Record{
		CompanyNumber:                rec.CompanyNumber,
		BusinessName:                 rec.BusinessName,
		SIC:                          rec.SIC,
		Postcode:                     rec.Postcode,
		County:                       rec.County,
		ResolvedCounty:               rec.ResolvedCounty,
		AddressLine1:                 rec.AddressLine1,
		AddressLine2:                 rec.AddressLine2,
		Town:                         rec.Town,
		PersonWithSignificantControl: rec.PersonWithSignificantControl,
		NatureOfControl:              rec.NatureOfControl,
		Title:                        rec.Title,
		Fname:                        rec.Fname,
		Sname:                        rec.Sname,
		Position:                     rec.Position,
		CompanyStatus:                rec.CompanyStatus,
		CompanyType:                  rec.CompanyType,
		DateOfCreation:               rec.DateOfCreation,
		EnrichmentError:              facts.LookupError,

		Website:             orUnreported(facts.Website),
		Phone:               orUnreported(facts.Phone),
		Email:               orUnreported(facts.Email),
		WebsiteAddressLine1: orUnreported(facts.AddressLine1),
		WebsiteAddressLine2: orUnreported(facts.AddressLine2),
		WebsiteTown:         orUnreported(facts.Town),
		WebsiteCounty:       orUnreported(facts.County),
		WebsitePostcode:     orUnreported(facts.Postcode),
	}

	row.WebsiteAddressMatch = facts.AddressMatch

	score := Confidence(ConfidenceInput{
		DirectoryHit:      facts.DirectoryHit,
		Website:           facts.Website,
		Phone:             facts.Phone,
		Email:             facts.Email,
		AddressMatch:      facts.AddressMatch,
		AddressNormalized: facts.AddressNormalized,
		LLMOK:             facts.LLMOK,
	})
	row.ConfidenceScore = score
	row.ReviewFlag = score < threshold
	return row
}

func (e *DirectoryEngine) flushCache(path string, cache map[string]directoryFacts) error {
	rows := make([]directoryFacts, 0, len(cache))
	for _, f := range cache {
		rows = append(rows, f)
	}
	return artifact.WriteRowsPath(path, rows)
}

func orUnreported(v string) string {
	if reported(v) {
		return strings.TrimSpace(v)
	}
	return model.Unreported
}
