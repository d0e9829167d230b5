package enrich

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
	"github.com/RedWaffle007/sic-data-software/pkg/companieshouse"
)

// RegistryClient is the slice of the Companies House API the engine uses.
type RegistryClient interface {
	Profile(ctx context.Context, companyNumber string) (*companieshouse.CompanyProfile, error)
	PSCs(ctx context.Context, companyNumber string) ([]companieshouse.PSC, error)
	Officers(ctx context.Context, companyNumber string) ([]companieshouse.Officer, error)
}

// Progress is invoked after every processed row.
type Progress func(done, total int)

// Engine runs registry enrichment (v1) over a resolved artifact.
type Engine struct {
	Registry  RegistryClient
	OutputDir string
	BatchSize int
}

// Params are the enrichment inputs. Limit caps how many rows are processed
// (0 means all). Progress may be nil.
type Params struct {
	SourceDir    string
	SourceKey    string
	Limit        int
	ForceRefresh bool
	Progress     Progress
}

// Result describes the produced (or reused) artifact.
type Result struct {
	Key       string `json:"key"`
	Path      string `json:"path"`
	RowCount  int    `json:"row_count"`
	FromCache bool   `json:"from_cache"`
	Enriched  int    `json:"enriched"`
	Failed    int    `json:"failed"`
	Resumed   int    `json:"resumed"`
}

// Run enriches every row of the source artifact, resuming from the
// checkpoint when one exists. Rows already in the checkpoint are never
// re-fetched; a run whose rows are all checkpointed just finalizes.
func (e *Engine) Run(ctx context.Context, p Params) (*Result, error) {
	if p.SourceKey == "" {
		return nil, eris.Wrap(resilience.NewValidation("no source artifact key supplied"), "enrich: params")
	}
	if !artifact.Exists(p.SourceDir, p.SourceKey) {
		return nil, eris.Wrap(resilience.NewNotFound("artifact", p.SourceKey), "enrich: source")
	}

	key := artifact.CompositeKey(p.SourceKey, "enrich", "v1")
	if !p.ForceRefresh && artifact.Exists(e.OutputDir, key) {
		meta, err := artifact.ReadMeta(e.OutputDir, key)
		if err != nil {
			return nil, err
		}
		zap.L().Info("enrichment cache hit", zap.String("key", key), zap.Int("rows", meta.RowCount))
		return &Result{
			Key:       key,
			Path:      artifact.Path(e.OutputDir, key),
			RowCount:  meta.RowCount,
			FromCache: true,
		}, nil
	}

	source, err := artifact.ReadRows[model.ResolvedRecord](p.SourceDir, p.SourceKey)
	if err != nil {
		return nil, err
	}
	if p.Limit > 0 && len(source) > p.Limit {
		source = source[:p.Limit]
	}

	cpPath := filepath.Join(e.OutputDir, key+"_checkpoint.parquet")
	done := loadCheckpoint[model.EnrichedRecord](cpPath)
	seen := make(map[string]bool, len(done))
	for _, r := range done {
		seen[r.CompanyNumber] = true
	}
	if len(done) > 0 {
		zap.L().Info("resuming enrichment from checkpoint",
			zap.String("key", key),
			zap.Int("already_done", len(done)),
			zap.Int("total", len(source)),
		)
	}

	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	result := &Result{Key: key, Resumed: len(done)}
	pending := 0
	processed := len(done)

	for _, rec := range source {
		if ctx.Err() != nil {
			// Persist whatever finished before the cancel.
			if pending > 0 {
				if err := saveCheckpoint(cpPath, done); err != nil {
					zap.L().Error("checkpoint save failed during cancel", zap.Error(err))
				}
			}
			return nil, eris.Wrap(ctx.Err(), "enrich: cancelled")
		}
		if seen[rec.CompanyNumber] {
			continue
		}

		row := e.enrichOne(ctx, rec)
		if row.EnrichmentError == "" {
			result.Enriched++
		} else {
			result.Failed++
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
			pending = 0
		}
	}

	meta := artifact.Meta{
		Stage:  "enrich_v1",
		Source: artifact.Path(p.SourceDir, p.SourceKey),
	}
	if err := artifact.WriteRows(e.OutputDir, key, done, meta); err != nil {
		return nil, err
	}
	removeCheckpoint(cpPath)

	result.Path = artifact.Path(e.OutputDir, key)
	result.RowCount = len(done)
	zap.L().Info("enrichment complete",
		zap.String("key", key),
		zap.Int("rows", len(done)),
		zap.Int("enriched", result.Enriched),
		zap.Int("failed", result.Failed),
		zap.Int("resumed", result.Resumed),
	)
	return result, nil
}

// enrichOne fetches registry data for a single company. API failures are
// recorded on the row rather than aborting the run.
func (e *Engine) enrichOne(ctx context.Context, rec model.ResolvedRecord) model.EnrichedRecord {
	row := model.EnrichedRecord{
		CompanyNumber:  rec.CompanyNumber,
		BusinessName:   rec.BusinessName,
		SIC:            rec.SIC,
		Postcode:       rec.Postcode,
		County:         rec.County,
		ResolvedCounty: rec.ResolvedCounty,
		AddressLine1:   rec.AddressLine1,
		AddressLine2:   rec.AddressLine2,
		Town:           rec.Town,
	}

	profile, err := e.Registry.Profile(ctx, rec.CompanyNumber)
	if err != nil {
		row.EnrichmentError = "profile: " + rootMessage(err)
		return row
	}
	if profile == nil {
		row.EnrichmentError = "company not found"
		return row
	}
	row.CompanyStatus = profile.CompanyStatus
	row.CompanyType = profile.Type
	row.DateOfCreation = profile.DateOfCreation

	pscs, err := e.Registry.PSCs(ctx, rec.CompanyNumber)
	if err != nil {
		row.EnrichmentError = "psc: " + rootMessage(err)
		return row
	}
	officers, err := e.Registry.Officers(ctx, rec.CompanyNumber)
	if err != nil {
		row.EnrichmentError = "officers: " + rootMessage(err)
		return row
	}

	// The aggregate columns cover everyone on record, whoever ends up
	// selected: every PSC name, the union of their natures of control, and
	// every officer's role.
	row.PersonWithSignificantControl = joinPSCNames(pscs)
	row.NatureOfControl = unionNatures(pscs)
	row.Position = joinOfficerRoles(officers)

	if selected, tier := PickPSC(pscs); selected != nil {
		row.Title, row.Fname, row.Sname = PSCName(selected)
		row.SelectedPersonSource = "psc"
		row.SelectedPSCShareTier = ShareTierLabel(tier)
		row.SelectedPSCNatureOfControl = strings.Join(selected.NaturesOfControl, "; ")
		return row
	}

	if officer := PickOfficer(officers); officer != nil {
		fname, sname, _ := ParseOfficerName(officer.Name)
		row.Fname, row.Sname = fname, sname
		row.Title = TitleFromPSCText(row.PersonWithSignificantControl, fname, sname)
		row.SelectedPersonSource = "officer"
		return row
	}

	row.SelectedPersonSource = "none"
	return row
}

func joinPSCNames(pscs []companieshouse.PSC) string {
	names := make([]string, 0, len(pscs))
	for _, p := range pscs {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, "; ")
}

// unionNatures joins the distinct natures of control across all PSCs,
// preserving first-seen order.
func unionNatures(pscs []companieshouse.PSC) string {
	seen := make(map[string]bool)
	var natures []string
	for _, p := range pscs {
		for _, n := range p.NaturesOfControl {
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			natures = append(natures, n)
		}
	}
	return strings.Join(natures, "; ")
}

func joinOfficerRoles(officers []companieshouse.Officer) string {
	roles := make([]string, 0, len(officers))
	for _, o := range officers {
		if o.OfficerRole != "" {
			roles = append(roles, o.OfficerRole)
		}
	}
	return strings.Join(roles, "; ")
}

// rootMessage keeps row-level error strings short: the cause, not the
// wrapped chain.
func rootMessage(err error) string {
	root := eris.Cause(err)
	if root != nil {
		return root.Error()
	}
	return err.Error()
}
