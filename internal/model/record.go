// Package model defines the typed records that flow between pipeline stages.
// Each stage boundary has an explicit schema; stages never pass untyped maps.
package model

// ExtractRecord is one company row produced by the SIC extractor from the
// bulk snapshot. Field names double as the artifact column names.
type ExtractRecord struct {
	CompanyNumber string `parquet:"CompanyNumber" json:"company_number" csv:"CompanyNumber"`
	BusinessName  string `parquet:"BusinessName" json:"business_name" csv:"BusinessName"`
	SIC           string `parquet:"SIC" json:"sic" csv:"SIC"`
	Postcode      string `parquet:"Postcode" json:"postcode" csv:"Postcode"`
	County        string `parquet:"County" json:"county" csv:"County"`
	AddressLine1  string `parquet:"AddressLine1" json:"address_line_1" csv:"AddressLine1"`
	AddressLine2  string `parquet:"AddressLine2" json:"address_line_2" csv:"AddressLine2"`
	Town          string `parquet:"Town" json:"town" csv:"Town"`
}

// ResolvedRecord is an ExtractRecord after county resolution. ResolvedCounty
// is the canonical county derived from the raw county field or, failing that,
// from the postcode reference table; it is "" when neither source resolves.
type ResolvedRecord struct {
	CompanyNumber  string `parquet:"CompanyNumber" json:"company_number" csv:"CompanyNumber"`
	BusinessName   string `parquet:"BusinessName" json:"business_name" csv:"BusinessName"`
	SIC            string `parquet:"SIC" json:"sic" csv:"SIC"`
	Postcode       string `parquet:"Postcode" json:"postcode" csv:"Postcode"`
	County         string `parquet:"County" json:"county" csv:"County"`
	AddressLine1   string `parquet:"AddressLine1" json:"address_line_1" csv:"AddressLine1"`
	AddressLine2   string `parquet:"AddressLine2" json:"address_line_2" csv:"AddressLine2"`
	Town           string `parquet:"Town" json:"town" csv:"Town"`
	ResolvedCounty string `parquet:"ResolvedCounty" json:"resolved_county" csv:"ResolvedCounty"`
}

// Extract returns the record's stage-A projection.
func (r ResolvedRecord) Extract() ExtractRecord {
	return ExtractRecord{
		CompanyNumber: r.CompanyNumber,
		BusinessName:  r.BusinessName,
		SIC:           r.SIC,
		Postcode:      r.Postcode,
		County:        r.County,
		AddressLine1:  r.AddressLine1,
		AddressLine2:  r.AddressLine2,
		Town:          r.Town,
	}
}

// Resolved lifts an ExtractRecord into the stage-C schema.
func (r ExtractRecord) Resolved(county string) ResolvedRecord {
	return ResolvedRecord{
		CompanyNumber:  r.CompanyNumber,
		BusinessName:   r.BusinessName,
		SIC:            r.SIC,
		Postcode:       r.Postcode,
		County:         r.County,
		AddressLine1:   r.AddressLine1,
		AddressLine2:   r.AddressLine2,
		Town:           r.Town,
		ResolvedCounty: county,
	}
}

// EnrichedRecord is the registry-enrichment output row. Column order in
// exports follows field order here.
type EnrichedRecord struct {
	CompanyNumber                 string `parquet:"CompanyNumber" json:"company_number" csv:"CompanyNumber"`
	BusinessName                  string `parquet:"BusinessName" json:"business_name" csv:"BusinessName"`
	SIC                           string `parquet:"SIC" json:"sic" csv:"SIC"`
	Postcode                      string `parquet:"Postcode" json:"postcode" csv:"Postcode"`
	County                        string `parquet:"County" json:"county" csv:"County"`
	ResolvedCounty                string `parquet:"ResolvedCounty" json:"resolved_county" csv:"ResolvedCounty"`
	AddressLine1                  string `parquet:"AddressLine1" json:"address_line_1" csv:"AddressLine1"`
	AddressLine2                  string `parquet:"AddressLine2" json:"address_line_2" csv:"AddressLine2"`
	Town                          string `parquet:"Town" json:"town" csv:"Town"`
	PersonWithSignificantControl  string `parquet:"PersonWithSignificantControl" json:"person_with_significant_control" csv:"PersonWithSignificantControl"`
	NatureOfControl               string `parquet:"NatureOfControl" json:"nature_of_control" csv:"NatureOfControl"`
	Title                         string `parquet:"Title" json:"title" csv:"Title"`
	Fname                         string `parquet:"Fname" json:"fname" csv:"Fname"`
	Sname                         string `parquet:"Sname" json:"sname" csv:"Sname"`
	SelectedPersonSource          string `parquet:"SelectedPersonSource" json:"selected_person_source" csv:"SelectedPersonSource"`
	SelectedPSCShareTier          string `parquet:"SelectedPSCShareTier" json:"selected_psc_share_tier" csv:"SelectedPSCShareTier"`
	SelectedPSCNatureOfControl    string `parquet:"SelectedPSCNatureOfControl" json:"selected_psc_nature_of_control" csv:"SelectedPSCNatureOfControl"`
	Position                      string `parquet:"Position" json:"position" csv:"Position"`
	CompanyStatus                 string `parquet:"CompanyStatus" json:"company_status" csv:"CompanyStatus"`
	CompanyType                   string `parquet:"CompanyType" json:"company_type" csv:"CompanyType"`
	DateOfCreation                string `parquet:"DateOfCreation" json:"date_of_creation" csv:"DateOfCreation"`
	Website                       string `parquet:"Website" json:"website" csv:"Website"`
	Phone                         string `parquet:"Phone" json:"phone" csv:"Phone"`
	Email                         string `parquet:"Email" json:"email" csv:"Email"`
	EnrichmentError               string `parquet:"EnrichmentError" json:"enrichment_error" csv:"EnrichmentError"`
}

// EnrichedV2Record is the directory-enrichment output row. It carries every
// registry-enrichment column plus the website-sourced contact and address
// fields and the confidence verdict.
type EnrichedV2Record struct {
	CompanyNumber                string `parquet:"CompanyNumber" json:"company_number" csv:"CompanyNumber"`
	BusinessName                 string `parquet:"BusinessName" json:"business_name" csv:"BusinessName"`
	SIC                          string `parquet:"SIC" json:"sic" csv:"SIC"`
	Postcode                     string `parquet:"Postcode" json:"postcode" csv:"Postcode"`
	County                       string `parquet:"County" json:"county" csv:"County"`
	ResolvedCounty               string `parquet:"ResolvedCounty" json:"resolved_county" csv:"ResolvedCounty"`
	AddressLine1                 string `parquet:"AddressLine1" json:"address_line_1" csv:"AddressLine1"`
	AddressLine2                 string `parquet:"AddressLine2" json:"address_line_2" csv:"AddressLine2"`
	Town                         string `parquet:"Town" json:"town" csv:"Town"`
	PersonWithSignificantControl string `parquet:"PersonWithSignificantControl" json:"person_with_significant_control" csv:"PersonWithSignificantControl"`
	NatureOfControl              string `parquet:"NatureOfControl" json:"nature_of_control" csv:"NatureOfControl"`
	Title                        string `parquet:"Title" json:"title" csv:"Title"`
	Fname                        string `parquet:"Fname" json:"fname" csv:"Fname"`
	Sname                        string `parquet:"Sname" json:"sname" csv:"Sname"`
	Position                     string `parquet:"Position" json:"position" csv:"Position"`
	CompanyStatus                string `parquet:"CompanyStatus" json:"company_status" csv:"CompanyStatus"`
	CompanyType                  string `parquet:"CompanyType" json:"company_type" csv:"CompanyType"`
	DateOfCreation               string `parquet:"DateOfCreation" json:"date_of_creation" csv:"DateOfCreation"`
	Website                      string `parquet:"Website" json:"website" csv:"Website"`
	Phone                        string `parquet:"Phone" json:"phone" csv:"Phone"`
	Email                        string `parquet:"Email" json:"email" csv:"Email"`
	WebsiteAddressLine1          string `parquet:"WebsiteAddressLine1" json:"website_address_line_1" csv:"WebsiteAddressLine1"`
	WebsiteAddressLine2          string `parquet:"WebsiteAddressLine2" json:"website_address_line_2" csv:"WebsiteAddressLine2"`
	WebsiteTown                  string `parquet:"WebsiteTown" json:"website_town" csv:"WebsiteTown"`
	WebsiteCounty                string `parquet:"WebsiteCounty" json:"website_county" csv:"WebsiteCounty"`
	WebsitePostcode              string `parquet:"WebsitePostcode" json:"website_postcode" csv:"WebsitePostcode"`
	WebsiteAddressMatch          bool   `parquet:"WebsiteAddressMatch" json:"website_address_match" csv:"WebsiteAddressMatch"`
	ConfidenceScore              int    `parquet:"ConfidenceScore" json:"confidence_score" csv:"ConfidenceScore"`
	ReviewFlag                   bool   `parquet:"ReviewFlag" json:"review_flag" csv:"ReviewFlag"`
	EnrichmentError              string `parquet:"EnrichmentError" json:"enrichment_error" csv:"EnrichmentError"`
}

// Unreported is the placeholder written into directory-enrichment fields that
// could not be established from any source.
const Unreported = "Unreported"
