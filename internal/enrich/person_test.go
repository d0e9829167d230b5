package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedWaffle007/sic-data-software/pkg/companieshouse"
)

func psc(name, kind string, natures ...string) companieshouse.PSC {
	return companieshouse.PSC{Name: name, Kind: kind, NaturesOfControl: natures}
}

func TestPickPSC_TierBeatsListOrder(t *testing.T) {
	pscs := []companieshouse.PSC{
		psc("Mr Low Holder", individualPSCKind, "ownership-of-shares-25-to-50-percent"),
		psc("Mrs High Holder", individualPSCKind, "ownership-of-shares-75-to-100-percent"),
	}

	selected, tier := PickPSC(pscs)
	require.NotNil(t, selected)
	assert.Equal(t, "Mrs High Holder", selected.Name)
	assert.Equal(t, "ownership-of-shares-75-to-100-percent", tier)
	assert.Equal(t, "75-100%", ShareTierLabel(tier))
}

func TestPickPSC_SkipsCorporate(t *testing.T) {
	corporate := psc("HOLDCO LTD", "corporate-entity-person-with-significant-control", "ownership-of-shares-75-to-100-percent")
	individual := psc("Ms Sole Trader", individualPSCKind, "ownership-of-shares-50-to-75-percent")

	selected, tier := PickPSC([]companieshouse.PSC{corporate, individual})
	require.NotNil(t, selected)
	assert.Equal(t, "Ms Sole Trader", selected.Name)
	assert.Equal(t, "50-75%", ShareTierLabel(tier))
}

func TestPickPSC_CeasedStillEligible(t *testing.T) {
	// Tier order is the only selection rule; a ceased-on date does not
	// disqualify a PSC.
	ceased := psc("Mr Gone Away", individualPSCKind, "ownership-of-shares-75-to-100-percent")
	ceased.CeasedOn = "2020-01-01"
	current := psc("Ms Still Here", individualPSCKind, "ownership-of-shares-50-to-75-percent")

	selected, tier := PickPSC([]companieshouse.PSC{ceased, current})
	require.NotNil(t, selected)
	assert.Equal(t, "Mr Gone Away", selected.Name)
	assert.Equal(t, "75-100%", ShareTierLabel(tier))
}

func TestPickPSC_NoEligible(t *testing.T) {
	pscs := []companieshouse.PSC{
		psc("HOLDCO LTD", "corporate-entity-person-with-significant-control", "ownership-of-shares-75-to-100-percent"),
		psc("Mr Voting Only", individualPSCKind, "voting-rights-75-to-100-percent"),
	}
	selected, tier := PickPSC(pscs)
	assert.Nil(t, selected)
	assert.Empty(t, tier)
}

func TestPSCName_StructuredElementsWin(t *testing.T) {
	p := psc("Dr Jane Ann Doe", individualPSCKind)
	p.NameElements = companieshouse.NameElements{Title: "DR", Forename: "JANE", Surname: "DOE"}

	title, fname, sname := PSCName(&p)
	assert.Equal(t, "Dr", title)
	assert.Equal(t, "Jane", fname)
	assert.Equal(t, "Doe", sname)
}

func TestPSCName_ParsedFromDisplayName(t *testing.T) {
	p := psc("Mr John Edward Smith", individualPSCKind)
	title, fname, sname := PSCName(&p)
	assert.Equal(t, "Mr", title)
	assert.Equal(t, "John", fname)
	assert.Equal(t, "Smith", sname)

	p = psc("Prof. Ada Lovelace", individualPSCKind)
	title, fname, sname = PSCName(&p)
	assert.Equal(t, "Prof", title)
	assert.Equal(t, "Ada", fname)
	assert.Equal(t, "Lovelace", sname)

	p = psc("Madonna", individualPSCKind)
	title, fname, sname = PSCName(&p)
	assert.Empty(t, title)
	assert.Empty(t, fname)
	assert.Equal(t, "Madonna", sname)
}

func TestParseOfficerName(t *testing.T) {
	fname, sname, ok := ParseOfficerName("SMITH, John Edward")
	require.True(t, ok)
	assert.Equal(t, "John Edward", fname)
	assert.Equal(t, "Smith", sname)

	fname, sname, ok = ParseOfficerName("DOE, Jane")
	require.True(t, ok)
	assert.Equal(t, "Jane", fname)
	assert.Equal(t, "Doe", sname)

	_, _, ok = ParseOfficerName("ACME NOMINEES LIMITED")
	assert.False(t, ok)
}

func TestTitleFromPSCText(t *testing.T) {
	pscText := "HOLDCO LTD; Mr Dan Director"

	// Title token plus a name containing both first and last name.
	assert.Equal(t, "Mr", TitleFromPSCText(pscText, "Dan", "Director"))

	// The name in the titled part must cover both names.
	assert.Empty(t, TitleFromPSCText(pscText, "Dan", "Smith"))

	// Parts without a leading title token contribute nothing.
	assert.Empty(t, TitleFromPSCText("Dan Director", "Dan", "Director"))

	assert.Empty(t, TitleFromPSCText("", "Dan", "Director"))
	assert.Empty(t, TitleFromPSCText(pscText, "", "Director"))
}

func TestPickOfficer(t *testing.T) {
	officers := []companieshouse.Officer{
		{Name: "ACME SECRETARIES LTD", OfficerRole: "corporate-secretary"},
		{Name: "FORMER, Rita", OfficerRole: "director", ResignedOn: "2019-01-01"},
		{Name: "CURRENT, Alan", OfficerRole: "director"},
	}
	// First comma-form name wins; a resigned-on date does not disqualify.
	o := PickOfficer(officers)
	require.NotNil(t, o)
	assert.Equal(t, "FORMER, Rita", o.Name)

	assert.Nil(t, PickOfficer(nil))
	assert.Nil(t, PickOfficer([]companieshouse.Officer{{Name: "NO COMMA HERE"}}))
}
