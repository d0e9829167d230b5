// Package enrich augments resolved company rows with registry data (v1) and
// directory contact data (v2).
package enrich

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RedWaffle007/sic-data-software/pkg/companieshouse"
)

const individualPSCKind = "individual-person-with-significant-control"

// shareTiers is the ownership preference order. A PSC in a higher tier is
// always selected over any PSC in a lower tier, regardless of list order.
var shareTiers = []string{
	"ownership-of-shares-75-to-100-percent",
	"ownership-of-shares-50-to-75-percent",
	"ownership-of-shares-25-to-50-percent",
}

// honorifics are recognised name prefixes, matched with or without a
// trailing period.
var honorifics = map[string]string{
	"mr":   "Mr",
	"mrs":  "Mrs",
	"ms":   "Ms",
	"miss": "Miss",
	"dr":   "Dr",
	"sir":  "Sir",
	"lady": "Lady",
	"prof": "Prof",
}

// PickPSC selects the individual PSC with the highest ownership tier. Tier
// priority beats list order; within a tier the first listed PSC wins. It
// returns the selected PSC and the matched tier nature, or nil when no
// individual PSC holds a recognised share tier.
func PickPSC(pscs []companieshouse.PSC) (*companieshouse.PSC, string) {
	for _, tier := range shareTiers {
		for i := range pscs {
			p := &pscs[i]
			if p.Kind != individualPSCKind {
				continue
			}
			for _, nature := range p.NaturesOfControl {
				if nature == tier {
					return p, tier
				}
			}
		}
	}
	return nil, ""
}

// ShareTierLabel renders a tier nature as the percentage band it names.
func ShareTierLabel(tier string) string {
	switch tier {
	case "ownership-of-shares-75-to-100-percent":
		return "75-100%"
	case "ownership-of-shares-50-to-75-percent":
		return "50-75%"
	case "ownership-of-shares-25-to-50-percent":
		return "25-50%"
	default:
		return ""
	}
}

// PSCName splits a PSC into title, forename and surname. Structured name
// elements win; otherwise the display name is parsed, consuming a leading
// honorific.
func PSCName(p *companieshouse.PSC) (title, fname, sname string) {
	if p.NameElements.Surname != "" || p.NameElements.Forename != "" {
		return titleCase(p.NameElements.Title), titleCase(p.NameElements.Forename), titleCase(p.NameElements.Surname)
	}

	fields := strings.Fields(p.Name)
	if len(fields) == 0 {
		return "", "", ""
	}
	if h, ok := honorifics[normalizeHonorific(fields[0])]; ok {
		title = h
		fields = fields[1:]
	}
	switch len(fields) {
	case 0:
		return title, "", ""
	case 1:
		return title, "", titleCase(fields[0])
	default:
		return title, titleCase(fields[0]), titleCase(fields[len(fields)-1])
	}
}

// ParseOfficerName splits a registry officer name in "SURNAME, First Middle"
// form into forename(s) and surname. A name without a comma is not parseable
// and yields ok=false. Officer names never carry their own title; see
// TitleFromPSCText for the fallback title source.
func ParseOfficerName(name string) (fname, sname string, ok bool) {
	i := strings.Index(name, ",")
	if i < 0 {
		return "", "", false
	}
	sname = titleCase(strings.TrimSpace(name[:i]))
	fname = titleCase(strings.TrimSpace(name[i+1:]))
	return fname, sname, true
}

// TitleFromPSCText recovers a title for a fallback officer from the joined
// PSC display names. A part contributes its leading title token only when
// the rest of that part contains both the officer's first and last name, so
// a title is never borrowed from an unrelated person.
func TitleFromPSCText(pscText, fname, sname string) string {
	fname = strings.ToLower(strings.TrimSpace(fname))
	sname = strings.ToLower(strings.TrimSpace(sname))
	if pscText == "" || fname == "" || sname == "" {
		return ""
	}

	for _, part := range strings.Split(pscText, ";") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) < 2 {
			continue
		}
		h, ok := honorifics[normalizeHonorific(fields[0])]
		if !ok {
			continue
		}
		rest := strings.ToLower(strings.Join(fields[1:], " "))
		if strings.Contains(rest, fname) && strings.Contains(rest, sname) {
			return h
		}
	}
	return ""
}

// PickOfficer returns the first officer whose name is in the parseable
// "SURNAME, First" form. Corporate officers lack the comma and are skipped.
func PickOfficer(officers []companieshouse.Officer) *companieshouse.Officer {
	for i := range officers {
		o := &officers[i]
		if strings.Contains(o.Name, ",") {
			return o
		}
	}
	return nil
}

func normalizeHonorific(s string) string {
	return strings.TrimSuffix(strings.ToLower(s), ".")
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return cases.Title(language.BritishEnglish).String(strings.ToLower(s))
}
