package county

import "strings"

// gssCounty maps ONS geography codes to ceremonial or metropolitan county
// names. Covers the metropolitan counties (E11), the two-tier counties (E10)
// and the unitary authorities (E06) that appear as cty/lad codes in the
// postcode reference table.
var gssCounty = map[string]string{
	// Metropolitan counties
	"E11000001": "Greater Manchester",
	"E11000002": "Merseyside",
	"E11000003": "South Yorkshire",
	"E11000005": "West Midlands",
	"E11000006": "West Yorkshire",
	"E11000007": "Tyne and Wear",

	// Two-tier counties
	"E10000002": "Buckinghamshire",
	"E10000003": "Cambridgeshire",
	"E10000006": "Cumbria",
	"E10000007": "Derbyshire",
	"E10000008": "Devon",
	"E10000009": "Dorset",
	"E10000011": "East Sussex",
	"E10000012": "Essex",
	"E10000013": "Gloucestershire",
	"E10000014": "Hampshire",
	"E10000015": "Hertfordshire",
	"E10000016": "Kent",
	"E10000017": "Lancashire",
	"E10000018": "Leicestershire",
	"E10000019": "Lincolnshire",
	"E10000020": "Norfolk",
	"E10000021": "Northamptonshire",
	"E10000023": "North Yorkshire",
	"E10000024": "Nottinghamshire",
	"E10000025": "Oxfordshire",
	"E10000027": "Somerset",
	"E10000028": "Staffordshire",
	"E10000029": "Suffolk",
	"E10000030": "Surrey",
	"E10000031": "Warwickshire",
	"E10000032": "West Sussex",
	"E10000034": "Worcestershire",

	// Unitary authorities, mapped to their ceremonial county
	"E06000001": "County Durham",
	"E06000004": "County Durham",
	"E06000005": "County Durham",
	"E06000006": "Cheshire",
	"E06000007": "Cheshire",
	"E06000008": "Lancashire",
	"E06000009": "Lancashire",
	"E06000010": "East Riding of Yorkshire",
	"E06000011": "East Riding of Yorkshire",
	"E06000013": "Lincolnshire",
	"E06000014": "North Yorkshire",
	"E06000015": "Derbyshire",
	"E06000016": "Leicestershire",
	"E06000017": "Rutland",
	"E06000018": "Nottinghamshire",
	"E06000019": "Herefordshire",
	"E06000020": "Shropshire",
	"E06000021": "Staffordshire",
	"E06000022": "Somerset",
	"E06000023": "Bristol",
	"E06000024": "Somerset",
	"E06000025": "Gloucestershire",
	"E06000026": "Devon",
	"E06000027": "Devon",
	"E06000030": "Wiltshire",
	"E06000031": "Cambridgeshire",
	"E06000032": "Bedfordshire",
	"E06000033": "Essex",
	"E06000034": "Essex",
	"E06000035": "Kent",
	"E06000036": "Berkshire",
	"E06000037": "Berkshire",
	"E06000038": "Berkshire",
	"E06000039": "Berkshire",
	"E06000040": "Berkshire",
	"E06000041": "Berkshire",
	"E06000042": "Buckinghamshire",
	"E06000043": "East Sussex",
	"E06000044": "Hampshire",
	"E06000045": "Hampshire",
	"E06000046": "Isle of Wight",
	"E06000047": "County Durham",
	"E06000049": "Cheshire",
	"E06000050": "Cheshire",
	"E06000052": "Cornwall",
	"E06000054": "Wiltshire",
	"E06000055": "Bedfordshire",
	"E06000056": "Bedfordshire",
	"E06000057": "Northumberland",
	"E06000058": "Dorset",
	"E06000059": "Dorset",
	"E06000061": "Northamptonshire",
	"E06000062": "Northamptonshire",
	"E06000063": "Cumbria",
	"E06000064": "Cumbria",
	"E06000065": "North Yorkshire",
	"E06000066": "Somerset",
}

// CountyForCode maps an ONS geography code to the canonical county
// vocabulary. London boroughs (E09) collapse to "Greater London"; codes for
// the other UK countries map to the country name; everything else goes
// through the static table. Unknown codes yield "".
func CountyForCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return ""
	}

	if strings.HasPrefix(c, "E09") {
		return "Greater London"
	}
	switch c[0] {
	case 'S':
		return "Scotland"
	case 'W':
		return "Wales"
	case 'N':
		return "Northern Ireland"
	}

	return gssCounty[c]
}
