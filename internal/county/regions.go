package county

// Region is one entry in the fixed England region taxonomy used by the
// dataset analyzer. The taxonomy is deliberately not configurable: analysis
// is restricted to England, and region membership is a product decision.
type Region struct {
	Name     string
	Code     string
	Counties []string
}

// EnglandRegions lists the eight England regions in presentation order.
var EnglandRegions = []Region{
	{
		Name:     "North West",
		Code:     "NW",
		Counties: []string{"Cheshire", "Cumbria", "Greater Manchester", "Lancashire", "Merseyside"},
	},
	{
		Name:     "North East",
		Code:     "NE",
		Counties: []string{"County Durham", "Northumberland", "Tyne and Wear"},
	},
	{
		Name:     "West Midlands",
		Code:     "WM",
		Counties: []string{"Herefordshire", "Shropshire", "Staffordshire", "Warwickshire", "West Midlands", "Worcestershire"},
	},
	{
		Name:     "East Midlands",
		Code:     "EM",
		Counties: []string{"Derbyshire", "Leicestershire", "Lincolnshire", "Northamptonshire", "Nottinghamshire", "Rutland"},
	},
	{
		Name:     "East",
		Code:     "E",
		Counties: []string{"Bedfordshire", "Cambridgeshire", "Essex", "Hertfordshire", "Norfolk", "Suffolk"},
	},
	{
		Name:     "South West",
		Code:     "SW",
		Counties: []string{"Bristol", "Cornwall", "Devon", "Dorset", "Gloucestershire", "Somerset", "Wiltshire"},
	},
	{
		Name:     "South East",
		Code:     "SE",
		Counties: []string{"Berkshire", "Buckinghamshire", "East Sussex", "Hampshire", "Isle of Wight", "Kent", "Oxfordshire", "Surrey", "West Sussex"},
	},
	{
		Name:     "London",
		Code:     "L",
		Counties: []string{"Greater London"},
	},
}

// regionByCounty indexes the taxonomy by normalized county name.
var regionByCounty = func() map[string]string {
	m := make(map[string]string)
	for _, r := range EnglandRegions {
		for _, c := range r.Counties {
			m[Normalize(c)] = r.Name
		}
	}
	return m
}()

// IsEnglandCounty reports whether the name belongs to the England taxonomy.
func IsEnglandCounty(name string) bool {
	_, ok := regionByCounty[Normalize(name)]
	return ok
}

// RegionFor returns the region name for a county, or "" when the county is
// outside the England taxonomy.
func RegionFor(name string) string {
	return regionByCounty[Normalize(name)]
}
