// Package refdata loads the static lookup data the pipeline consumes:
// the country-code table, the fuzzy-match reference lists and the tag
// taxonomies. All of it is read-only to the engine.
package refdata

// countryNames maps ISO 3166-1 alpha-3 codes (as used by the
// crunchbase export) to the plain country names the canonical table
// stores. Unknown codes resolve to nothing rather than an error.
var countryNames = map[string]string{
	"ARE": "United Arab Emirates",
	"ARG": "Argentina",
	"AUS": "Australia",
	"AUT": "Austria",
	"BEL": "Belgium",
	"BGR": "Bulgaria",
	"BRA": "Brazil",
	"CAN": "Canada",
	"CHE": "Switzerland",
	"CHL": "Chile",
	"CHN": "China",
	"COL": "Colombia",
	"CZE": "Czech Republic",
	"DEU": "Germany",
	"DNK": "Denmark",
	"EGY": "Egypt",
	"ESP": "Spain",
	"EST": "Estonia",
	"FIN": "Finland",
	"FRA": "France",
	"GBR": "United Kingdom",
	"GRC": "Greece",
	"HKG": "Hong Kong",
	"HRV": "Croatia",
	"HUN": "Hungary",
	"IDN": "Indonesia",
	"IND": "India",
	"IRL": "Ireland",
	"ISR": "Israel",
	"ITA": "Italy",
	"JPN": "Japan",
	"KEN": "Kenya",
	"KOR": "South Korea",
	"LTU": "Lithuania",
	"LUX": "Luxembourg",
	"LVA": "Latvia",
	"MEX": "Mexico",
	"MYS": "Malaysia",
	"NGA": "Nigeria",
	"NLD": "Netherlands",
	"NOR": "Norway",
	"NZL": "New Zealand",
	"PER": "Peru",
	"PHL": "Philippines",
	"POL": "Poland",
	"PRT": "Portugal",
	"ROU": "Romania",
	"SAU": "Saudi Arabia",
	"SGP": "Singapore",
	"SRB": "Serbia",
	"SVK": "Slovakia",
	"SVN": "Slovenia",
	"SWE": "Sweden",
	"THA": "Thailand",
	"TUR": "Turkey",
	"TWN": "Taiwan",
	"UKR": "Ukraine",
	"URY": "Uruguay",
	"USA": "United States",
	"VNM": "Vietnam",
	"ZAF": "South Africa",
}

// CountryName resolves an alpha-3 country code to its name. The second
// return is false for unknown or empty codes.
func CountryName(code string) (string, bool) {
	name, ok := countryNames[code]
	return name, ok
}
