package domain

// NationalLocation is the canonical code of the computed national aggregate.
const NationalLocation = "US"

// LocationLookup resolves state abbreviations to canonical location codes.
// The preprocessor consumes this interface so the bundled table can be
// swapped out in tests or replaced by an external reference service.
type LocationLookup interface {
	// Lookup returns the canonical code for a two-letter abbreviation.
	// False means the abbreviation is not in the table.
	Lookup(abbreviation string) (string, bool)
}

// LocationTable is a map-backed LocationLookup.
type LocationTable map[string]string

// Lookup implements LocationLookup.
func (t LocationTable) Lookup(abbreviation string) (string, bool) {
	code, ok := t[abbreviation]
	return code, ok
}

// USLocations returns the bundled abbreviation → FIPS table covering the 50
// states, DC, and the territories HHS reports (AS, GU, MP, PR, VI). Codes
// are the two-digit census state FIPS codes, zero-padded.
func USLocations() LocationTable {
	return LocationTable{
		"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
		"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
		"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
		"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
		"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
		"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
		"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
		"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
		"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
		"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
		"WY": "56",
		"AS": "60", "GU": "66", "MP": "69", "PR": "72", "VI": "78",
	}
}
