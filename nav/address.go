package nav

import "strings"

// US postal abbreviations, applied only to addresses in the US
var (
	usDirections = map[string]string{
		"north":     "N",
		"south":     "S",
		"east":      "E",
		"west":      "W",
		"northeast": "NE",
		"northwest": "NW",
		"southeast": "SE",
		"southwest": "SW",
	}

	usStreetTypes = map[string]string{
		"avenue":     "Ave",
		"boulevard":  "Blvd",
		"circle":     "Cir",
		"court":      "Ct",
		"drive":      "Dr",
		"expressway": "Expy",
		"heights":    "Hts",
		"highway":    "Hwy",
		"junction":   "Jct",
		"lane":       "Ln",
		"parkway":    "Pkwy",
		"place":      "Pl",
		"plaza":      "Plz",
		"road":       "Rd",
		"square":     "Sq",
		"street":     "St",
		"terrace":    "Ter",
		"trail":      "Trl",
		"turnpike":   "Tpke",
		"way":        "Way",
	}

	usStates = map[string]string{
		"alabama":        "AL",
		"alaska":         "AK",
		"arizona":        "AZ",
		"arkansas":       "AR",
		"california":     "CA",
		"colorado":       "CO",
		"connecticut":    "CT",
		"delaware":       "DE",
		"florida":        "FL",
		"georgia":        "GA",
		"hawaii":         "HI",
		"idaho":          "ID",
		"illinois":       "IL",
		"indiana":        "IN",
		"iowa":           "IA",
		"kansas":         "KS",
		"kentucky":       "KY",
		"louisiana":      "LA",
		"maine":          "ME",
		"maryland":       "MD",
		"massachusetts":  "MA",
		"michigan":       "MI",
		"minnesota":      "MN",
		"mississippi":    "MS",
		"missouri":       "MO",
		"montana":        "MT",
		"nebraska":       "NE",
		"nevada":         "NV",
		"new hampshire":  "NH",
		"new jersey":     "NJ",
		"new mexico":     "NM",
		"new york":       "NY",
		"north carolina": "NC",
		"north dakota":   "ND",
		"ohio":           "OH",
		"oklahoma":       "OK",
		"oregon":         "OR",
		"pennsylvania":   "PA",
		"rhode island":   "RI",
		"south carolina": "SC",
		"south dakota":   "SD",
		"tennessee":      "TN",
		"texas":          "TX",
		"utah":           "UT",
		"vermont":        "VT",
		"virginia":       "VA",
		"washington":     "WA",
		"west virginia":  "WV",
		"wisconsin":      "WI",
		"wyoming":        "WY",
	}
)

// firstNonEmpty returns the first non-empty value
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// joinNonEmpty joins the non-empty values with sep
func joinNonEmpty(sep string, values ...string) string {
	parts := values[:0:0]
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

func lookup(table map[string]string, word string) string {
	if short, ok := table[strings.ToLower(word)]; ok {
		return short
	}
	return word
}

// abbreviateUSStreet shortens a leading direction and a trailing street
// type: "North Main Street" becomes "N Main St".
func abbreviateUSStreet(street string) string {
	words := strings.Fields(street)
	if len(words) < 2 {
		return street
	}
	words[0] = lookup(usDirections, words[0])
	words[len(words)-1] = lookup(usStreetTypes, words[len(words)-1])
	return strings.Join(words, " ")
}

// formatAddress builds the display name and a one-line address from a
// Nominatim result. US addresses get postal abbreviations and the
// "City, ST ZIP" locality; elsewhere the locality is "postcode city".
func formatAddress(addr nominatimAddress, names nominatimNames) (name, formatted, country string) {
	country = strings.ToLower(addr.Country)
	us := country == "us"

	road := addr.Road
	if us {
		road = abbreviateUSStreet(road)
	}
	street := joinNonEmpty(" ", addr.HouseNumber, road)
	city := firstNonEmpty(addr.City, addr.Town, addr.Village, addr.Suburb, addr.County)

	var locality string
	if us {
		state := addr.State
		if state != "" {
			state = lookup(usStates, state)
		}
		locality = joinNonEmpty(", ", city, joinNonEmpty(" ", state, addr.PostCode))
	} else {
		locality = joinNonEmpty(" ", addr.PostCode, city)
	}

	name = firstNonEmpty(names.Official, names.Name, names.Alt, addr.Name, street)
	return name, joinNonEmpty(", ", street, locality), country
}
