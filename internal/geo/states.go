package geo

import (
	"errors"
	"fmt"
)

// State describes a US state: postal code, 2-digit FIPS prefix, name, and
// standard-time UTC offset in hours west of UTC.
type State struct {
	Code     string
	FIPS     string
	Name     string
	TZOffset float64
}

// ErrUnknownState signals a state code that is not a known two-letter postal
// abbreviation.
var ErrUnknownState = errors.New("unknown state")

// ErrUnknownCounty signals a county name not found within a state.
var ErrUnknownCounty = errors.New("unknown county")

// states is keyed by postal code. Offsets use each state's dominant standard
// time zone.
var states = map[string]State{
	"AL": {"AL", "01", "Alabama", 6},
	"AK": {"AK", "02", "Alaska", 9},
	"AZ": {"AZ", "04", "Arizona", 7},
	"AR": {"AR", "05", "Arkansas", 6},
	"CA": {"CA", "06", "California", 8},
	"CO": {"CO", "08", "Colorado", 7},
	"CT": {"CT", "09", "Connecticut", 5},
	"DE": {"DE", "10", "Delaware", 5},
	"DC": {"DC", "11", "District of Columbia", 5},
	"FL": {"FL", "12", "Florida", 5},
	"GA": {"GA", "13", "Georgia", 5},
	"HI": {"HI", "15", "Hawaii", 10},
	"ID": {"ID", "16", "Idaho", 7},
	"IL": {"IL", "17", "Illinois", 6},
	"IN": {"IN", "18", "Indiana", 5},
	"IA": {"IA", "19", "Iowa", 6},
	"KS": {"KS", "20", "Kansas", 6},
	"KY": {"KY", "21", "Kentucky", 5},
	"LA": {"LA", "22", "Louisiana", 6},
	"ME": {"ME", "23", "Maine", 5},
	"MD": {"MD", "24", "Maryland", 5},
	"MA": {"MA", "25", "Massachusetts", 5},
	"MI": {"MI", "26", "Michigan", 5},
	"MN": {"MN", "27", "Minnesota", 6},
	"MS": {"MS", "28", "Mississippi", 6},
	"MO": {"MO", "29", "Missouri", 6},
	"MT": {"MT", "30", "Montana", 7},
	"NE": {"NE", "31", "Nebraska", 6},
	"NV": {"NV", "32", "Nevada", 8},
	"NH": {"NH", "33", "New Hampshire", 5},
	"NJ": {"NJ", "34", "New Jersey", 5},
	"NM": {"NM", "35", "New Mexico", 7},
	"NY": {"NY", "36", "New York", 5},
	"NC": {"NC", "37", "North Carolina", 5},
	"ND": {"ND", "38", "North Dakota", 6},
	"OH": {"OH", "39", "Ohio", 5},
	"OK": {"OK", "40", "Oklahoma", 6},
	"OR": {"OR", "41", "Oregon", 8},
	"PA": {"PA", "42", "Pennsylvania", 5},
	"RI": {"RI", "44", "Rhode Island", 5},
	"SC": {"SC", "45", "South Carolina", 5},
	"SD": {"SD", "46", "South Dakota", 6},
	"TN": {"TN", "47", "Tennessee", 6},
	"TX": {"TX", "48", "Texas", 6},
	"UT": {"UT", "49", "Utah", 7},
	"VT": {"VT", "50", "Vermont", 5},
	"VA": {"VA", "51", "Virginia", 5},
	"WA": {"WA", "53", "Washington", 8},
	"WV": {"WV", "54", "West Virginia", 5},
	"WI": {"WI", "55", "Wisconsin", 6},
	"WY": {"WY", "56", "Wyoming", 7},
}

// StateByCode resolves a two-letter postal code.
func StateByCode(code string) (State, error) {
	s, ok := states[code]
	if !ok {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownState, code)
	}
	return s, nil
}

// IsState reports whether code is a known two-letter state code.
func IsState(code string) bool {
	_, ok := states[code]
	return ok
}
