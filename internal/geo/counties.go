package geo

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// County identifies a US county by state postal code, short name (the Census
// designation suffix stripped), and 5-digit FIPS code.
type County struct {
	State string
	Name  string
	FIPS  string
}

// Catalog is the canonical county list used for validation and for the
// industry/agriculture FIPS join.
type Catalog struct {
	byState map[string][]County
	sorted  []County // ascending FIPS
}

// designations are the Census county-equivalent suffixes stripped from names,
// longest first so "City and Borough" wins over "Borough".
var designations = []string{
	" City and Borough",
	" Census Area",
	" Municipality",
	" Borough",
	" County",
	" Parish",
	" city",
	" City",
}

func shortName(name string) string {
	for _, d := range designations {
		if strings.HasSuffix(name, d) {
			return strings.TrimSuffix(name, d)
		}
	}
	return name
}

// ParseCounties reads the Census national county file, a headerless delimited
// list of "ST,state-fips,county-fips,County Name,class".
func ParseCounties(data []byte) (*Catalog, error) {
	c := &Catalog{byState: make(map[string][]County)}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 4 {
			return nil, fmt.Errorf("parse county list: malformed line %q", line)
		}
		county := County{
			State: fields[0],
			Name:  shortName(fields[3]),
			FIPS:  fields[1] + fields[2],
		}
		c.byState[county.State] = append(c.byState[county.State], county)
		c.sorted = append(c.sorted, county)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse county list: %w", err)
	}
	if len(c.sorted) == 0 {
		return nil, fmt.Errorf("parse county list: no rows")
	}
	sort.Slice(c.sorted, func(i, j int) bool { return c.sorted[i].FIPS < c.sorted[j].FIPS })
	return c, nil
}

// Lookup resolves a county by state code and short name. Unknown state or
// county is a configuration error.
func (c *Catalog) Lookup(state, county string) (County, error) {
	if !IsState(state) {
		return County{}, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	for _, ct := range c.byState[state] {
		if ct.Name == county {
			return ct, nil
		}
	}
	return County{}, fmt.Errorf("%w: %q in state %s", ErrUnknownCounty, county, state)
}

// InState returns the counties of a state in file order.
func (c *Catalog) InState(state string) []County {
	return c.byState[state]
}

// SortedByFIPS returns all counties in ascending FIPS order.
func (c *Catalog) SortedByFIPS() []County {
	return c.sorted
}

// GISJoinID renders a FIPS code in the datasets' GIS join form,
// e.g. "06001" -> "G0600010".
func GISJoinID(fips string) string {
	return fmt.Sprintf("G%s0%s0", fips[:2], fips[2:])
}
