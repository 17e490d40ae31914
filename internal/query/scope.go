// Package query builds provider-specific request descriptors for camera
// sources: Overpass QL text scoped to a country or region, and fixed
// flat-file resource URLs.
package query

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is a caller error detected before any network I/O.
type ValidationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
}

// Scope is the geographic area a query covers. Region is empty for the whole
// country.
type Scope struct {
	Country string // ISO 3166-1 alpha-2, e.g. "US"
	Region  string // postal code, e.g. "CA"
	Name    string // human-readable area name
}

// IsRegional reports whether the scope is narrower than the whole country.
func (s Scope) IsRegional() bool {
	return s.Region != ""
}

// AreaFilter returns the Overpass area selector for the scope.
func (s Scope) AreaFilter() string {
	if s.IsRegional() {
		return fmt.Sprintf(`area["ISO3166-2"="%s-%s"]`, s.Country, s.Region)
	}
	return fmt.Sprintf(`area["ISO3166-1"="%s"][admin_level=2]`, s.Country)
}

// String returns "US" or "US-CA".
func (s Scope) String() string {
	if s.IsRegional() {
		return s.Country + "-" + s.Region
	}
	return s.Country
}

// usRegions maps US state and DC postal codes to names.
var usRegions = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
}

// regionsByCountry lists the region tables available per country.
var regionsByCountry = map[string]map[string]string{
	"US": usRegions,
}

// ResolveScope validates a country and optional region code.
func ResolveScope(country, region string) (Scope, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	region = strings.ToUpper(strings.TrimSpace(region))

	if len(country) != 2 {
		return Scope{}, &ValidationError{Field: "country", Value: country, Msg: "expected an ISO 3166-1 alpha-2 code"}
	}
	name, ok := countryNames[country]
	if !ok {
		return Scope{}, &ValidationError{Field: "country", Value: country, Msg: "not an assigned ISO 3166-1 alpha-2 code"}
	}
	if region == "" {
		return Scope{Country: country, Name: name}, nil
	}

	regions, ok := regionsByCountry[country]
	if !ok {
		return Scope{}, &ValidationError{Field: "region", Value: region, Msg: fmt.Sprintf("no regions known for country %s", country)}
	}
	regionName, ok := regions[region]
	if !ok {
		return Scope{}, &ValidationError{
			Field: "region",
			Value: region,
			Msg:   "valid codes: " + strings.Join(RegionCodes(country), ", "),
		}
	}
	return Scope{Country: country, Region: region, Name: regionName}, nil
}

// RegionCodes returns the sorted region codes known for a country.
func RegionCodes(country string) []string {
	regions := regionsByCountry[strings.ToUpper(country)]
	codes := make([]string, 0, len(regions))
	for code := range regions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// RegionName returns the display name for a region code, or "".
func RegionName(country, region string) string {
	return regionsByCountry[strings.ToUpper(country)][strings.ToUpper(region)]
}
