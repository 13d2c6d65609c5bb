package codes

import "strings"

// Country describes how one country appears in station codes
type Country struct {
	ISO3166 string
	Name    string
	RIL100  string
	UIC     int
	TLD     string
}

const flagOffset = 0x1F1E6 - 'A'

// Flag returns the emoji flag made of the regional indicator letters of
// the ISO code
func (c Country) Flag() string {
	var b strings.Builder
	for _, r := range c.ISO3166 {
		b.WriteRune(r + flagOffset)
	}
	return b.String()
}

// ColonPrefix returns the "XX:" prefix form
func (c Country) ColonPrefix() string {
	return c.ISO3166 + ":"
}

// XPrefix returns the RIL100 pseudo prefix starting with X
func (c Country) XPrefix() string {
	return "X" + c.RIL100
}

// ZPrefix returns the RIL100 pseudo prefix starting with Z
func (c Country) ZPrefix() string {
	return "Z" + c.RIL100
}

// Known reports whether c is a real table entry
func (c Country) Known() bool {
	return c.ISO3166 != ""
}

// Germany is the home country: bare codes belong to it
var Germany = Country{ISO3166: "DE", Name: "Germany", RIL100: "-", UIC: 80, TLD: "de"}

// Unknown is returned when a code names a country outside the table
var Unknown = Country{Name: "unknown"}

var countries = []Country{
	Germany,
	{ISO3166: "AT", Name: "Austria", RIL100: "A", UIC: 81, TLD: "at"},
	{ISO3166: "BE", Name: "Belgium", RIL100: "B", UIC: 88, TLD: "be"},
	{ISO3166: "RU", Name: "Russia", RIL100: "C", UIC: 20, TLD: "ru"},
	{ISO3166: "DK", Name: "Denmark", RIL100: "D", UIC: 86, TLD: "dk"},
	{ISO3166: "ES", Name: "Spain", RIL100: "E", UIC: 71, TLD: "es"},
	{ISO3166: "FR", Name: "France", RIL100: "F", UIC: 87, TLD: "fr"},
	{ISO3166: "GR", Name: "Greece", RIL100: "G", UIC: 73, TLD: "gr"},
	{ISO3166: "FI", Name: "Finland", RIL100: "H", UIC: 10, TLD: "fi"},
	{ISO3166: "IT", Name: "Italy", RIL100: "I", UIC: 83, TLD: "it"},
	{ISO3166: "BA", Name: "Bosnia and Herzegovina", RIL100: "J", UIC: 49, TLD: "ba"},
	{ISO3166: "GB", Name: "United Kingdom", RIL100: "K", UIC: 70, TLD: "uk"},
	{ISO3166: "LU", Name: "Luxembourg", RIL100: "L", UIC: 82, TLD: "lu"},
	{ISO3166: "HU", Name: "Hungary", RIL100: "M", UIC: 55, TLD: "hu"},
	{ISO3166: "NL", Name: "Netherlands", RIL100: "N", UIC: 84, TLD: "nl"},
	{ISO3166: "NO", Name: "Norway", RIL100: "O", UIC: 76, TLD: "no"},
	{ISO3166: "PL", Name: "Poland", RIL100: "P", UIC: 51, TLD: "pl"},
	{ISO3166: "TR", Name: "Turkey", RIL100: "Q", UIC: 75, TLD: "tr"},
	{ISO3166: "RS", Name: "Serbia", RIL100: "R", UIC: 72, TLD: "rs"},
	{ISO3166: "CH", Name: "Switzerland", RIL100: "S", UIC: 85, TLD: "ch"},
	{ISO3166: "CZ", Name: "Czech Republic", RIL100: "T", UIC: 54, TLD: "cz"},
	{ISO3166: "RO", Name: "Romania", RIL100: "U", UIC: 53, TLD: "ro"},
	{ISO3166: "SE", Name: "Sweden", RIL100: "V", UIC: 74, TLD: "se"},
	{ISO3166: "BG", Name: "Bulgaria", RIL100: "W", UIC: 52, TLD: "bg"},
	{ISO3166: "PT", Name: "Portugal", RIL100: "X", UIC: 94, TLD: "pt"},
	{ISO3166: "SK", Name: "Slovakia", RIL100: "Y", UIC: 56, TLD: "sk"},
	{ISO3166: "SI", Name: "Slovenia", RIL100: "Z", UIC: 79, TLD: "si"},
}

var (
	byISO    = make(map[string]Country)
	byTLD    = make(map[string]Country)
	byRIL100 = make(map[string]Country)
	byUIC    = make(map[int]Country)
	byFlag   = make(map[string]Country)
)

func init() {
	for _, c := range countries {
		byISO[c.ISO3166] = c
		byTLD[strings.ToUpper(c.TLD)] = c
		byRIL100[c.RIL100] = c
		byUIC[c.UIC] = c
		byFlag[c.Flag()] = c
	}
}

// Countries returns the country table
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}

// CountryByISO looks a country up by its ISO 3166 alpha-2 code
func CountryByISO(iso string) (Country, bool) {
	c, ok := byISO[strings.ToUpper(iso)]
	return c, ok
}
