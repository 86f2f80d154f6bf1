package strains

import (
	"strings"

	"golang.org/x/text/language"
)

// CountryCode upper-cases code and accepts it only when it is an assigned
// ISO-3166 alpha-3 country.
func CountryCode(code string) (string, bool) {
	normalized := normalizeCountry(code)
	if len(normalized) != 3 {
		return "", false
	}
	region, err := language.ParseRegion(normalized)
	if err != nil || !region.IsCountry() || region.ISO3() != normalized {
		return "", false
	}
	return normalized, true
}

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
