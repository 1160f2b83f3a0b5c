package extract

import (
	"regexp"
	"strings"
)

var (
	addressRe = regexp.MustCompile(`^(?P<street>.+?)\s*,\s*(?P<city>[A-Za-z'.\-\s]+)\s*,\s*(?P<state>NJ)\s*(?P<zip>\d{5})?`)
	zipRe     = regexp.MustCompile(`\b\d{5}\b`)
)

// Address is a parsed "street, city, NJ zip" line.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// LooksLikeAddress reports whether a text line reads like a New Jersey
// street address. The zip is sometimes missing from the listing.
func LooksLikeAddress(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.Contains(line, "NJ") {
		return false
	}
	if strings.Contains(line, ",") && zipRe.MatchString(line) {
		return true
	}
	return strings.Contains(line, ", NJ")
}

// ParseAddress splits an address line into its parts. ok is false when the
// line does not match the expected shape.
func ParseAddress(line string) (Address, bool) {
	m := addressRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Address{}, false
	}
	a := Address{
		Street: strings.Trim(m[addressRe.SubexpIndex("street")], " ,"),
		City:   strings.Trim(m[addressRe.SubexpIndex("city")], " ,"),
		State:  m[addressRe.SubexpIndex("state")],
		Zip:    m[addressRe.SubexpIndex("zip")],
	}
	if a.State == "" {
		a.State = "NJ"
	}
	return a, true
}

// SplitCardAddress splits a map card's address line on commas. The street
// is the first part and the city is the second to last.
func SplitCardAddress(line string) (street, city string) {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 {
		return "", ""
	}
	return parts[0], parts[len(parts)-2]
}
