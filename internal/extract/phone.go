// Package extract turns page text, links, and HTML fragments into
// dispensary record fields.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// phoneRe is deliberately loose; NormalizePhone decides what is a phone.
	phoneRe  = regexp.MustCompile(`(?:\+?1[\s\-.)]*)?(?:\(?\d{3}\)?[\s\-.)]*)\d{3}[\s\-.)]*\d{4}`)
	nonDigit = regexp.MustCompile(`\D`)
	phoneFmt = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
)

// FormatPhone returns digits in "(xxx) xxx-xxxx" form, or "" when the input
// does not hold exactly ten digits after dropping a leading US country code.
func FormatPhone(s string) string {
	digits := nonDigit.ReplaceAllString(s, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}

// NormalizePhone formats a phone number when possible and otherwise returns
// the trimmed input unchanged.
func NormalizePhone(s string) string {
	if f := FormatPhone(s); f != "" {
		return f
	}
	return strings.TrimSpace(s)
}

// IsFormattedPhone reports whether s is already in "(xxx) xxx-xxxx" form.
func IsFormattedPhone(s string) bool {
	return phoneFmt.MatchString(s)
}

// PhoneFromTel extracts a formatted phone from a tel: href.
func PhoneFromTel(href string) string {
	i := strings.Index(strings.ToLower(href), "tel:")
	if i < 0 {
		return ""
	}
	return FormatPhone(href[i+len("tel:"):])
}

// PhonesFromText returns every valid phone found in text, formatted and in
// order of first appearance.
func PhonesFromText(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range phoneRe.FindAllString(text, -1) {
		p := FormatPhone(m)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// FirstPhone returns the first valid phone in text, or "".
func FirstPhone(text string) string {
	if phones := PhonesFromText(text); len(phones) > 0 {
		return phones[0]
	}
	return ""
}
