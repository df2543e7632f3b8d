package wizard

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenLength is the shortest API token accepted before asking the
// provider to verify it.
const MinTokenLength = 10

func validToken(token string) bool {
	return utf8.RuneCountInString(token) >= MinTokenLength
}

// validDomain requires at least one dot and no whitespace.
func validDomain(domain string) bool {
	return strings.Contains(domain, ".") && !strings.ContainsFunc(domain, unicode.IsSpace)
}

// validIP checks shape only: exactly three dots and nothing but ASCII digits
// otherwise. Octet ranges are not checked, so "999.999.999.999" passes.
func validIP(ip string) bool {
	if strings.Count(ip, ".") != 3 {
		return false
	}
	digits := strings.ReplaceAll(ip, ".", "")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
