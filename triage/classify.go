package triage

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`^0[1-9]\d{8}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	urlPattern   = regexp.MustCompile(`^https?://.+`)
	digitsOnly   = regexp.MustCompile(`^\d+$`)
	leadingInt   = regexp.MustCompile(`^\s*[+-]?\d+`)

	phoneSeparators = strings.NewReplacer(" ", "", "-", "")
)

// ClassifyPhone reports whether token is a local phone number (ten digits
// starting with 0, spaces and dashes ignored) and returns it compacted.
func ClassifyPhone(token string) (string, bool) {
	compact := phoneSeparators.Replace(token)
	if phonePattern.MatchString(compact) {
		return compact, true
	}
	return "", false
}

func IsEmail(token string) bool { return emailPattern.MatchString(token) }

// URLKind tells donation links from plain websites.
type URLKind int

const (
	NotURL URLKind = iota
	Website
	DonationLink
)

// ClassifyURL recognises http(s) URLs. A URL containing one of markers is a
// donation link.
func ClassifyURL(token string, markers []string) URLKind {
	if !urlPattern.MatchString(token) {
		return NotURL
	}
	for _, m := range markers {
		if m != "" && strings.Contains(token, m) {
			return DonationLink
		}
	}
	return Website
}

// IsRateToken reports whether token should be read as a response rate: it
// carries a percent sign or is all digits.
func IsRateToken(token string) bool {
	return strings.Contains(token, "%") || digitsOnly.MatchString(token)
}

// ParseRate reads the leading integer of a rate token. ok is false when no
// integer is present or it falls outside 0..100.
func ParseRate(token string) (rate int, ok bool) {
	m := leadingInt.FindString(strings.Replace(token, "%", "", 1))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}
