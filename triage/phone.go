package triage

import (
	"regexp"
	"strings"

	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MobilePrefix is the local mobile prefix stripped before matching.
const MobilePrefix = "05"

// MinQueryDigits is the shortest query, counted in raw digits, accepted by
// SearchByPhone.
const MinQueryDigits = 7

var (
	nonDigit       = regexp.MustCompile(`\D`)
	querySeparator = regexp.MustCompile(`[\n,\s|]+`)
)

func digits(s string) string { return nonDigit.ReplaceAllString(s, "") }

// NormalizePhone keeps the digits and strips a leading "05" or "5".
func NormalizePhone(s string) string {
	d := digits(s)
	switch {
	case strings.HasPrefix(d, MobilePrefix):
		return d[len(MobilePrefix):]
	case strings.HasPrefix(d, MobilePrefix[1:]):
		return d[1:]
	}
	return d
}

// PhoneMatches reports whether a stored phone matches a query. Equality and
// containment in either direction count, as does containment once the
// mobile prefix is put back on either side.
func PhoneMatches(stored, query string) bool {
	s, q := NormalizePhone(stored), NormalizePhone(query)
	if s == "" || q == "" {
		return false
	}
	if s == q || strings.Contains(s, q) {
		return true
	}
	// a very short stored number would otherwise match almost anything
	if len(s) >= MinQueryDigits && strings.Contains(q, s) {
		return true
	}
	sd, qd := digits(stored), digits(query)
	return strings.Contains(sd, MobilePrefix+q) ||
		(len(s) >= MinQueryDigits && strings.Contains(qd, MobilePrefix+s))
}

// SplitPhoneQuery splits pasted text into phone queries, dropping those with
// fewer than MinQueryDigits digits. The length is taken before the mobile
// prefix is stripped.
func SplitPhoneQuery(text string) []string {
	var out []string
	for _, part := range querySeparator.Split(text, -1) {
		if len(digits(part)) >= MinQueryDigits {
			out = append(out, digits(part))
		}
	}
	return out
}

// SearchByPhone returns the records matching any query in text, each at most
// once, in first-match order.
func SearchByPhone(records []models.Association, text string) []models.Association {
	queries := SplitPhoneQuery(text)
	seenID := make(map[primitive.ObjectID]bool)
	seenIdx := make(map[int]bool)
	out := []models.Association{}
	for _, q := range queries {
		for i, a := range records {
			if seenIdx[i] || (!a.ID.IsZero() && seenID[a.ID]) || !PhoneMatches(a.Phone, q) {
				continue
			}
			seenIdx[i] = true
			seenID[a.ID] = true
			out = append(out, a)
		}
	}
	return out
}
