package triage

import (
	"bufio"
	"strings"
	"unicode/utf8"

	"crm-project/backend/models"

	"golang.org/x/text/unicode/norm"
)

// DefaultDelimiters separate fields within one line.
const DefaultDelimiters = ",|\t"

// Parser turns free-text lines into association records.
type Parser struct {
	Tables     *Tables
	Delimiters string
}

func NewParser(t *Tables) *Parser {
	if t == nil {
		t = DefaultTables()
	}
	return &Parser{Tables: t, Delimiters: DefaultDelimiters}
}

// Tokenize splits a line on the delimiter set and drops empty fields.
func (p *Parser) Tokenize(line string) []string {
	delims := p.Delimiters
	if delims == "" {
		delims = DefaultDelimiters
	}
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(delims, r)
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(norm.NFC.String(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ParseLine classifies each token in priority order: phone, email, URL,
// city, category, status keyword, rate, then name. A record needs a name, a
// phone and a city; otherwise ok is false.
func (p *Parser) ParseLine(line string) (a models.Association, ok bool) {
	tokens := p.Tokenize(line)
	if len(tokens) < 2 {
		return models.Association{}, false
	}

	a = p.defaults()

	for _, tok := range tokens {
		if phone, isPhone := ClassifyPhone(tok); isPhone {
			a.Phone = phone
			a.Contact = phone
			continue
		}
		if IsEmail(tok) {
			a.Email = tok
			continue
		}
		switch ClassifyURL(tok, p.Tables.DonationMarkers) {
		case DonationLink:
			a.DonationLink = tok
			continue
		case Website:
			a.Website = tok
			continue
		}
		if region, isCity := p.Tables.LookupCity(tok); isCity {
			a.City = tok
			a.Region = region
			continue
		}
		if cat, isCat := p.Tables.LookupCategory(tok); isCat {
			a.SubCategory = cat
			continue
		}
		if status, isStatus := p.Tables.LookupStatus(tok); isStatus {
			a.Status = status
			continue
		}
		if IsRateToken(tok) {
			if rate, valid := ParseRate(tok); valid {
				a.ResponseRate = &rate
				a.Status = models.AssocResponseRate
			}
			continue
		}
		if a.Name == "" && utf8.RuneCountInString(tok) > 2 {
			a.Name = tok
		}
	}

	if a.Name == "" || a.Phone == "" || a.City == "" {
		return models.Association{}, false
	}
	return a, true
}

// ParseResult is the outcome of a bulk parse.
type ParseResult struct {
	Records  []models.Association `json:"records"`
	Rejected []int                `json:"rejected"` // 1-based line numbers
}

// ParseBulk parses one record per non-blank line.
func (p *Parser) ParseBulk(text string) ParseResult {
	res := ParseResult{Records: []models.Association{}}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if a, ok := p.ParseLine(line); ok {
			res.Records = append(res.Records, a)
		} else {
			res.Rejected = append(res.Rejected, n)
		}
	}
	return res
}
