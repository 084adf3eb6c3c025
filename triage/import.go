package triage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"crm-project/backend/models"

	"golang.org/x/text/unicode/norm"
)

var ErrMissingColumns = errors.New("import header must include name, phone and city")

// header aliases, English and Arabic
var columnAliases = map[string]string{
	"name": "name", "الاسم": "name", "اسم الجمعية": "name",
	"phone": "phone", "الجوال": "phone", "الهاتف": "phone",
	"city": "city", "المدينة": "city",
	"region": "region", "المنطقة": "region",
	"main_category": "main_category", "التصنيف الرئيسي": "main_category",
	"sub_category": "sub_category", "التصنيف الفرعي": "sub_category",
	"email": "email", "البريد الإلكتروني": "email",
	"website": "website", "الموقع": "website",
	"donation_link": "donation_link", "رابط التبرع": "donation_link",
	"target_audience": "target_audience", "الفئة المستهدفة": "target_audience",
	"contact": "contact", "جهة الاتصال": "contact",
}

// ImportResult mirrors ParseResult for file imports.
type ImportResult struct {
	Records  []models.Association `json:"records"`
	Rejected []int                `json:"rejected"` // 1-based data row numbers
}

// ImportCSV reads a header row and one association per following row. Rows
// without name, phone or city are rejected. Unset fields take the table
// defaults and the region is looked up from the city when absent.
func (p *Parser) ImportCSV(r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to read import header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if key, ok := columnAliases[strings.ToLower(strings.TrimSpace(norm.NFC.String(h)))]; ok {
			cols[key] = i
		}
	}
	for _, required := range []string{"name", "phone", "city"} {
		if _, ok := cols[required]; !ok {
			return ImportResult{}, ErrMissingColumns
		}
	}

	res := ImportResult{Records: []models.Association{}}
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return res, fmt.Errorf("failed to read import row %d: %w", row, err)
		}
		get := func(key string) string {
			i, ok := cols[key]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(norm.NFC.String(rec[i]))
		}

		a := p.defaults()
		a.Name = get("name")
		a.Phone = phoneSeparators.Replace(get("phone"))
		a.City = get("city")
		if a.Name == "" || a.Phone == "" || a.City == "" {
			res.Rejected = append(res.Rejected, row)
			continue
		}
		a.Contact = a.Phone
		a.Region = p.Tables.RegionOf(a.City)
		setIf(&a.Region, get("region"))
		setIf(&a.MainCategory, get("main_category"))
		setIf(&a.SubCategory, get("sub_category"))
		setIf(&a.TargetAudience, get("target_audience"))
		setIf(&a.Contact, get("contact"))
		a.Email = get("email")
		a.Website = get("website")
		a.DonationLink = get("donation_link")
		res.Records = append(res.Records, a)
	}
	return res, nil
}

func (p *Parser) defaults() models.Association {
	d := p.Tables.Defaults
	return models.Association{
		MainCategory:   d.MainCategory,
		SubCategory:    d.SubCategory,
		TargetAudience: d.TargetAudience,
		ResponseStatus: d.ResponseStatus,
		Region:         d.Region,
		Status:         d.Status,
		TrustScore:     d.TrustScore,
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Complete fills the unset fields of a hand-entered record from the table
// defaults and derives the region from the city when none was given.
func (p *Parser) Complete(a models.Association) models.Association {
	out := p.defaults()
	out.ID = a.ID
	out.Name = strings.TrimSpace(a.Name)
	out.Phone = phoneSeparators.Replace(strings.TrimSpace(a.Phone))
	out.City = strings.TrimSpace(a.City)
	out.Email = strings.TrimSpace(a.Email)
	out.Website = strings.TrimSpace(a.Website)
	out.DonationLink = strings.TrimSpace(a.DonationLink)
	out.Contact = strings.TrimSpace(a.Contact)
	setIf(&out.MainCategory, strings.TrimSpace(a.MainCategory))
	setIf(&out.SubCategory, strings.TrimSpace(a.SubCategory))
	setIf(&out.TargetAudience, strings.TrimSpace(a.TargetAudience))
	setIf(&out.ResponseStatus, strings.TrimSpace(a.ResponseStatus))
	if r := strings.TrimSpace(a.Region); r != "" {
		out.Region = r
	} else {
		out.Region = p.Tables.RegionOf(out.City)
	}
	if a.Status != "" {
		out.Status = a.Status
	}
	out.ResponseRate = a.ResponseRate
	if a.TrustScore != 0 {
		out.TrustScore = a.TrustScore
	}
	if out.Contact == "" {
		out.Contact = out.Phone
	}
	return out
}

var exportHeader = []string{
	"name", "phone", "city", "region", "main_category", "sub_category",
	"email", "website", "donation_link", "target_audience", "contact",
	"status", "response_rate",
}

// ExportCSV writes records with a header that ImportCSV reads back. A UTF-8
// BOM is written first so spreadsheet tools detect the Arabic text.
func ExportCSV(w io.Writer, records []models.Association) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, a := range records {
		rate := ""
		if a.ResponseRate != nil {
			rate = strconv.Itoa(*a.ResponseRate)
		}
		row := []string{
			a.Name, a.Phone, a.City, a.Region, a.MainCategory, a.SubCategory,
			a.Email, a.Website, a.DonationLink, a.TargetAudience, a.Contact,
			string(a.Status), rate,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
