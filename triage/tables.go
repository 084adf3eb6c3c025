package triage

import (
	_ "embed"
	"fmt"
	"os"

	"crm-project/backend/models"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// Defaults are the field values of a freshly parsed record.
type Defaults struct {
	MainCategory   string                   `yaml:"main_category"`
	SubCategory    string                   `yaml:"sub_category"`
	TargetAudience string                   `yaml:"target_audience"`
	ResponseStatus string                   `yaml:"response_status"`
	Region         string                   `yaml:"region"`
	Status         models.AssociationStatus `yaml:"status"`
	TrustScore     int                      `yaml:"trust_score"`
}

// Tables is the versioned keyword configuration used by the classifiers.
type Tables struct {
	Version         int                                 `yaml:"version"`
	Defaults        Defaults                            `yaml:"defaults"`
	Cities          map[string]string                   `yaml:"cities"`
	Categories      map[string]string                   `yaml:"categories"`
	Statuses        map[string]models.AssociationStatus `yaml:"statuses"`
	DonationMarkers []string                            `yaml:"donation_markers"`
}

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() *Tables {
	t, err := ParseTables(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("triage: embedded tables: %v", err))
	}
	return t
}

// LoadTables reads tables from a YAML file.
func LoadTables(path string) (*Tables, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read triage tables: %w", err)
	}
	return ParseTables(b)
}

func ParseTables(b []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("failed to parse triage tables: %w", err)
	}
	if t.Version <= 0 {
		return nil, fmt.Errorf("triage tables: missing version")
	}
	if !t.Defaults.Status.Valid() {
		return nil, fmt.Errorf("triage tables: invalid default status %q", t.Defaults.Status)
	}
	for k, s := range t.Statuses {
		if !s.Valid() {
			return nil, fmt.Errorf("triage tables: keyword %q maps to invalid status %q", k, s)
		}
	}
	t.Cities = normalizeKeys(t.Cities)
	t.Categories = normalizeKeys(t.Categories)
	statuses := make(map[string]models.AssociationStatus, len(t.Statuses))
	for k, v := range t.Statuses {
		statuses[norm.NFC.String(k)] = v
	}
	t.Statuses = statuses
	return &t, nil
}

func normalizeKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[norm.NFC.String(k)] = v
	}
	return out
}

// LookupCity returns the region of a known city.
func (t *Tables) LookupCity(token string) (region string, ok bool) {
	region, ok = t.Cities[token]
	return
}

// LookupCategory returns the sub-category a keyword maps to.
func (t *Tables) LookupCategory(token string) (category string, ok bool) {
	category, ok = t.Categories[token]
	return
}

// LookupStatus maps a status keyword to a status.
func (t *Tables) LookupStatus(token string) (status models.AssociationStatus, ok bool) {
	status, ok = t.Statuses[token]
	return
}

// RegionOf returns the region for a city, or the default region.
func (t *Tables) RegionOf(city string) string {
	if r, ok := t.Cities[norm.NFC.String(city)]; ok {
		return r
	}
	return t.Defaults.Region
}
