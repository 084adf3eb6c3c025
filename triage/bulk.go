package triage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidStatus        = errors.New("invalid association status")
	ErrResponseRateRequired = errors.New("response rate is required for status response_rate")
	ErrRateOutOfRange       = errors.New("response rate must be between 0 and 100")
	ErrEmptyCriteria        = errors.New("delete criteria selects nothing")
)

// ApplyStatus sets status on a. Only response_rate keeps a rate, and it
// must be given explicitly.
func ApplyStatus(a models.Association, status models.AssociationStatus, rate *int, now time.Time) (models.Association, error) {
	if !status.Valid() {
		return a, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if status == models.AssocResponseRate {
		if rate == nil {
			return a, ErrResponseRateRequired
		}
		if *rate < 0 || *rate > 100 {
			return a, fmt.Errorf("%w: %d", ErrRateOutOfRange, *rate)
		}
		r := *rate
		a.ResponseRate = &r
	} else {
		a.ResponseRate = nil
	}
	a.Status = status
	a.UpdatedAt = now
	return a, nil
}

// MoveTo applies one status (and rate) uniformly to the records whose id is
// in ids. The whole move is rejected before any record changes when the
// status or rate is invalid.
func MoveTo(records []models.Association, ids []primitive.ObjectID, status models.AssociationStatus, rate *int, now time.Time) ([]models.Association, error) {
	if _, err := ApplyStatus(models.Association{}, status, rate, now); err != nil {
		return nil, err
	}
	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var moved []models.Association
	for _, a := range records {
		if !want[a.ID] {
			continue
		}
		a, _ = ApplyStatus(a, status, rate, now)
		moved = append(moved, a)
	}
	return moved, nil
}

// Casers are not safe for concurrent use.
func foldCase(s string) string { return cases.Fold().String(s) }

// DedupKey is the case-insensitive trimmed (name, phone, email) triple.
func DedupKey(a models.Association) string {
	k := func(s string) string { return foldCase(norm.NFC.String(strings.TrimSpace(s))) }
	return k(a.Name) + "|" + k(a.Phone) + "|" + k(a.Email)
}

// Dedup keeps the first record of every key.
func Dedup(records []models.Association) (unique, removed []models.Association) {
	seen := make(map[string]bool, len(records))
	for _, a := range records {
		key := DedupKey(a)
		if seen[key] {
			removed = append(removed, a)
			continue
		}
		seen[key] = true
		unique = append(unique, a)
	}
	return unique, removed
}

// Filter narrows the list view. Empty fields match everything.
type Filter struct {
	Status      models.AssociationStatus `json:"status"`
	Stage       models.ProfileAction     `json:"stage"`
	Region      string                   `json:"region"`
	SubCategory string                   `json:"subCategory"`
	Search      string                   `json:"search"`
}

func (f Filter) Match(a models.Association) bool {
	if f.Status != "" && f.Status != "all" && a.Status != f.Status {
		return false
	}
	if f.Stage != "" && a.Stage != f.Stage {
		return false
	}
	if r := strings.TrimSpace(f.Region); r != "" && strings.TrimSpace(a.Region) != r {
		return false
	}
	if f.SubCategory != "" && a.SubCategory != f.SubCategory {
		return false
	}
	return matchesSearch(a, f.Search)
}

func matchesSearch(a models.Association, term string) bool {
	term = foldCase(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, field := range []string{a.Name, a.City, strings.TrimSpace(a.Region)} {
		if strings.Contains(foldCase(field), term) {
			return true
		}
	}
	return false
}

func ApplyFilter(records []models.Association, f Filter) []models.Association {
	out := []models.Association{}
	for _, a := range records {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// DeleteMode names how a bulk delete picks its records.
type DeleteMode string

const (
	DeleteAll      DeleteMode = "all"
	DeleteCategory DeleteMode = "category"
	DeleteCity     DeleteMode = "city"
	DeleteSearch   DeleteMode = "search"
	DeleteSelected DeleteMode = "selected"
)

type DeleteCriteria struct {
	Mode     DeleteMode           `json:"mode"`
	Category string               `json:"category,omitempty"`
	City     string               `json:"city,omitempty"`
	Search   string               `json:"search,omitempty"`
	IDs      []primitive.ObjectID `json:"ids,omitempty"`
}

// SelectForDeletion resolves criteria to record ids. A mode without its
// argument is an error rather than an empty or total selection.
func SelectForDeletion(records []models.Association, c DeleteCriteria) ([]primitive.ObjectID, error) {
	var pick func(models.Association) bool
	switch c.Mode {
	case DeleteAll:
		pick = func(models.Association) bool { return true }
	case DeleteCategory:
		if c.Category == "" {
			return nil, fmt.Errorf("%w: category missing", ErrEmptyCriteria)
		}
		pick = func(a models.Association) bool { return a.MainCategory == c.Category }
	case DeleteCity:
		if c.City == "" {
			return nil, fmt.Errorf("%w: city missing", ErrEmptyCriteria)
		}
		pick = func(a models.Association) bool { return a.City == c.City }
	case DeleteSearch:
		if strings.TrimSpace(c.Search) == "" {
			return nil, fmt.Errorf("%w: search term missing", ErrEmptyCriteria)
		}
		pick = func(a models.Association) bool { return matchesSearch(a, c.Search) }
	case DeleteSelected:
		if len(c.IDs) == 0 {
			return nil, fmt.Errorf("%w: no ids selected", ErrEmptyCriteria)
		}
		return c.IDs, nil
	default:
		return nil, fmt.Errorf("unknown delete mode %q", c.Mode)
	}

	var ids []primitive.ObjectID
	for _, a := range records {
		if pick(a) {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func ComputeStats(records []models.Association) models.AssociationStats {
	s := models.AssociationStats{Total: len(records)}
	for _, a := range records {
		switch a.Status {
		case models.AssocNew:
			s.New++
		case models.AssocContacted:
			s.Contacted++
		case models.AssocNotContacted:
			s.NotContacted++
		case models.AssocResponseRate:
			s.ResponseRate++
		}
	}
	return s
}
