package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"crm-project/backend/logging"
	"crm-project/backend/models"
	"crm-project/backend/triage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuickAddResult reports a bulk paste: the stored records and the 1-based
// line numbers that could not be parsed.
type QuickAddResult struct {
	Added    []models.Association `json:"added"`
	Rejected []int                `json:"rejected"`
}

type AssociationService struct {
	store  AssociationStore
	parser *triage.Parser
	now    func() time.Time
}

func NewAssociationService(store AssociationStore, parser *triage.Parser) *AssociationService {
	if parser == nil {
		parser = triage.NewParser(nil)
	}
	return &AssociationService{store: store, parser: parser, now: time.Now}
}

func (s *AssociationService) List(ctx context.Context, f triage.Filter) ([]models.Association, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return triage.ApplyFilter(records, f), nil
}

func (s *AssociationService) Create(ctx context.Context, a models.Association) (models.Association, error) {
	a = s.parser.Complete(a)
	if a.Name == "" || a.City == "" {
		return models.Association{}, fmt.Errorf("%w: name and city are required", ErrValidation)
	}
	if _, ok := triage.ClassifyPhone(a.Phone); !ok {
		return models.Association{}, fmt.Errorf("%w: invalid phone %q", ErrValidation, a.Phone)
	}
	now := s.now()
	a, err := triage.ApplyStatus(a, a.Status, a.ResponseRate, now)
	if err != nil {
		return models.Association{}, err
	}
	a.CreatedAt = now

	stored, err := s.store.InsertMany(ctx, []models.Association{a})
	if err != nil {
		return models.Association{}, err
	}
	return stored[0], nil
}

// QuickAdd parses pasted lines and stores the accepted ones. Records the
// parser left at the default status are moved to target; a status or rate
// found in the line itself wins.
func (s *AssociationService) QuickAdd(ctx context.Context, text string, target models.AssociationStatus, rate *int) (QuickAddResult, error) {
	if target == "" {
		target = models.AssocNew
	}
	if _, err := triage.ApplyStatus(models.Association{}, target, rate, s.now()); err != nil {
		return QuickAddResult{}, err
	}

	parsed := s.parser.ParseBulk(text)
	return s.persist(ctx, parsed.Records, parsed.Rejected, target, rate)
}

// Import reads a CSV export and stores every valid row.
func (s *AssociationService) Import(ctx context.Context, r io.Reader) (QuickAddResult, error) {
	res, err := s.parser.ImportCSV(r)
	if err != nil {
		return QuickAddResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.persist(ctx, res.Records, res.Rejected, "", nil)
}

func (s *AssociationService) persist(ctx context.Context, records []models.Association, rejected []int, target models.AssociationStatus, rate *int) (QuickAddResult, error) {
	now := s.now()
	for i := range records {
		if target != "" && records[i].Status == models.AssocNew {
			records[i], _ = triage.ApplyStatus(records[i], target, rate, now)
		}
		records[i].CreatedAt = now
		records[i].UpdatedAt = now
	}
	added, err := s.store.InsertMany(ctx, records)
	if err != nil {
		return QuickAddResult{}, err
	}
	if added == nil {
		added = []models.Association{}
	}
	if rejected == nil {
		rejected = []int{}
	}
	logging.Logger.Infof("Event ID: ASSOCIATIONS_ADDED, Description: %d associations added, %d lines rejected", len(added), len(rejected))
	return QuickAddResult{Added: added, Rejected: rejected}, nil
}

func (s *AssociationService) SearchPhones(ctx context.Context, text string) ([]models.Association, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return triage.SearchByPhone(records, text), nil
}

// Move validates the status and rate before any record changes, then moves
// every id in one store call.
func (s *AssociationService) Move(ctx context.Context, ids []primitive.ObjectID, status models.AssociationStatus, rate *int) (int64, error) {
	now := s.now()
	checked, err := triage.ApplyStatus(models.Association{}, status, rate, now)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.store.SetStatus(ctx, ids, status, checked.ResponseRate, now)
	if err != nil {
		return 0, err
	}
	logging.Logger.Infof("Event ID: ASSOCIATIONS_MOVED, Description: %d associations moved to %s", n, status)
	return n, nil
}

func (s *AssociationService) Delete(ctx context.Context, c triage.DeleteCriteria) (int64, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	ids, err := triage.SelectForDeletion(records, c)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	n, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	logging.Logger.Infof("Event ID: ASSOCIATIONS_DELETED, Description: %d associations deleted (mode %s)", n, c.Mode)
	return n, nil
}

// RemoveDuplicates keeps the newest record of every name/phone/email group,
// the first one the store lists.
func (s *AssociationService) RemoveDuplicates(ctx context.Context) (int64, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	_, removed := triage.Dedup(records)
	ids := make([]primitive.ObjectID, 0, len(removed))
	for _, a := range removed {
		ids = append(ids, a.ID)
	}
	return s.store.DeleteMany(ctx, ids)
}

func (s *AssociationService) Stats(ctx context.Context) (models.AssociationStats, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return models.AssociationStats{}, err
	}
	return triage.ComputeStats(records), nil
}
