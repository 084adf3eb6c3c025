package memstore

import (
	"context"
	"testing"
	"time"

	"crm-project/backend/models"
)

func TestAssociationsListNewestFirst(t *testing.T) {
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	store := &Associations{Items: []models.Association{
		{Name: "old", CreatedAt: day},
		{Name: "newest", CreatedAt: day.Add(48 * time.Hour)},
		{Name: "mid-1", CreatedAt: day.Add(24 * time.Hour)},
		{Name: "mid-2", CreatedAt: day.Add(24 * time.Hour)},
	}}

	got, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"newest", "mid-1", "mid-2", "old"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("List()[%d] = %q, want %q", i, got[i].Name, name)
		}
	}
	if store.Items[0].Name != "old" {
		t.Error("List() reordered the stored items")
	}
}
