package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mlane/campaignlens/internal/domain"
)

func TestUpsertCampaignReusesIdentity(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	userID := uuid.New()

	first, err := store.UpsertCampaign(ctx, domain.NewCampaign(userID, "Launch", domain.ChannelGoogle, nil))
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second, err := store.UpsertCampaign(ctx, domain.NewCampaign(userID, "Launch", domain.ChannelGoogle, nil))
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same (user, name, channel) produced two campaigns: %s vs %s", first.ID, second.ID)
	}

	// Same name on a different channel is a different campaign.
	other, err := store.UpsertCampaign(ctx, domain.NewCampaign(userID, "Launch", domain.ChannelLinkedIn, nil))
	if err != nil {
		t.Fatalf("third upsert failed: %v", err)
	}
	if other.ID == first.ID {
		t.Error("different channel should not reuse the campaign")
	}

	// Same identity under a different user is isolated.
	foreign, err := store.UpsertCampaign(ctx, domain.NewCampaign(uuid.New(), "Launch", domain.ChannelGoogle, nil))
	if err != nil {
		t.Fatalf("foreign upsert failed: %v", err)
	}
	if foreign.ID == first.ID {
		t.Error("campaigns must be scoped per user")
	}
}

func TestAddCampaignTotals(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	campaign, err := store.UpsertCampaign(ctx, domain.NewCampaign(uuid.New(), "Launch", domain.ChannelGoogle, nil))
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	delta := domain.CampaignTotals{Impressions: 1000, Clicks: 50, Registrations: 5, Spend: 19.99}
	if err := store.AddCampaignTotals(ctx, campaign.ID, delta); err != nil {
		t.Fatalf("first accumulation failed: %v", err)
	}
	if err := store.AddCampaignTotals(ctx, campaign.ID, delta); err != nil {
		t.Fatalf("second accumulation failed: %v", err)
	}

	got, err := store.GetCampaign(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Impressions != 2000 || got.Clicks != 100 || got.Registrations != 10 {
		t.Errorf("totals did not accumulate: %+v", got)
	}
	if got.Spend != 39.98 {
		t.Errorf("spend = %v, want 39.98", got.Spend)
	}

	if err := store.AddCampaignTotals(ctx, uuid.New(), delta); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown campaign, got %v", err)
	}
}

func TestUpsertEventReusesName(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	userID := uuid.New()

	first, err := store.UpsertEvent(ctx, domain.NewImportedEvent(userID, "Product Demo", time.Now(), "a.csv"))
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	second, err := store.UpsertEvent(ctx, domain.NewImportedEvent(userID, "Product Demo", time.Now(), "b.csv"))
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same event name produced two events")
	}
}

func TestSpreadsheetImportLifecycle(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	userID := uuid.New()

	rows := []map[string]any{{"clicks": float64(1)}}
	record, err := store.CreateSpreadsheetImport(ctx, domain.NewSpreadsheetImport(userID, "report.csv", 42, rows, rows))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if record.Status != domain.ImportStatusMappingRequired {
		t.Errorf("new import status = %q", record.Status)
	}

	status := domain.ImportStatusCompleted
	validRows := 1
	now := time.Now()
	updated, err := store.UpdateSpreadsheetImport(ctx, record.ID, domain.SpreadsheetImportUpdate{
		Status:        &status,
		ValidRowCount: &validRows,
		ProcessedAt:   &now,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != domain.ImportStatusCompleted || updated.ValidRowCount == nil || *updated.ValidRowCount != 1 {
		t.Errorf("partial update lost fields: %+v", updated)
	}
	if updated.Filename != "report.csv" {
		t.Errorf("untouched field changed: %q", updated.Filename)
	}

	imports, err := store.GetSpreadsheetImports(ctx, userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(imports))
	}

	if err := store.DeleteSpreadsheetImport(ctx, record.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetSpreadsheetImport(ctx, record.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteSpreadsheetImport(ctx, record.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete should report ErrNotFound, got %v", err)
	}
}
