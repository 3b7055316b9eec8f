package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mlane/campaignlens/internal/domain"
)

// MemoryStorage is an in-memory Storage used for development and tests. All
// operations take the same lock, so find-or-create paths are atomic here the
// way the unique constraints make them atomic in Postgres.
type MemoryStorage struct {
	mu        sync.RWMutex
	campaigns map[uuid.UUID]domain.Campaign
	events    map[uuid.UUID]domain.Event
	metrics   map[uuid.UUID]domain.CampaignMetric
	imports   map[uuid.UUID]domain.SpreadsheetImport
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		campaigns: make(map[uuid.UUID]domain.Campaign),
		events:    make(map[uuid.UUID]domain.Event),
		metrics:   make(map[uuid.UUID]domain.CampaignMetric),
		imports:   make(map[uuid.UUID]domain.SpreadsheetImport),
	}
}

func (s *MemoryStorage) GetCampaigns(ctx context.Context, userID uuid.UUID) ([]domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaigns := make([]domain.Campaign, 0)
	for _, campaign := range s.campaigns {
		if campaign.UserID == userID {
			campaigns = append(campaigns, campaign)
		}
	}
	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.Before(campaigns[j].CreatedAt)
	})
	return campaigns, nil
}

func (s *MemoryStorage) GetCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaign, ok := s.campaigns[id]
	if !ok {
		return domain.Campaign{}, ErrNotFound
	}
	return campaign, nil
}

func (s *MemoryStorage) UpsertCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.campaigns {
		if existing.UserID == campaign.UserID && existing.Name == campaign.Name && existing.Channel == campaign.Channel {
			return existing, nil
		}
	}

	s.campaigns[campaign.ID] = campaign
	return campaign, nil
}

func (s *MemoryStorage) AddCampaignTotals(ctx context.Context, id uuid.UUID, delta domain.CampaignTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaign, ok := s.campaigns[id]
	if !ok {
		return ErrNotFound
	}

	campaign.Impressions += delta.Impressions
	campaign.Clicks += delta.Clicks
	campaign.Registrations += delta.Registrations
	campaign.Attendees += delta.Attendees
	campaign.Spend += delta.Spend
	campaign.UpdatedAt = time.Now()

	s.campaigns[id] = campaign
	return nil
}

func (s *MemoryStorage) GetEvents(ctx context.Context, userID uuid.UUID) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.Event, 0)
	for _, event := range s.events {
		if event.UserID == userID {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

func (s *MemoryStorage) UpsertEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.events {
		if existing.UserID == event.UserID && existing.Name == event.Name {
			return existing, nil
		}
	}

	s.events[event.ID] = event
	return event, nil
}

func (s *MemoryStorage) CreateCampaignMetric(ctx context.Context, metric domain.CampaignMetric) (domain.CampaignMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics[metric.ID] = metric
	return metric, nil
}

func (s *MemoryStorage) GetCampaignMetrics(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := make([]domain.CampaignMetric, 0)
	for _, metric := range s.metrics {
		if metric.CampaignID == campaignID {
			metrics = append(metrics, metric)
		}
	}
	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].CreatedAt.Before(metrics[j].CreatedAt)
	})
	return metrics, nil
}

func (s *MemoryStorage) GetSpreadsheetImports(ctx context.Context, userID uuid.UUID) ([]domain.SpreadsheetImport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	imports := make([]domain.SpreadsheetImport, 0)
	for _, record := range s.imports {
		if record.UserID == userID {
			imports = append(imports, record)
		}
	}
	sort.Slice(imports, func(i, j int) bool {
		return imports[i].CreatedAt.After(imports[j].CreatedAt)
	})
	return imports, nil
}

func (s *MemoryStorage) GetSpreadsheetImport(ctx context.Context, id uuid.UUID) (domain.SpreadsheetImport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.imports[id]
	if !ok {
		return domain.SpreadsheetImport{}, ErrNotFound
	}
	return record, nil
}

func (s *MemoryStorage) CreateSpreadsheetImport(ctx context.Context, record domain.SpreadsheetImport) (domain.SpreadsheetImport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.imports[record.ID] = record
	return record, nil
}

func (s *MemoryStorage) UpdateSpreadsheetImport(ctx context.Context, id uuid.UUID, update domain.SpreadsheetImportUpdate) (domain.SpreadsheetImport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.imports[id]
	if !ok {
		return domain.SpreadsheetImport{}, ErrNotFound
	}

	if update.Status != nil {
		record.Status = *update.Status
	}
	if update.ColumnMappings != nil {
		record.ColumnMappings = update.ColumnMappings
	}
	if update.ValidRowCount != nil {
		record.ValidRowCount = update.ValidRowCount
	}
	if update.ValidationErrors != nil {
		record.ValidationErrors = update.ValidationErrors
	}
	if update.ErrorSummary != nil {
		record.ErrorSummary = update.ErrorSummary
	}
	if update.ProcessedAt != nil {
		record.ProcessedAt = update.ProcessedAt
	}

	s.imports[id] = record
	return record, nil
}

func (s *MemoryStorage) DeleteSpreadsheetImport(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.imports[id]; !ok {
		return ErrNotFound
	}
	delete(s.imports, id)
	return nil
}

func (s *MemoryStorage) Close() {}
