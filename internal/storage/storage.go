package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mlane/campaignlens/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the persistence collaborator of the ingestion pipeline. All
// operations are single-record; the pipeline holds no cross-record
// transactional expectations beyond what individual methods guarantee.
//
// UpsertCampaign and UpsertEvent are conditional inserts keyed on the entity's
// identity: (user, name, channel) for campaigns, (user, name) for events.
// When the identity already exists the stored record is returned unchanged,
// so concurrent imports can never create duplicate entities.
type Storage interface {
	GetCampaigns(ctx context.Context, userID uuid.UUID) ([]domain.Campaign, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error)
	UpsertCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	// AddCampaignTotals atomically accumulates the delta into the campaign's
	// running counters.
	AddCampaignTotals(ctx context.Context, id uuid.UUID, delta domain.CampaignTotals) error

	GetEvents(ctx context.Context, userID uuid.UUID) ([]domain.Event, error)
	UpsertEvent(ctx context.Context, event domain.Event) (domain.Event, error)

	CreateCampaignMetric(ctx context.Context, metric domain.CampaignMetric) (domain.CampaignMetric, error)
	GetCampaignMetrics(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignMetric, error)

	GetSpreadsheetImports(ctx context.Context, userID uuid.UUID) ([]domain.SpreadsheetImport, error)
	GetSpreadsheetImport(ctx context.Context, id uuid.UUID) (domain.SpreadsheetImport, error)
	CreateSpreadsheetImport(ctx context.Context, record domain.SpreadsheetImport) (domain.SpreadsheetImport, error)
	UpdateSpreadsheetImport(ctx context.Context, id uuid.UUID, update domain.SpreadsheetImportUpdate) (domain.SpreadsheetImport, error)
	DeleteSpreadsheetImport(ctx context.Context, id uuid.UUID) error

	Close()
}
