package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mlane/campaignlens/internal/domain"
	"github.com/mlane/campaignlens/internal/spreadsheet"
	"github.com/mlane/campaignlens/internal/storage"
)

var (
	// ErrImportNotFound covers both a missing import and one owned by
	// somebody else; callers cannot tell the two apart.
	ErrImportNotFound = errors.New("import not found")
	// ErrImportAlreadyProcessed is returned when confirming an import that
	// already reached a terminal state. Re-confirming would double-apply
	// every accumulation effect.
	ErrImportAlreadyProcessed = errors.New("import already processed")
	// ErrMappingsRequired is returned when a confirm request carries no
	// usable column mappings.
	ErrMappingsRequired = errors.New("column mappings are required")
	// ErrNoData is returned when an import record has no rows to process.
	ErrNoData = errors.New("no data to import")
)

const previewRowCount = 5

// Service runs the ingestion pipeline: parse on upload, then validate and
// reconcile on mapping confirmation.
type Service struct {
	store     storage.Storage
	parser    *spreadsheet.Parser
	detector  *spreadsheet.Detector
	validator *spreadsheet.Validator
}

// NewService creates an ingestion service on top of the storage collaborator.
func NewService(store storage.Storage) *Service {
	return &Service{
		store:     store,
		parser:    spreadsheet.NewParser(),
		detector:  spreadsheet.NewDetector(),
		validator: spreadsheet.NewValidator(),
	}
}

// UploadResult is returned after a file is parsed and column detection ran.
type UploadResult struct {
	ImportID          uuid.UUID              `json:"importId"`
	Status            domain.ImportStatus    `json:"status"`
	Columns           []string               `json:"columns"`
	PreviewRows       []map[string]any       `json:"previewRows"`
	SuggestedMappings []domain.ColumnMapping `json:"suggestedMappings"`
}

// ConfirmResult is returned after validation and reconciliation.
type ConfirmResult struct {
	Status    domain.ImportStatus      `json:"status"`
	ImportID  uuid.UUID                `json:"importId"`
	ValidRows int                      `json:"validRows"`
	ErrorRows int                      `json:"errorRows"`
	Errors    []domain.ValidationError `json:"errors"`
}

// Upload parses the file, suggests column mappings, and creates an import
// record waiting on a confirmed mapping. Nothing is persisted when parsing
// fails.
func (s *Service) Upload(ctx context.Context, user domain.User, filename string, size int64, payload []byte) (*UploadResult, error) {
	log.Printf("[Upload] Processing file: %s (%d bytes)", filename, size)

	table, err := s.parser.Parse(filename, payload)
	if err != nil {
		return nil, err
	}
	log.Printf("[Upload] Parsed %d rows with %d columns", table.RowCount, len(table.Headers))

	suggested := s.detector.DetectMappings(table.Headers)
	log.Printf("[Upload] Detected %d column mappings", len(suggested))

	preview := table.Rows
	if len(preview) > previewRowCount {
		preview = preview[:previewRowCount]
	}

	record, err := s.store.CreateSpreadsheetImport(ctx, domain.NewSpreadsheetImport(user.ID, filename, size, table.Rows, preview))
	if err != nil {
		return nil, fmt.Errorf("failed to create import record: %w", err)
	}
	log.Printf("[Upload] Created import record %s", record.ID)

	return &UploadResult{
		ImportID:          record.ID,
		Status:            domain.ImportStatusMappingRequired,
		Columns:           table.Headers,
		PreviewRows:       preview,
		SuggestedMappings: suggested,
	}, nil
}

// Confirm validates the import's rows against the confirmed mappings and
// reconciles the valid records into campaigns, events, and metric facts. An
// import can only be confirmed once.
func (s *Service) Confirm(ctx context.Context, user domain.User, importID uuid.UUID, mappings []domain.ColumnMapping) (*ConfirmResult, error) {
	if len(mappings) == 0 {
		return nil, ErrMappingsRequired
	}
	for _, mapping := range mappings {
		if !mapping.TargetField.Valid() {
			return nil, fmt.Errorf("%w: unknown target field %q", ErrMappingsRequired, mapping.TargetField)
		}
	}

	record, err := s.store.GetSpreadsheetImport(ctx, importID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrImportNotFound
		}
		return nil, fmt.Errorf("failed to load import: %w", err)
	}
	if record.UserID != user.ID {
		return nil, ErrImportNotFound
	}
	if record.Status.Terminal() {
		return nil, ErrImportAlreadyProcessed
	}

	rows := record.Rows
	if len(rows) == 0 {
		rows = record.PreviewData
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	log.Printf("[Confirm] Starting validation with %d mappings", len(mappings))
	result := s.validator.Validate(rows, mappings)
	log.Printf("[Confirm] Validation complete: %d valid, %d errors", result.ValidCount, result.ErrorCount)

	status := domain.ImportStatusCompleted
	var summary *string
	if result.ErrorCount > 0 {
		status = domain.ImportStatusFailed
		text := fmt.Sprintf("%d rows had validation errors", result.ErrorCount)
		summary = &text
	}

	now := time.Now()
	if _, err := s.store.UpdateSpreadsheetImport(ctx, importID, domain.SpreadsheetImportUpdate{
		Status:           &status,
		ColumnMappings:   mappings,
		ValidRowCount:    &result.ValidCount,
		ValidationErrors: result.Errors,
		ErrorSummary:     summary,
		ProcessedAt:      &now,
	}); err != nil {
		return nil, fmt.Errorf("failed to update import record: %w", err)
	}

	if result.ValidCount > 0 {
		log.Printf("[Confirm] Reconciling %d validated rows", result.ValidCount)
		s.reconcile(ctx, user, record, result.Valid)
	}

	return &ConfirmResult{
		Status:    status,
		ImportID:  importID,
		ValidRows: result.ValidCount,
		ErrorRows: result.ErrorCount,
		Errors:    result.Errors,
	}, nil
}

// reconcile creates or reuses the campaigns and events referenced by the
// batch, then accumulates metrics. Failures on one entity are logged and never
// abort the rest of the batch.
func (s *Service) reconcile(ctx context.Context, user domain.User, record domain.SpreadsheetImport, validRows []domain.MarketingDataRow) {
	campaignIDs := s.reconcileCampaigns(ctx, user, record, validRows)
	s.reconcileEvents(ctx, user, record, validRows)
	s.recordMetrics(ctx, validRows, campaignIDs)
}

// reconcileCampaigns upserts one campaign per distinct (name, channel) pair in
// the batch. The returned map is keyed "name|utmSource" so the metrics pass
// can resolve rows directly; two UTM sources that collapse onto the same
// channel share one campaign.
func (s *Service) reconcileCampaigns(ctx context.Context, user domain.User, record domain.SpreadsheetImport, validRows []domain.MarketingDataRow) map[string]uuid.UUID {
	campaignIDs := make(map[string]uuid.UUID)

	for _, row := range validRows {
		if row.CampaignName == nil {
			continue
		}
		name := *row.CampaignName
		utmSource := "other"
		if row.UTMSource != nil {
			utmSource = *row.UTMSource
		}

		key := name + "|" + utmSource
		if _, done := campaignIDs[key]; done {
			continue
		}

		channel := domain.ChannelFromUTMSource(utmSource)
		campaign := domain.NewCampaign(user.ID, name, channel, map[string]any{
			"source":    "spreadsheet_import",
			"importId":  record.ID.String(),
			"utmSource": utmSource,
		})

		stored, err := s.store.UpsertCampaign(ctx, campaign)
		if err != nil {
			log.Printf("[Confirm] Error upserting campaign %s (%s): %v", name, channel, err)
			continue
		}
		if stored.ID == campaign.ID {
			log.Printf("[Confirm] Created campaign: %s (channel: %s, ID: %s)", name, channel, stored.ID)
		}
		campaignIDs[key] = stored.ID
	}

	return campaignIDs
}

// reconcileEvents upserts one event per distinct event name. The start date
// comes from the first row that referenced the name.
func (s *Service) reconcileEvents(ctx context.Context, user domain.User, record domain.SpreadsheetImport, validRows []domain.MarketingDataRow) {
	seen := make(map[string]bool)

	for _, row := range validRows {
		if row.EventName == nil || seen[*row.EventName] {
			continue
		}
		name := *row.EventName
		seen[name] = true

		startDate := time.Now()
		if row.EventDate != nil {
			startDate = *row.EventDate
		} else if row.RegistrationDate != nil {
			startDate = *row.RegistrationDate
		}

		event := domain.NewImportedEvent(user.ID, name, startDate, record.Filename)
		stored, err := s.store.UpsertEvent(ctx, event)
		if err != nil {
			log.Printf("[Confirm] Error upserting event %s: %v", name, err)
			continue
		}
		if stored.ID == event.ID {
			log.Printf("[Confirm] Created event: %s (ID: %s)", name, stored.ID)
		}
	}
}

// recordMetrics accumulates each row's numbers into its campaign's running
// totals and appends one metric fact per carried metric type. Conversions fold
// into the registrations bucket; attendee counts are recorded under
// registrations as well, mirroring how the dashboard consumes them.
func (s *Service) recordMetrics(ctx context.Context, validRows []domain.MarketingDataRow, campaignIDs map[string]uuid.UUID) {
	for _, row := range validRows {
		if row.CampaignName == nil || !row.HasMetrics() {
			continue
		}

		utmSource := "other"
		if row.UTMSource != nil {
			utmSource = *row.UTMSource
		}
		campaignID, ok := campaignIDs[*row.CampaignName+"|"+utmSource]
		if !ok {
			continue
		}

		registrations := intValue(row.Registrations)
		if registrations == 0 {
			registrations = intValue(row.Conversions)
		}

		delta := domain.CampaignTotals{
			Impressions:   intValue(row.Impressions),
			Clicks:        intValue(row.Clicks),
			Registrations: registrations,
			Attendees:     intValue(row.Attendees),
			Spend:         floatValue(row.Cost),
		}
		if !delta.IsZero() {
			if err := s.store.AddCampaignTotals(ctx, campaignID, delta); err != nil {
				log.Printf("[Confirm] Error accumulating totals for campaign %s: %v", campaignID, err)
				continue
			}
		}

		metricDate := time.Now()
		if row.RegistrationDate != nil {
			metricDate = *row.RegistrationDate
		}

		if delta.Impressions > 0 {
			s.appendMetric(ctx, campaignID, domain.MetricTypeImpressions, float64(delta.Impressions), metricDate)
		}
		if delta.Clicks > 0 {
			s.appendMetric(ctx, campaignID, domain.MetricTypeClicks, float64(delta.Clicks), metricDate)
		}
		if delta.Registrations > 0 {
			s.appendMetric(ctx, campaignID, domain.MetricTypeRegistrations, float64(delta.Registrations), metricDate)
		}
		if delta.Attendees > 0 {
			// Attendee counts land in the registrations bucket too.
			s.appendMetric(ctx, campaignID, domain.MetricTypeRegistrations, float64(delta.Attendees), metricDate)
		}
	}
}

func (s *Service) appendMetric(ctx context.Context, campaignID uuid.UUID, metricType domain.MetricType, value float64, date time.Time) {
	if _, err := s.store.CreateCampaignMetric(ctx, domain.NewCampaignMetric(campaignID, metricType, value, date)); err != nil {
		log.Printf("[Confirm] Error creating %s metric for campaign %s: %v", metricType, campaignID, err)
	}
}

// Imports lists a user's import records, newest first.
func (s *Service) Imports(ctx context.Context, user domain.User) ([]domain.SpreadsheetImport, error) {
	return s.store.GetSpreadsheetImports(ctx, user.ID)
}

// Import loads one import record, enforcing ownership.
func (s *Service) Import(ctx context.Context, user domain.User, importID uuid.UUID) (domain.SpreadsheetImport, error) {
	record, err := s.store.GetSpreadsheetImport(ctx, importID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.SpreadsheetImport{}, ErrImportNotFound
		}
		return domain.SpreadsheetImport{}, err
	}
	if record.UserID != user.ID {
		return domain.SpreadsheetImport{}, ErrImportNotFound
	}
	return record, nil
}

// DeleteImport removes one import record, enforcing ownership. Campaigns and
// metrics created from the import are left alone.
func (s *Service) DeleteImport(ctx context.Context, user domain.User, importID uuid.UUID) error {
	if _, err := s.Import(ctx, user, importID); err != nil {
		return err
	}
	return s.store.DeleteSpreadsheetImport(ctx, importID)
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func floatValue(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
