package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mlane/campaignlens/internal/domain"
)

// PostgresStorage implements Storage on top of a pgx connection pool. Entity
// identity is enforced by unique constraints, (user_id, name, channel) for
// campaigns and (user_id, name) for events, which make the upserts atomic.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage wires a storage backed by pgxpool.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

const campaignColumns = `id, user_id, name, channel, status, budget, spend, impressions, clicks,
	registrations, attendees, conversion_rate, quality_score, start_date, end_date, metadata,
	created_at, updated_at`

func (s *PostgresStorage) GetCampaigns(ctx context.Context, userID uuid.UUID) ([]domain.Campaign, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []domain.Campaign{}
	for rows.Next() {
		campaign, scanErr := scanCampaign(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		campaigns = append(campaigns, campaign)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", rowsErr)
	}
	return campaigns, nil
}

func (s *PostgresStorage) GetCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error) {
	row := s.pool.QueryRow(
		ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`,
		id,
	)
	campaign, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Campaign{}, ErrNotFound
		}
		return domain.Campaign{}, err
	}
	return campaign, nil
}

func (s *PostgresStorage) UpsertCampaign(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	metadata, err := json.Marshal(campaign.Metadata)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("failed to encode campaign metadata: %w", err)
	}

	// The no-op DO UPDATE lets RETURNING yield the stored row when the
	// identity already exists; counters are never reset by an upsert.
	row := s.pool.QueryRow(
		ctx,
		`INSERT INTO campaigns (id, user_id, name, channel, status, budget, spend, impressions, clicks,
			registrations, attendees, conversion_rate, quality_score, start_date, end_date, metadata,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 ON CONFLICT (user_id, name, channel) DO UPDATE SET updated_at = now()
		 RETURNING `+campaignColumns,
		campaign.ID,
		campaign.UserID,
		campaign.Name,
		string(campaign.Channel),
		string(campaign.Status),
		campaign.Budget,
		campaign.Spend,
		campaign.Impressions,
		campaign.Clicks,
		campaign.Registrations,
		campaign.Attendees,
		campaign.ConversionRate,
		campaign.QualityScore,
		campaign.StartDate,
		campaign.EndDate,
		metadata,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)

	stored, err := scanCampaign(row)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("failed to upsert campaign: %w", err)
	}
	return stored, nil
}

func (s *PostgresStorage) AddCampaignTotals(ctx context.Context, id uuid.UUID, delta domain.CampaignTotals) error {
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE campaigns
		 SET impressions = impressions + $2,
		     clicks = clicks + $3,
		     registrations = registrations + $4,
		     attendees = attendees + $5,
		     spend = spend + $6,
		     updated_at = now()
		 WHERE id = $1`,
		id,
		delta.Impressions,
		delta.Clicks,
		delta.Registrations,
		delta.Attendees,
		delta.Spend,
	)
	if err != nil {
		return fmt.Errorf("failed to accumulate campaign totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const eventColumns = `id, user_id, name, type, status, start_date, end_date, target_registrations,
	actual_registrations, attendance_count, engagement_score, description, created_at, updated_at`

func (s *PostgresStorage) GetEvents(ctx context.Context, userID uuid.UUID) ([]domain.Event, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT `+eventColumns+` FROM events WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", rowsErr)
	}
	return events, nil
}

func (s *PostgresStorage) UpsertEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	row := s.pool.QueryRow(
		ctx,
		`INSERT INTO events (id, user_id, name, type, status, start_date, end_date, target_registrations,
			actual_registrations, attendance_count, engagement_score, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (user_id, name) DO UPDATE SET updated_at = now()
		 RETURNING `+eventColumns,
		event.ID,
		event.UserID,
		event.Name,
		string(event.Type),
		string(event.Status),
		event.StartDate,
		event.EndDate,
		event.TargetRegistrations,
		event.ActualRegistrations,
		event.AttendanceCount,
		event.EngagementScore,
		event.Description,
		event.CreatedAt,
		event.UpdatedAt,
	)

	stored, err := scanEvent(row)
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to upsert event: %w", err)
	}
	return stored, nil
}

func (s *PostgresStorage) CreateCampaignMetric(ctx context.Context, metric domain.CampaignMetric) (domain.CampaignMetric, error) {
	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO campaign_metrics (id, campaign_id, metric_type, value, date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		metric.ID,
		metric.CampaignID,
		string(metric.MetricType),
		metric.Value,
		metric.Date,
		metric.CreatedAt,
	)
	if err != nil {
		return domain.CampaignMetric{}, fmt.Errorf("failed to create campaign metric: %w", err)
	}
	return metric, nil
}

func (s *PostgresStorage) GetCampaignMetrics(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignMetric, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT id, campaign_id, metric_type, value, date, created_at
		 FROM campaign_metrics WHERE campaign_id = $1 ORDER BY created_at`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign metrics: %w", err)
	}
	defer rows.Close()

	metrics := []domain.CampaignMetric{}
	for rows.Next() {
		var (
			metric     domain.CampaignMetric
			metricType string
		)
		if scanErr := rows.Scan(
			&metric.ID,
			&metric.CampaignID,
			&metricType,
			&metric.Value,
			&metric.Date,
			&metric.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan campaign metric: %w", scanErr)
		}
		metric.MetricType = domain.MetricType(metricType)
		metrics = append(metrics, metric)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate campaign metrics: %w", rowsErr)
	}
	return metrics, nil
}

const importColumns = `id, user_id, filename, file_size, row_count, valid_row_count, status,
	column_mappings, validation_errors, error_summary, preview_data, rows, created_at, processed_at`

func (s *PostgresStorage) GetSpreadsheetImports(ctx context.Context, userID uuid.UUID) ([]domain.SpreadsheetImport, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT `+importColumns+` FROM spreadsheet_imports WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list spreadsheet imports: %w", err)
	}
	defer rows.Close()

	imports := []domain.SpreadsheetImport{}
	for rows.Next() {
		record, scanErr := scanImport(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		imports = append(imports, record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate spreadsheet imports: %w", rowsErr)
	}
	return imports, nil
}

func (s *PostgresStorage) GetSpreadsheetImport(ctx context.Context, id uuid.UUID) (domain.SpreadsheetImport, error) {
	row := s.pool.QueryRow(
		ctx,
		`SELECT `+importColumns+` FROM spreadsheet_imports WHERE id = $1`,
		id,
	)
	record, err := scanImport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SpreadsheetImport{}, ErrNotFound
		}
		return domain.SpreadsheetImport{}, err
	}
	return record, nil
}

func (s *PostgresStorage) CreateSpreadsheetImport(ctx context.Context, record domain.SpreadsheetImport) (domain.SpreadsheetImport, error) {
	mappings, err := json.Marshal(record.ColumnMappings)
	if err != nil {
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to encode column mappings: %w", err)
	}
	validationErrors, err := json.Marshal(record.ValidationErrors)
	if err != nil {
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to encode validation errors: %w", err)
	}
	preview, err := json.Marshal(record.PreviewData)
	if err != nil {
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to encode preview data: %w", err)
	}
	rowData, err := json.Marshal(record.Rows)
	if err != nil {
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to encode rows: %w", err)
	}

	_, err = s.pool.Exec(
		ctx,
		`INSERT INTO spreadsheet_imports (id, user_id, filename, file_size, row_count, valid_row_count,
			status, column_mappings, validation_errors, error_summary, preview_data, rows, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		record.ID,
		record.UserID,
		record.Filename,
		record.FileSize,
		record.RowCount,
		record.ValidRowCount,
		string(record.Status),
		mappings,
		validationErrors,
		record.ErrorSummary,
		preview,
		rowData,
		record.CreatedAt,
		record.ProcessedAt,
	)
	if err != nil {
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to create spreadsheet import: %w", err)
	}
	return record, nil
}

func (s *PostgresStorage) UpdateSpreadsheetImport(ctx context.Context, id uuid.UUID, update domain.SpreadsheetImportUpdate) (domain.SpreadsheetImport, error) {
	record, err := s.GetSpreadsheetImport(ctx, id)
	if err != nil {
		return domain.SpreadsheetImport{}, err
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

	mappings, err := json.Marshal(record.ColumnMappings)
	if err != nil {
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to encode column mappings: %w", err)
	}
	validationErrors, err := json.Marshal(record.ValidationErrors)
	if err != nil {
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to encode validation errors: %w", err)
	}

	_, err = s.pool.Exec(
		ctx,
		`UPDATE spreadsheet_imports
		 SET status = $2, column_mappings = $3, valid_row_count = $4, validation_errors = $5,
		     error_summary = $6, processed_at = $7
		 WHERE id = $1`,
		id,
		string(record.Status),
		mappings,
		record.ValidRowCount,
		validationErrors,
		record.ErrorSummary,
		record.ProcessedAt,
	)
	if err != nil {
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to update spreadsheet import: %w", err)
	}
	return record, nil
}

func (s *PostgresStorage) DeleteSpreadsheetImport(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM spreadsheet_imports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete spreadsheet import: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func scanCampaign(row pgx.Row) (domain.Campaign, error) {
	var (
		campaign domain.Campaign
		channel  string
		status   string
		endDate  pgtype.Timestamptz
		metadata []byte
	)
	if err := row.Scan(
		&campaign.ID,
		&campaign.UserID,
		&campaign.Name,
		&channel,
		&status,
		&campaign.Budget,
		&campaign.Spend,
		&campaign.Impressions,
		&campaign.Clicks,
		&campaign.Registrations,
		&campaign.Attendees,
		&campaign.ConversionRate,
		&campaign.QualityScore,
		&campaign.StartDate,
		&endDate,
		&metadata,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Campaign{}, err
		}
		return domain.Campaign{}, fmt.Errorf("failed to scan campaign: %w", err)
	}

	campaign.Channel = domain.Channel(channel)
	campaign.Status = domain.CampaignStatus(status)
	if endDate.Valid {
		value := endDate.Time
		campaign.EndDate = &value
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &campaign.Metadata); err != nil {
			return domain.Campaign{}, fmt.Errorf("failed to decode campaign metadata: %w", err)
		}
	}
	return campaign, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		event     domain.Event
		eventType string
		status    string
	)
	if err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.Name,
		&eventType,
		&status,
		&event.StartDate,
		&event.EndDate,
		&event.TargetRegistrations,
		&event.ActualRegistrations,
		&event.AttendanceCount,
		&event.EngagementScore,
		&event.Description,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, err
		}
		return domain.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}

	event.Type = domain.EventType(eventType)
	event.Status = domain.EventStatus(status)
	return event, nil
}

func scanImport(row pgx.Row) (domain.SpreadsheetImport, error) {
	var (
		record           domain.SpreadsheetImport
		status           string
		mappings         []byte
		validationErrors []byte
		preview          []byte
		rowData          []byte
		processedAt      pgtype.Timestamptz
	)
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Filename,
		&record.FileSize,
		&record.RowCount,
		&record.ValidRowCount,
		&status,
		&mappings,
		&validationErrors,
		&record.ErrorSummary,
		&preview,
		&rowData,
		&record.CreatedAt,
		&processedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SpreadsheetImport{}, err
		}
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to scan spreadsheet import: %w", err)
	}

	record.Status = domain.ImportStatus(status)
	if processedAt.Valid {
		value := processedAt.Time
		record.ProcessedAt = &value
	}
	if len(mappings) > 0 {
		if err := json.Unmarshal(mappings, &record.ColumnMappings); err != nil {
			return domain.SpreadsheetImport{}, fmt.Errorf("failed to decode column mappings: %w", err)
		}
	}
	if len(validationErrors) > 0 {
		if err := json.Unmarshal(validationErrors, &record.ValidationErrors); err != nil {
			return domain.SpreadsheetImport{}, fmt.Errorf("failed to decode validation errors: %w", err)
		}
	}
	if len(preview) > 0 {
		if err := json.Unmarshal(preview, &record.PreviewData); err != nil {
			return domain.SpreadsheetImport{}, fmt.Errorf("failed to decode preview data: %w", err)
		}
	}
	if len(rowData) > 0 {
		if err := json.Unmarshal(rowData, &record.Rows); err != nil {
			return domain.SpreadsheetImport{}, fmt.Errorf("failed to decode rows: %w", err)
		}
	}
	return record, nil
}
