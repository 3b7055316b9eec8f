package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportStatus tracks a spreadsheet import through its state machine:
// mapping_required -> (validating) -> completed | failed.
type ImportStatus string

const (
	ImportStatusMappingRequired ImportStatus = "mapping_required"
	ImportStatusValidating      ImportStatus = "validating"
	ImportStatusCompleted       ImportStatus = "completed"
	ImportStatusFailed          ImportStatus = "failed"
)

// Terminal reports whether the import can no longer be confirmed.
func (s ImportStatus) Terminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

// SpreadsheetImport is the persisted record of one upload. Rows holds the full
// parsed row set so confirmation can validate every row, not just the preview.
type SpreadsheetImport struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	Filename         string            `json:"filename"`
	FileSize         int64             `json:"file_size"`
	RowCount         int               `json:"row_count"`
	ValidRowCount    *int              `json:"valid_row_count"`
	Status           ImportStatus      `json:"status"`
	ColumnMappings   []ColumnMapping   `json:"column_mappings,omitempty"`
	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`
	ErrorSummary     *string           `json:"error_summary,omitempty"`
	PreviewData      []map[string]any  `json:"preview_data,omitempty"`
	Rows             []map[string]any  `json:"-"`
	CreatedAt        time.Time         `json:"created_at"`
	ProcessedAt      *time.Time        `json:"processed_at,omitempty"`
}

// NewSpreadsheetImport creates an import record awaiting a confirmed mapping.
func NewSpreadsheetImport(userID uuid.UUID, filename string, fileSize int64, rows []map[string]any, preview []map[string]any) SpreadsheetImport {
	return SpreadsheetImport{
		ID:          uuid.New(),
		UserID:      userID,
		Filename:    filename,
		FileSize:    fileSize,
		RowCount:    len(rows),
		Status:      ImportStatusMappingRequired,
		PreviewData: preview,
		Rows:        rows,
		CreatedAt:   time.Now(),
	}
}

// SpreadsheetImportUpdate is a partial update applied to an import record.
// Nil fields are left untouched.
type SpreadsheetImportUpdate struct {
	Status           *ImportStatus
	ColumnMappings   []ColumnMapping
	ValidRowCount    *int
	ValidationErrors []ValidationError
	ErrorSummary     *string
	ProcessedAt      *time.Time
}
