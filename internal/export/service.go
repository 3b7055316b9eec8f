package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mlane/campaignlens/internal/domain"
	"github.com/mlane/campaignlens/internal/spreadsheet"
	"github.com/mlane/campaignlens/internal/storage"
)

// ErrExportNotFound mirrors the importer's ownership rule: a missing import and
// somebody else's import are indistinguishable to the caller.
var ErrExportNotFound = errors.New("export source not found")

// Service streams the rows captured by an import back out as CSV. Every cell
// passes through the formula-injection sanitizer on the way out, so a file we
// accepted cannot hand a formula to whatever opens the download.
type Service struct {
	store storage.Storage
}

// NewService creates an export service on top of the storage collaborator.
func NewService(store storage.Storage) *Service {
	return &Service{store: store}
}

// Lookup loads the import record backing an export, enforcing ownership.
func (s *Service) Lookup(ctx context.Context, user domain.User, importID uuid.UUID) (domain.SpreadsheetImport, error) {
	record, err := s.store.GetSpreadsheetImport(ctx, importID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.SpreadsheetImport{}, ErrExportNotFound
		}
		return domain.SpreadsheetImport{}, fmt.Errorf("failed to load import: %w", err)
	}
	if record.UserID != user.ID {
		return domain.SpreadsheetImport{}, ErrExportNotFound
	}
	return record, nil
}

// WriteCSV writes the import's rows to w as CSV and returns the row count
// written.
func (s *Service) WriteCSV(record domain.SpreadsheetImport, w io.Writer) (int, error) {
	rows := record.Rows
	if len(rows) == 0 {
		rows = record.PreviewData
	}

	headers := exportHeaders(record, rows)
	csvWriter := csv.NewWriter(w)

	if len(headers) > 0 {
		if err := csvWriter.Write(headers); err != nil {
			return 0, fmt.Errorf("failed to write header: %w", err)
		}
	}

	buffer := make([]string, len(headers))
	written := 0
	for _, row := range rows {
		for i, header := range headers {
			buffer[i] = spreadsheet.SanitizeString(formatValue(row[header]))
		}
		if err := csvWriter.Write(buffer); err != nil {
			return written, fmt.Errorf("failed to write row: %w", err)
		}
		written++
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return written, fmt.Errorf("failed to flush export: %w", err)
	}
	return written, nil
}

// Filename derives a download filename from the original upload.
func (s *Service) Filename(record domain.SpreadsheetImport) string {
	base := record.Filename
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = sanitizeFileComponent(base)
	if base == "" {
		base = "import"
	}
	return fmt.Sprintf("%s-%s.csv", base, record.ID.String())
}

// exportHeaders reproduces column order from the confirmed mappings when there
// are any; an unconfirmed import falls back to the first row's keys sorted, as
// parsed rows do not remember source order.
func exportHeaders(record domain.SpreadsheetImport, rows []map[string]any) []string {
	if len(record.ColumnMappings) > 0 {
		headers := make([]string, 0, len(record.ColumnMappings))
		seen := make(map[string]bool, len(record.ColumnMappings))
		for _, mapping := range record.ColumnMappings {
			if mapping.SourceColumn == "" || seen[mapping.SourceColumn] {
				continue
			}
			seen[mapping.SourceColumn] = true
			headers = append(headers, mapping.SourceColumn)
		}
		return headers
	}

	if len(rows) == 0 {
		return nil
	}
	headers := make([]string, 0, len(rows[0]))
	for key := range rows[0] {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	return headers
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	return strings.Trim(builder.String(), "-")
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
