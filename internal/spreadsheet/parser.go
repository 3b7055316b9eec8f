package spreadsheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// ParseError is fatal to an upload: nothing past the parser runs when one is
// returned.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseError(message string, err error) *ParseError {
	return &ParseError{Message: message, Err: err}
}

// ParsedTable is the uniform tabular representation produced by parsing.
// Header order matches column order in the source file. Cell values are
// loosely typed: numeric-looking strings come back as float64, empty workbook
// cells as nil.
type ParsedTable struct {
	Headers  []string         `json:"headers"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"rowCount"`
}

// Parser converts uploaded files into a ParsedTable. It is stateless and safe
// for concurrent use.
type Parser struct{}

// NewParser creates a spreadsheet parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse dispatches on file extension. Supported: .csv, .xlsx, .xls.
func (p *Parser) Parse(filename string, payload []byte) (*ParsedTable, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return p.parseCSV(payload)
	case ".xlsx", ".xls":
		return p.parseWorkbook(payload)
	default:
		return nil, parseError(fmt.Sprintf("unsupported file type: %s", strings.TrimPrefix(ext, ".")), ErrUnsupportedFormat)
	}
}

func (p *Parser) parseCSV(payload []byte) (*ParsedTable, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, parseError("csv parsing failed", err)
	}

	var columns []column
	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		if isBlankRecord(record) {
			continue
		}
		if columns == nil {
			columns = headerColumns(record)
			continue
		}

		row := make(map[string]any, len(columns))
		for _, col := range columns {
			if col.index >= len(record) {
				row[col.name] = nil
				continue
			}
			row[col.name] = typeCell(record[col.index])
		}
		rows = append(rows, row)
	}

	if columns == nil {
		return nil, parseError("no header row detected", nil)
	}

	return &ParsedTable{Headers: columnNames(columns), Rows: rows, RowCount: len(rows)}, nil
}

func (p *Parser) parseWorkbook(payload []byte) (*ParsedTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, parseError("failed to open workbook", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseError("workbook has no sheets", nil)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, parseError("failed to read rows from workbook", err)
	}
	if len(records) == 0 {
		return nil, parseError("workbook sheet is empty", nil)
	}

	columns := headerColumns(records[0])
	if len(columns) == 0 {
		return nil, parseError("workbook sheet is empty", nil)
	}

	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		row := make(map[string]any, len(columns))
		for _, col := range columns {
			if col.index >= len(record) || strings.TrimSpace(record[col.index]) == "" {
				row[col.name] = nil
				continue
			}
			row[col.name] = typeCell(record[col.index])
		}
		rows = append(rows, row)
	}

	return &ParsedTable{Headers: columnNames(columns), Rows: rows, RowCount: len(rows)}, nil
}

// typeCell opportunistically types a raw cell: numeric-looking strings become
// float64, everything else stays a string.
func typeCell(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}
	return raw
}

// column pairs a header name with its position in the source file, so that
// blank headers can be dropped without shifting neighbouring values.
type column struct {
	name  string
	index int
}

func headerColumns(record []string) []column {
	columns := make([]column, 0, len(record))
	for idx, cell := range record {
		header := strings.TrimSpace(cell)
		if header == "" {
			continue
		}
		columns = append(columns, column{name: header, index: idx})
	}
	return columns
}

func columnNames(columns []column) []string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.name
	}
	return names
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
