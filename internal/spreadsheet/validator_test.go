package spreadsheet

import (
	"testing"
	"time"

	"github.com/mlane/campaignlens/internal/domain"
)

func standardMappings() []domain.ColumnMapping {
	return []domain.ColumnMapping{
		{SourceColumn: "email", TargetField: domain.FieldEmail},
		{SourceColumn: "campaign", TargetField: domain.FieldCampaignName},
		{SourceColumn: "clicks", TargetField: domain.FieldClicks},
		{SourceColumn: "cost", TargetField: domain.FieldCost},
		{SourceColumn: "reg_date", TargetField: domain.FieldRegistrationDate},
	}
}

func TestValidateValidRow(t *testing.T) {
	rows := []map[string]any{
		{"email": "Alice@Example.COM", "campaign": "Launch", "clicks": float64(10), "cost": "$1,234.50", "reg_date": "01/15/2024"},
	}

	result := NewValidator().Validate(rows, standardMappings())
	if result.ErrorCount != 0 {
		t.Fatalf("expected no errors, got %+v", result.Errors)
	}
	if result.ValidCount != 1 {
		t.Fatalf("expected 1 valid row, got %d", result.ValidCount)
	}

	record := result.Valid[0]
	if record.Email == nil || *record.Email != "alice@example.com" {
		t.Errorf("expected lowercased email, got %v", record.Email)
	}
	if record.Clicks == nil || *record.Clicks != 10 {
		t.Errorf("expected clicks 10, got %v", record.Clicks)
	}
	if record.Cost == nil || *record.Cost != 1234.5 {
		t.Errorf("expected cost 1234.5, got %v", record.Cost)
	}
	if record.RegistrationDate == nil || record.RegistrationDate.Month() != time.January || record.RegistrationDate.Day() != 15 {
		t.Errorf("expected Jan 15 registration date, got %v", record.RegistrationDate)
	}
}

func TestValidateRowNumbersSkipHeader(t *testing.T) {
	rows := []map[string]any{
		{"email": "good@example.com"},
		{"email": "not-an-email"},
	}
	mappings := []domain.ColumnMapping{{SourceColumn: "email", TargetField: domain.FieldEmail}}

	result := NewValidator().Validate(rows, mappings)
	if result.ErrorCount != 1 {
		t.Fatalf("expected 1 error, got %+v", result.Errors)
	}
	// Row index 1 is spreadsheet line 3: one for 1-basing, one for the header.
	if result.Errors[0].Row != 3 {
		t.Errorf("expected error on row 3, got %d", result.Errors[0].Row)
	}
	if result.Errors[0].Column != "email" {
		t.Errorf("expected error on email column, got %q", result.Errors[0].Column)
	}
}

func TestValidateRowCountsAreAdditive(t *testing.T) {
	rows := []map[string]any{
		{"email": "one@example.com"},
		{"email": "bad"},
		{"email": "two@example.com"},
	}
	mappings := []domain.ColumnMapping{{SourceColumn: "email", TargetField: domain.FieldEmail}}

	result := NewValidator().Validate(rows, mappings)
	if result.ValidCount+result.ErrorCount != len(rows) {
		t.Errorf("valid %d + errors %d != rows %d", result.ValidCount, result.ErrorCount, len(rows))
	}
}

func TestValidateNegativeAndFractionalCounts(t *testing.T) {
	rows := []map[string]any{
		{"clicks": float64(-5)},
		{"clicks": 2.5},
	}
	mappings := []domain.ColumnMapping{{SourceColumn: "clicks", TargetField: domain.FieldClicks}}

	result := NewValidator().Validate(rows, mappings)
	if result.ErrorCount != 2 {
		t.Fatalf("expected both rows rejected, got %+v", result.Errors)
	}
}

func TestValidateSkippedAndEmptyColumns(t *testing.T) {
	rows := []map[string]any{
		{"email": "", "internal": "x", "campaign": "Launch"},
	}
	mappings := []domain.ColumnMapping{
		{SourceColumn: "email", TargetField: domain.FieldEmail},
		{SourceColumn: "internal", TargetField: domain.FieldSkip},
		{SourceColumn: "campaign", TargetField: domain.FieldCampaignName},
	}

	result := NewValidator().Validate(rows, mappings)
	if result.ErrorCount != 0 {
		t.Fatalf("empty and skipped cells must not error: %+v", result.Errors)
	}
	record := result.Valid[0]
	if record.Email != nil {
		t.Errorf("empty email cell should stay absent, got %v", *record.Email)
	}
	if record.CampaignName == nil || *record.CampaignName != "Launch" {
		t.Errorf("expected campaign Launch, got %v", record.CampaignName)
	}
}

func TestValidateDuplicateTargetLastWriteWins(t *testing.T) {
	rows := []map[string]any{
		{"primary": "First", "secondary": "Second"},
	}
	mappings := []domain.ColumnMapping{
		{SourceColumn: "primary", TargetField: domain.FieldCampaignName},
		{SourceColumn: "secondary", TargetField: domain.FieldCampaignName},
	}

	result := NewValidator().Validate(rows, mappings)
	if result.ValidCount != 1 {
		t.Fatalf("expected 1 valid row, got %+v", result.Errors)
	}
	if *result.Valid[0].CampaignName != "Second" {
		t.Errorf("expected later mapping to win, got %q", *result.Valid[0].CampaignName)
	}
}

func TestApplyTransforms(t *testing.T) {
	rows := []map[string]any{
		{"campaign": "  Launch  ", "cost": "abc"},
	}
	mappings := []domain.ColumnMapping{
		{SourceColumn: "campaign", TargetField: domain.FieldCampaignName, Transform: domain.TransformTrim},
		{SourceColumn: "cost", TargetField: domain.FieldCost, Transform: domain.TransformParseNumber},
	}

	result := NewValidator().Validate(rows, mappings)
	// A failed parse_number transform surfaces as a field error, not a crash.
	if result.ErrorCount != 1 {
		t.Fatalf("expected 1 error from the unparseable cost, got %+v", result.Errors)
	}
	if result.Errors[0].Column != "cost" {
		t.Errorf("expected cost error, got %q", result.Errors[0].Column)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in    any
		want  float64
		valid bool
	}{
		{"$1,234.50", 1234.5, true},
		{"12%", 12, true},
		{"€99", 99, true},
		{"100", 100, true},
		{float64(3.5), 3.5, true},
		{42, 42, true},
		{"abc", 0, false},
		{"", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		if ok != tt.valid {
			t.Errorf("ParseNumber(%v) valid = %v, want %v", tt.in, ok, tt.valid)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseNumber(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"01/15/2024", true},
		{"2024-01-15", true},
		{"Jan 15, 2024", true},
		{"2024-01-15T10:30:00Z", true},
		{"not a date", false},
		{"", false},
	}
	for _, tt := range tests {
		_, ok := ParseDate(tt.in)
		if ok != tt.valid {
			t.Errorf("ParseDate(%q) valid = %v, want %v", tt.in, ok, tt.valid)
		}
	}

	// Ambiguous day/month strings resolve month-first.
	ts, ok := ParseDate("03/04/2024")
	if !ok || ts.Month() != time.March || ts.Day() != 4 {
		t.Errorf("expected 03/04/2024 to parse as March 4, got %v", ts)
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"=SUM(A1:A9)", "'=SUM(A1:A9)"},
		{"+1234", "'+1234"},
		{"-offset", "'-offset"},
		{"@handle", "'@handle"},
		{"plain text", "plain text"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.in); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Sanitizing twice must not stack quotes.
		if got := SanitizeString(SanitizeString(tt.in)); got != tt.want {
			t.Errorf("SanitizeString is not idempotent for %q: %q", tt.in, got)
		}
	}
}
