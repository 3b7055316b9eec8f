package spreadsheet

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mlane/campaignlens/internal/domain"
)

// dateLayouts is the ordered list of explicit formats tried before the lenient
// fallback. Month-first layouts come before day-first on purpose.
var dateLayouts = []string{
	"01/02/2006",
	"02/01/2006",
	"2006-01-02",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"02-Jan-2006",
	"2006/01/02",
	"02.01.2006",
	"1/2/2006",
}

var fallbackDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationResult is the outcome of validating one batch of rows.
type ValidationResult struct {
	Valid      []domain.MarketingDataRow `json:"valid"`
	Errors     []domain.ValidationError  `json:"errors"`
	ValidCount int                       `json:"validCount"`
	ErrorCount int                       `json:"errorCount"`
}

// Validator turns raw rows plus a confirmed mapping into typed records and
// row-level errors. A malformed row never aborts the batch.
type Validator struct{}

// NewValidator creates a spreadsheet validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate builds one candidate record per row and validates it field by
// field. Row numbers in errors are index+2 so they line up with spreadsheet
// line numbers after the header row.
func (v *Validator) Validate(rows []map[string]any, mappings []domain.ColumnMapping) *ValidationResult {
	result := &ValidationResult{
		Valid:  []domain.MarketingDataRow{},
		Errors: []domain.ValidationError{},
	}

	for idx, row := range rows {
		rowNumber := idx + 2
		candidate := v.mapRow(row, mappings)

		record, fieldErrors := buildRecord(candidate)
		if len(fieldErrors) == 0 {
			result.Valid = append(result.Valid, record)
			continue
		}

		for _, fieldErr := range fieldErrors {
			fieldErr.Row = rowNumber
			result.Errors = append(result.Errors, fieldErr)
		}
	}

	result.ValidCount = len(result.Valid)
	result.ErrorCount = len(result.Errors)
	return result
}

// mapRow projects a raw row onto canonical record keys. Mappings are applied
// in order, so when two source columns target the same field the later one
// wins.
func (v *Validator) mapRow(row map[string]any, mappings []domain.ColumnMapping) map[string]any {
	mapped := make(map[string]any, len(mappings))

	for _, mapping := range mappings {
		if mapping.TargetField == domain.FieldSkip || !mapping.TargetField.Valid() {
			continue
		}

		value, ok := row[mapping.SourceColumn]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && s == "" {
			continue
		}

		mapped[mapping.TargetField.Key()] = applyTransform(value, mapping.Transform)
	}

	return mapped
}

func applyTransform(value any, transform domain.Transform) any {
	switch transform {
	case domain.TransformLowercase:
		return strings.ToLower(stringify(value))
	case domain.TransformUppercase:
		return strings.ToUpper(stringify(value))
	case domain.TransformTrim:
		return strings.TrimSpace(stringify(value))
	case domain.TransformParseDate:
		if ts, ok := ParseDate(value); ok {
			return ts
		}
		return nil
	case domain.TransformParseNumber:
		if n, ok := ParseNumber(value); ok {
			return n
		}
		return nil
	default:
		return value
	}
}

// buildRecord validates the candidate map against the marketing row shape and
// decomposes any failure into one error per offending field.
func buildRecord(candidate map[string]any) (domain.MarketingDataRow, []domain.ValidationError) {
	var record domain.MarketingDataRow
	var errs []domain.ValidationError

	fieldError := func(key, message string, value any) {
		errs = append(errs, domain.ValidationError{Column: key, Message: message, Value: value})
	}

	for key, value := range candidate {
		switch key {
		case "email":
			email := strings.ToLower(strings.TrimSpace(stringify(value)))
			if !emailPattern.MatchString(email) {
				fieldError(key, "invalid email address", value)
				continue
			}
			record.Email = &email
		case "campaignName":
			record.CampaignName = stringField(value)
		case "utmSource":
			record.UTMSource = stringField(value)
		case "utmMedium":
			record.UTMMedium = stringField(value)
		case "utmCampaign":
			record.UTMCampaign = stringField(value)
		case "registrationDate":
			ts, ok := ParseDate(value)
			if !ok {
				fieldError(key, "invalid date", value)
				continue
			}
			record.RegistrationDate = &ts
		case "eventName":
			record.EventName = stringField(value)
		case "eventDate":
			ts, ok := ParseDate(value)
			if !ok {
				fieldError(key, "invalid date", value)
				continue
			}
			record.EventDate = &ts
		case "cost":
			n, ok := ParseNumber(value)
			if !ok {
				fieldError(key, "expected a number", value)
				continue
			}
			if n < 0 {
				fieldError(key, "must be non-negative", value)
				continue
			}
			record.Cost = &n
		case "impressions":
			record.Impressions = intField(key, value, fieldError)
		case "clicks":
			record.Clicks = intField(key, value, fieldError)
		case "conversions":
			record.Conversions = intField(key, value, fieldError)
		case "registrations":
			record.Registrations = intField(key, value, fieldError)
		case "attendees":
			record.Attendees = intField(key, value, fieldError)
		case "attendeeName":
			record.AttendeeName = stringField(value)
		case "company":
			record.Company = stringField(value)
		default:
			fieldError(key, fmt.Sprintf("unknown field %q", key), value)
		}
	}

	if len(errs) > 0 {
		return domain.MarketingDataRow{}, errs
	}
	return record, nil
}

func stringField(value any) *string {
	s := stringify(value)
	return &s
}

func intField(key string, value any, fieldError func(key, message string, value any)) *int {
	n, ok := ParseNumber(value)
	if !ok {
		fieldError(key, "expected a whole number", value)
		return nil
	}
	if n < 0 {
		fieldError(key, "must be non-negative", value)
		return nil
	}
	if math.Mod(n, 1) != 0 {
		fieldError(key, "expected a whole number", value)
		return nil
	}
	i := int(n)
	return &i
}

// ParseDate tries the explicit layout list first, then a small set of lenient
// fallbacks. It reports false instead of failing hard.
func ParseDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case nil:
		return time.Time{}, false
	}

	raw := strings.TrimSpace(stringify(value))
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	for _, layout := range fallbackDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

var numberCleaner = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", "%", "", ",", "")

// ParseNumber parses a float out of messy spreadsheet text, stripping currency
// and percent symbols plus thousands separators. It reports false instead of
// failing hard: ParseNumber("abc") is simply not a number.
func ParseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case nil:
		return 0, false
	}

	raw := numberCleaner.Replace(strings.TrimSpace(stringify(value)))
	if raw == "" {
		return 0, false
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// stringify renders a loosely typed cell value as text. Floats drop their
// trailing zeros so 100.0 prints as "100".
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
