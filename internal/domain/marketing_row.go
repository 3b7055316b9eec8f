package domain

import (
	"strings"
	"time"
)

// TargetField is a canonical marketing-data attribute that a source column can
// be mapped onto.
type TargetField string

const (
	FieldEmail            TargetField = "email"
	FieldCampaignName     TargetField = "campaign_name"
	FieldUTMSource        TargetField = "utm_source"
	FieldUTMMedium        TargetField = "utm_medium"
	FieldUTMCampaign      TargetField = "utm_campaign"
	FieldRegistrationDate TargetField = "registration_date"
	FieldEventName        TargetField = "event_name"
	FieldEventDate        TargetField = "event_date"
	FieldCost             TargetField = "cost"
	FieldImpressions      TargetField = "impressions"
	FieldClicks           TargetField = "clicks"
	FieldConversions      TargetField = "conversions"
	FieldRegistrations    TargetField = "registrations"
	FieldAttendees        TargetField = "attendees"
	FieldAttendeeName     TargetField = "attendee_name"
	FieldCompany          TargetField = "company"

	// FieldSkip marks a column the user chose not to import.
	FieldSkip TargetField = "skip"
)

// TargetFields lists every canonical field in declaration order. Pattern
// matching during column detection walks this order, so it doubles as the
// tie-break order for headers that match more than one field.
var TargetFields = []TargetField{
	FieldEmail,
	FieldCampaignName,
	FieldUTMSource,
	FieldUTMMedium,
	FieldUTMCampaign,
	FieldRegistrationDate,
	FieldEventName,
	FieldEventDate,
	FieldCost,
	FieldImpressions,
	FieldClicks,
	FieldConversions,
	FieldRegistrations,
	FieldAttendees,
	FieldAttendeeName,
	FieldCompany,
}

// Valid reports whether the field is one of the canonical fields or skip.
func (f TargetField) Valid() bool {
	if f == FieldSkip {
		return true
	}
	for _, known := range TargetFields {
		if f == known {
			return true
		}
	}
	return false
}

// Key returns the camel-cased record key for the field, e.g.
// campaign_name -> campaignName.
func (f TargetField) Key() string {
	parts := strings.Split(string(f), "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

// Transform names a per-field text transform applied before validation.
type Transform string

const (
	TransformLowercase   Transform = "lowercase"
	TransformUppercase   Transform = "uppercase"
	TransformTrim        Transform = "trim"
	TransformParseDate   Transform = "parse_date"
	TransformParseNumber Transform = "parse_number"
)

// ColumnMapping binds one source column to a canonical target field with a
// detection confidence in [0,100]. Multiple source columns may map to the same
// target field; the validator resolves that as last-write-wins per row.
type ColumnMapping struct {
	SourceColumn string      `json:"sourceColumn"`
	TargetField  TargetField `json:"targetField"`
	Confidence   int         `json:"confidence"`
	Transform    Transform   `json:"transform,omitempty"`
}

// ValidationError reports a single row-level problem. Row numbers are 1-based
// and offset by the header row so they line up with spreadsheet line numbers.
type ValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// MarketingDataRow is one validated record. Every field is optional; presence
// drives downstream reconciliation. A present field is guaranteed to have
// passed its type-specific validation.
type MarketingDataRow struct {
	Email            *string    `json:"email,omitempty"`
	CampaignName     *string    `json:"campaignName,omitempty"`
	UTMSource        *string    `json:"utmSource,omitempty"`
	UTMMedium        *string    `json:"utmMedium,omitempty"`
	UTMCampaign      *string    `json:"utmCampaign,omitempty"`
	RegistrationDate *time.Time `json:"registrationDate,omitempty"`
	EventName        *string    `json:"eventName,omitempty"`
	EventDate        *time.Time `json:"eventDate,omitempty"`
	Cost             *float64   `json:"cost,omitempty"`
	Impressions      *int       `json:"impressions,omitempty"`
	Clicks           *int       `json:"clicks,omitempty"`
	Conversions      *int       `json:"conversions,omitempty"`
	Registrations    *int       `json:"registrations,omitempty"`
	Attendees        *int       `json:"attendees,omitempty"`
	AttendeeName     *string    `json:"attendeeName,omitempty"`
	Company          *string    `json:"company,omitempty"`
}

// HasMetrics reports whether the row carries any numeric value worth
// aggregating into campaign totals.
func (r MarketingDataRow) HasMetrics() bool {
	return r.Cost != nil || r.Impressions != nil || r.Clicks != nil ||
		r.Conversions != nil || r.Registrations != nil || r.Attendees != nil
}
