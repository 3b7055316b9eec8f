package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Channel is the marketing channel a campaign runs on, derived from UTM source text.
type Channel string

const (
	ChannelLinkedIn Channel = "linkedin"
	ChannelFacebook Channel = "facebook"
	ChannelGoogle   Channel = "google"
	ChannelEmail    Channel = "email"
	ChannelOrganic  Channel = "organic"
	ChannelOther    Channel = "other"
)

// ChannelFromUTMSource maps free-text UTM source values onto a fixed channel set.
// Substring rules are checked in order; unmatched sources fall back to "other".
func ChannelFromUTMSource(utmSource string) Channel {
	source := strings.ToLower(strings.TrimSpace(utmSource))
	switch {
	case strings.Contains(source, "linkedin"):
		return ChannelLinkedIn
	case strings.Contains(source, "facebook"), strings.Contains(source, "fb"):
		return ChannelFacebook
	case strings.Contains(source, "google"):
		return ChannelGoogle
	case strings.Contains(source, "email"):
		return ChannelEmail
	case source == "direct", source == "organic":
		return ChannelOrganic
	default:
		return ChannelOther
	}
}

// CampaignStatus tracks the campaign lifecycle.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign is a persisted marketing campaign. Identity within a user's scope is
// the (Name, Channel) pair; the same campaign name on two channels is two rows.
type Campaign struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	Name           string         `json:"name"`
	Channel        Channel        `json:"channel"`
	Status         CampaignStatus `json:"status"`
	Budget         *float64       `json:"budget"`
	Spend          float64        `json:"spend"`
	Impressions    int            `json:"impressions"`
	Clicks         int            `json:"clicks"`
	Registrations  int            `json:"registrations"`
	Attendees      int            `json:"attendees"`
	ConversionRate *float64       `json:"conversion_rate"`
	QualityScore   *float64       `json:"quality_score"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        *time.Time     `json:"end_date"`
	Metadata       map[string]any `json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewCampaign creates an active campaign with zeroed metrics.
func NewCampaign(userID uuid.UUID, name string, channel Channel, metadata map[string]any) Campaign {
	now := time.Now()
	return Campaign{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Channel:   channel,
		Status:    CampaignStatusActive,
		StartDate: now,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CampaignTotals is a delta applied to a campaign's running counters.
type CampaignTotals struct {
	Impressions   int
	Clicks        int
	Registrations int
	Attendees     int
	Spend         float64
}

// IsZero reports whether the delta carries no values at all.
func (t CampaignTotals) IsZero() bool {
	return t.Impressions == 0 && t.Clicks == 0 && t.Registrations == 0 &&
		t.Attendees == 0 && t.Spend == 0
}
