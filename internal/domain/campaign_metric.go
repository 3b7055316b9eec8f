package domain

import (
	"time"

	"github.com/google/uuid"
)

// MetricType names a campaign metric fact bucket.
type MetricType string

const (
	MetricTypeImpressions   MetricType = "impressions"
	MetricTypeClicks        MetricType = "clicks"
	MetricTypeRegistrations MetricType = "registrations"
)

// CampaignMetric is an append-only metric fact. One row is emitted per
// (campaign, metric type, date) whenever an imported row carried a value;
// re-importing the same file appends new facts rather than deduplicating.
type CampaignMetric struct {
	ID         uuid.UUID  `json:"id"`
	CampaignID uuid.UUID  `json:"campaign_id"`
	MetricType MetricType `json:"metric_type"`
	Value      float64    `json:"value"`
	Date       time.Time  `json:"date"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewCampaignMetric creates a metric fact for a campaign.
func NewCampaignMetric(campaignID uuid.UUID, metricType MetricType, value float64, date time.Time) CampaignMetric {
	return CampaignMetric{
		ID:         uuid.New(),
		CampaignID: campaignID,
		MetricType: metricType,
		Value:      value,
		Date:       date,
		CreatedAt:  time.Now(),
	}
}
