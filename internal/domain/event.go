package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType classifies marketing events.
type EventType string

const (
	EventTypeWebinar    EventType = "webinar"
	EventTypeConference EventType = "conference"
	EventTypeWorkshop   EventType = "workshop"
	EventTypeTradeShow  EventType = "trade_show"
)

// EventStatus tracks where an event sits in its lifecycle.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusLive      EventStatus = "live"
	EventStatusCompleted EventStatus = "completed"
)

// Event is a persisted marketing event. Identity within a user's scope is the
// exact event name.
type Event struct {
	ID                  uuid.UUID   `json:"id"`
	UserID              uuid.UUID   `json:"user_id"`
	Name                string      `json:"name"`
	Type                EventType   `json:"type"`
	Status              EventStatus `json:"status"`
	StartDate           time.Time   `json:"start_date"`
	EndDate             time.Time   `json:"end_date"`
	TargetRegistrations *int        `json:"target_registrations"`
	ActualRegistrations int         `json:"actual_registrations"`
	AttendanceCount     int         `json:"attendance_count"`
	EngagementScore     *float64    `json:"engagement_score"`
	Description         string      `json:"description"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// NewImportedEvent creates an event discovered during a spreadsheet import.
// Imported events default to a completed webinar with a two hour duration
// anchored at the date carried by the first row that referenced the name.
func NewImportedEvent(userID uuid.UUID, name string, startDate time.Time, sourceFilename string) Event {
	now := time.Now()
	return Event{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Type:        EventTypeWebinar,
		Status:      EventStatusCompleted,
		StartDate:   startDate,
		EndDate:     startDate.Add(2 * time.Hour),
		Description: fmt.Sprintf("Imported from spreadsheet %s", sourceFilename),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
