// Package domain contains persistence models for the birthday event lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventStatus represents lifecycle states for a birthday event.
type EventStatus string

const (
	EventStatusScheduled  EventStatus = "scheduled"
	EventStatusAnnounced  EventStatus = "announced"
	EventStatusCollecting EventStatus = "collecting"
	EventStatusOrganizing EventStatus = "organizing"
	EventStatusFinalized  EventStatus = "finalized"
	EventStatusCelebrated EventStatus = "celebrated"
	EventStatusCancelled  EventStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCelebrated || s == EventStatusCancelled
}

// TransitionAllowed reports whether from → to is a legal lifecycle edge.
// organizing → collecting is the single backward edge (organizer release).
func TransitionAllowed(from, to EventStatus) bool {
	switch from {
	case EventStatusScheduled:
		return to == EventStatusAnnounced || to == EventStatusCancelled
	case EventStatusAnnounced:
		return to == EventStatusCollecting || to == EventStatusCancelled
	case EventStatusCollecting:
		return to == EventStatusOrganizing || to == EventStatusCancelled
	case EventStatusOrganizing:
		return to == EventStatusCollecting || to == EventStatusFinalized || to == EventStatusCancelled
	case EventStatusFinalized:
		return to == EventStatusCelebrated || to == EventStatusCancelled
	default:
		return false
	}
}

// WishlistSnapshotItem is one entry of the wishlist frozen at event creation.
// Position fixes the vote tally tie-break order.
type WishlistSnapshotItem struct {
	ItemID   snowflake.ID `json:"item_id"`
	Title    string       `json:"title"`
	Link     *string      `json:"link,omitempty"`
	Position int          `json:"position"`
}

// BirthdayEvent captures one honoree's birthday in one team for one year.
// Rows are never deleted; cancelled and celebrated rows stay as history.
type BirthdayEvent struct {
	ID               snowflake.ID   `gorm:"primaryKey"`
	TeamID           snowflake.ID   `gorm:"not null;uniqueIndex:idx_birthday_events_honoree_team_year;index"`
	HonoreeID        snowflake.ID   `gorm:"not null;uniqueIndex:idx_birthday_events_honoree_team_year;index"`
	Year             int            `gorm:"not null;uniqueIndex:idx_birthday_events_honoree_team_year"`
	BirthdayOn       string         `gorm:"type:text;not null;index"`
	Status           EventStatus    `gorm:"type:text;not null;index"`
	OrganizerID      *snowflake.ID  `gorm:""`
	WishlistSnapshot datatypes.JSON `gorm:"type:jsonb"`
	SelectedGift     *string        `gorm:"type:text"`
	TotalPrice       *int64         `gorm:""`
	PaymentDetails   *string        `gorm:"type:text"`
	AnnouncedAt      *time.Time     `gorm:""`
	CollectingAt     *time.Time     `gorm:""`
	OrganizingAt     *time.Time     `gorm:""`
	FinalizedAt      *time.Time     `gorm:""`
	CelebratedAt     *time.Time     `gorm:""`
	CancelledAt      *time.Time     `gorm:""`
	LastFiredOn      *string        `gorm:"type:text"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BirthdayEvent) TableName() string { return "birthday_events" }

// DateLayout is the civil date format used for birthday_on and last_fired_on.
const DateLayout = "2006-01-02"

// BirthdayDate parses the event's civil birthday date.
func (e *BirthdayEvent) BirthdayDate() (time.Time, error) {
	return time.Parse(DateLayout, e.BirthdayOn)
}
