// Package domain contains persistence models for members and wishlists.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Member is a chat-platform user known to the bot.
type Member struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	ExternalID  int64        `gorm:"not null;uniqueIndex"`
	Username    *string      `gorm:"type:text"`
	DisplayName string       `gorm:"type:text;not null"`
	Birthday    *string      `gorm:"type:text"`
	BirthYear   *int         `gorm:""`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }

// BirthdayLayout is the month-day format birthdays are stored in. The year
// is kept separately so members can omit it.
const BirthdayLayout = "01-02"

// WishlistItem is a single entry on a member's gift wishlist. Position fixes
// the display order and the tie-break order for vote tallies.
type WishlistItem struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	MemberID  snowflake.ID `gorm:"not null;index"`
	Title     string       `gorm:"type:text;not null"`
	Link      *string      `gorm:"type:text"`
	Position  int          `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WishlistItem) TableName() string { return "wishlist_items" }
