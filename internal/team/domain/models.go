// Package domain contains persistence models for teams and memberships.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Team is a chat group the bot serves.
type Team struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	ExternalID int64        `gorm:"not null;uniqueIndex"`
	Title      string       `gorm:"type:text;not null"`
	Slug       string       `gorm:"type:text;not null;index"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }

// TeamMember links a member to a team.
type TeamMember struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TeamID    snowflake.ID `gorm:"not null;uniqueIndex:idx_team_members_team_member"`
	MemberID  snowflake.ID `gorm:"not null;uniqueIndex:idx_team_members_team_member;index"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TeamMember) TableName() string { return "team_members" }
