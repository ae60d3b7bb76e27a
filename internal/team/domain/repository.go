package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, team *Team) error
	Update(ctx context.Context, db *gorm.DB, team *Team) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Team, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID int64) (*Team, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	InsertMembership(ctx context.Context, db *gorm.DB, membership *TeamMember) error
	DeleteMembership(ctx context.Context, db *gorm.DB, teamID, memberID snowflake.ID) error
	ListMemberIDs(ctx context.Context, db *gorm.DB, teamID snowflake.ID) ([]snowflake.ID, error)
	ListTeamsByMemberID(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]Team, error)
	HasMembership(ctx context.Context, db *gorm.DB, teamID, memberID snowflake.ID) (bool, error)
}
