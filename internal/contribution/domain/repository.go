package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contribution *Contribution) error
	Update(ctx context.Context, db *gorm.DB, contribution *Contribution) error
	FindByEventAndMember(ctx context.Context, db *gorm.DB, eventID, memberID snowflake.ID) (*Contribution, error)
	ListByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]Contribution, error)
	CountsByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (StatusCounts, error)
	CountAll(ctx context.Context, db *gorm.DB) (StatusCounts, error)
}
