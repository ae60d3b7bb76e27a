package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, vote *Vote) error
	Update(ctx context.Context, db *gorm.DB, vote *Vote) error
	FindByEventMemberItem(ctx context.Context, db *gorm.DB, eventID, memberID, itemID snowflake.ID) (*Vote, error)
	SumWeightsByItem(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]ItemWeight, error)
	CountByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error)
}
