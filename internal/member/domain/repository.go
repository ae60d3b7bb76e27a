package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, member *Member) error
	Update(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID int64) (*Member, error)
	ListWithBirthday(ctx context.Context, db *gorm.DB) ([]Member, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	InsertWishlistItem(ctx context.Context, db *gorm.DB, item *WishlistItem) error
	ListWishlist(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]WishlistItem, error)
	NextWishlistPosition(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (int, error)
}
