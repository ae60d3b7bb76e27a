package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() memberdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, member *memberdomain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (
			id, external_id, username, display_name, birthday, birth_year, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.ExternalID,
		member.Username,
		member.DisplayName,
		member.Birthday,
		member.BirthYear,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, member *memberdomain.Member) error {
	return db.WithContext(ctx).Exec(
		`UPDATE members
		 SET username = ?, display_name = ?, birthday = ?, birth_year = ?, updated_at = ?
		 WHERE id = ?`,
		member.Username,
		member.DisplayName,
		member.Birthday,
		member.BirthYear,
		member.UpdatedAt,
		member.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*memberdomain.Member, error) {
	var member memberdomain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, username, display_name, birthday, birth_year, created_at, updated_at
		 FROM members WHERE id = ?`,
		id,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID int64) (*memberdomain.Member, error) {
	var member memberdomain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, username, display_name, birthday, birth_year, created_at, updated_at
		 FROM members WHERE external_id = ?`,
		externalID,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) ListWithBirthday(ctx context.Context, db *gorm.DB) ([]memberdomain.Member, error) {
	var members []memberdomain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, username, display_name, birthday, birth_year, created_at, updated_at
		 FROM members WHERE birthday IS NOT NULL ORDER BY id ASC`,
	).Scan(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM members`).Scan(&count).Error
	return count, err
}

func (r *repo) InsertWishlistItem(ctx context.Context, db *gorm.DB, item *memberdomain.WishlistItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO wishlist_items (
			id, member_id, title, link, position, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.MemberID,
		item.Title,
		item.Link,
		item.Position,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) ListWishlist(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]memberdomain.WishlistItem, error) {
	var items []memberdomain.WishlistItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, title, link, position, created_at, updated_at
		 FROM wishlist_items WHERE member_id = ? ORDER BY position ASC, id ASC`,
		memberID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) NextWishlistPosition(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (int, error) {
	var max int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(position), 0) FROM wishlist_items WHERE member_id = ?`,
		memberID,
	).Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
