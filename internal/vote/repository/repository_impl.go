package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	votedomain "github.com/smallbiznis/kado/internal/vote/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() votedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vote *votedomain.Vote) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO votes (
			id, event_id, member_id, item_id, weight, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		vote.ID,
		vote.EventID,
		vote.MemberID,
		vote.ItemID,
		vote.Weight,
		vote.CreatedAt,
		vote.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, vote *votedomain.Vote) error {
	return db.WithContext(ctx).Exec(
		`UPDATE votes SET weight = ?, updated_at = ? WHERE id = ?`,
		vote.Weight,
		vote.UpdatedAt,
		vote.ID,
	).Error
}

func (r *repo) FindByEventMemberItem(ctx context.Context, db *gorm.DB, eventID, memberID, itemID snowflake.ID) (*votedomain.Vote, error) {
	var vote votedomain.Vote
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, member_id, item_id, weight, created_at, updated_at
		 FROM votes
		 WHERE event_id = ? AND member_id = ? AND item_id = ?`,
		eventID,
		memberID,
		itemID,
	).Scan(&vote).Error
	if err != nil {
		return nil, err
	}
	if vote.ID == 0 {
		return nil, nil
	}
	return &vote, nil
}

func (r *repo) SumWeightsByItem(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]votedomain.ItemWeight, error) {
	var rows []struct {
		ItemID snowflake.ID
		Total  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT item_id, SUM(weight) AS total FROM votes WHERE event_id = ? GROUP BY item_id`,
		eventID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	weights := make([]votedomain.ItemWeight, 0, len(rows))
	for _, row := range rows {
		weights = append(weights, votedomain.ItemWeight{ItemID: row.ItemID, Total: row.Total})
	}
	return weights, nil
}

func (r *repo) CountByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM votes WHERE event_id = ?`,
		eventID,
	).Scan(&count).Error
	return count, err
}
