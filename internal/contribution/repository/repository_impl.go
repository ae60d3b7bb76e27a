package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	contributiondomain "github.com/smallbiznis/kado/internal/contribution/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() contributiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, contribution *contributiondomain.Contribution) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO contributions (
			id, event_id, member_id, status, amount, marked_paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		contribution.ID,
		contribution.EventID,
		contribution.MemberID,
		contribution.Status,
		contribution.Amount,
		contribution.MarkedPaidAt,
		contribution.CreatedAt,
		contribution.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, contribution *contributiondomain.Contribution) error {
	return db.WithContext(ctx).Exec(
		`UPDATE contributions
		 SET status = ?, amount = ?, marked_paid_at = ?, updated_at = ?
		 WHERE id = ?`,
		contribution.Status,
		contribution.Amount,
		contribution.MarkedPaidAt,
		contribution.UpdatedAt,
		contribution.ID,
	).Error
}

func (r *repo) FindByEventAndMember(ctx context.Context, db *gorm.DB, eventID, memberID snowflake.ID) (*contributiondomain.Contribution, error) {
	var contribution contributiondomain.Contribution
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, member_id, status, amount, marked_paid_at, created_at, updated_at
		 FROM contributions
		 WHERE event_id = ? AND member_id = ?`,
		eventID,
		memberID,
	).Scan(&contribution).Error
	if err != nil {
		return nil, err
	}
	if contribution.ID == 0 {
		return nil, nil
	}
	return &contribution, nil
}

func (r *repo) ListByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]contributiondomain.Contribution, error) {
	var contributions []contributiondomain.Contribution
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, member_id, status, amount, marked_paid_at, created_at, updated_at
		 FROM contributions
		 WHERE event_id = ?
		 ORDER BY created_at ASC, id ASC`,
		eventID,
	).Scan(&contributions).Error
	if err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *repo) CountsByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (contributiondomain.StatusCounts, error) {
	return scanCounts(db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM contributions WHERE event_id = ? GROUP BY status`,
		eventID,
	))
}

func (r *repo) CountAll(ctx context.Context, db *gorm.DB) (contributiondomain.StatusCounts, error) {
	return scanCounts(db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM contributions GROUP BY status`,
	))
}

func scanCounts(tx *gorm.DB) (contributiondomain.StatusCounts, error) {
	var rows []struct {
		Status contributiondomain.ContributionStatus
		Total  int64
	}
	if err := tx.Scan(&rows).Error; err != nil {
		return contributiondomain.StatusCounts{}, err
	}

	var counts contributiondomain.StatusCounts
	for _, row := range rows {
		switch row.Status {
		case contributiondomain.ContributionStatusPending:
			counts.Pending = row.Total
		case contributiondomain.ContributionStatusPaid:
			counts.Paid = row.Total
		case contributiondomain.ContributionStatusDeclined:
			counts.Declined = row.Total
		}
	}
	return counts, nil
}
