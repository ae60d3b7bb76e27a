package repository

import (
	"context"

	notificationdomain "github.com/smallbiznis/kado/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() notificationdomain.Repository {
	return &repo{}
}

func (r *repo) InsertDelivery(ctx context.Context, db *gorm.DB, delivery *notificationdomain.Delivery) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notification_deliveries (
			id, event_id, kind, recipient, dedupe_key, status, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		delivery.ID,
		delivery.EventID,
		delivery.Kind,
		delivery.Recipient,
		delivery.DedupeKey,
		delivery.Status,
		delivery.Error,
		delivery.CreatedAt,
	).Error
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, status notificationdomain.DeliveryStatus) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM notification_deliveries WHERE status = ?`,
		status,
	).Scan(&count).Error
	return count, err
}
