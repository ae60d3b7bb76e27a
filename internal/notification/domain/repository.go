package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	InsertDelivery(ctx context.Context, db *gorm.DB, delivery *Delivery) error
	CountByStatus(ctx context.Context, db *gorm.DB, status DeliveryStatus) (int64, error)
}
