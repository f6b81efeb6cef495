package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// PendingOrder pairs a pending delivery with its order for the sweeper.
type PendingOrder struct {
	OrderID    int64     `gorm:"column:order_id"`
	DeliveryID int64     `gorm:"column:delivery_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, delivery *Delivery) error
	FindByOrder(ctx context.Context, db *gorm.DB, orderID int64) (*Delivery, error)

	// Transitions are conditional on the current status so concurrent
	// actors cannot double-apply them.
	MarkDelivered(ctx context.Context, db *gorm.DB, orderID int64, from DeliveryStatus, unitID *int64, payload, assignedBy string, at time.Time) (bool, error)
	MarkHold(ctx context.Context, db *gorm.DB, orderID int64, from DeliveryStatus, reason HoldReason, message string, at time.Time) (bool, error)
	MarkPending(ctx context.Context, db *gorm.DB, orderID int64, from DeliveryStatus, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, db *gorm.DB, orderID int64, from DeliveryStatus, message string, at time.Time) (bool, error)

	// ListPendingPaid returns pending deliveries whose orders are paid,
	// oldest first, for restock retries.
	ListPendingPaid(ctx context.Context, db *gorm.DB, limit int) ([]PendingOrder, error)
}
