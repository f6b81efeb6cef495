package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type OrderCursor struct {
	ID        int64
	CreatedAt time.Time
}

type ListFilter struct {
	PaymentStatus  string
	DeliveryStatus string
	RiskStatus     string
	Cursor         *OrderCursor
	Limit          int
}

// ListRow joins the order with its risk verdict and delivery state for
// the admin listing.
type ListRow struct {
	Order
	RiskScore      *int    `gorm:"column:risk_score"`
	RiskStatus     *string `gorm:"column:risk_status"`
	RiskReasons    []byte  `gorm:"column:risk_reasons"`
	DeliveryStatus *string `gorm:"column:delivery_status"`
	HoldReason     *string `gorm:"column:hold_reason"`
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Order, error)
	FindRowByID(ctx context.Context, db *gorm.DB, id int64) (*ListRow, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*ListRow, error)
	// PromotePaid moves a pending order to paid. Reports false when the
	// order already left pending, so a late callback cannot resurrect a
	// refunded order.
	PromotePaid(ctx context.Context, db *gorm.DB, id int64, at time.Time) (bool, error)
	MarkRefunded(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
}
