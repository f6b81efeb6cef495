package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindSettings(ctx context.Context, db *gorm.DB) (*SettingsRecord, error)
	SaveSettings(ctx context.Context, db *gorm.DB, record *SettingsRecord) error

	ListDenylist(ctx context.Context, db *gorm.DB) ([]DenylistEntry, error)
	InsertDenylist(ctx context.Context, db *gorm.DB, entry *DenylistEntry) error
	DeleteDenylist(ctx context.Context, db *gorm.DB, id int64) (bool, error)

	InsertAssessment(ctx context.Context, db *gorm.DB, assessment *Assessment) error
	FindAssessmentByOrder(ctx context.Context, db *gorm.DB, orderID int64) (*Assessment, error)

	// Aggregate signals over the orders table.
	CountOrdersFromIPSince(ctx context.Context, db *gorm.DB, ip string, since time.Time, excludeOrderID int64) (int64, error)
	CountAccountsOnIP(ctx context.Context, db *gorm.DB, ip string) (int64, error)
	CountAccountsWithPhone(ctx context.Context, db *gorm.DB, phone string, excludeUserID int64) (int64, error)
	CountPriorOrders(ctx context.Context, db *gorm.DB, userID, excludeOrderID int64) (int64, error)
}
