package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, units []*Unit) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Unit, error)
	FindAssignedByOrder(ctx context.Context, db *gorm.DB, orderID int64) (*Unit, error)
	FindOldestAvailable(ctx context.Context, db *gorm.DB, itemID int64) (*Unit, error)
	// ClaimUnit flips the unit from available to assigned with a
	// conditional update. It reports whether this caller won the unit.
	ClaimUnit(ctx context.Context, db *gorm.DB, unitID, orderID int64, assignedBy string, at time.Time) (bool, error)
	ListAvailable(ctx context.Context, db *gorm.DB, itemID int64) ([]Unit, error)
	Summary(ctx context.Context, db *gorm.DB, itemID int64) (Summary, error)
	// DeleteAvailable removes the unit only while it is still available.
	DeleteAvailable(ctx context.Context, db *gorm.DB, unitID int64) (bool, error)
}
