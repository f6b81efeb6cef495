package repository

import (
	"context"
	"time"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, units []*domain.Unit) error {
	if len(units) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(units).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Unit, error) {
	var unit domain.Unit
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM stock_units WHERE id = ?`, id,
	).Scan(&unit).Error
	if err != nil {
		return nil, err
	}
	if unit.ID == 0 {
		return nil, nil
	}
	return &unit, nil
}

func (r *repo) FindAssignedByOrder(ctx context.Context, db *gorm.DB, orderID int64) (*domain.Unit, error) {
	var unit domain.Unit
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM stock_units WHERE order_id = ? AND status = 'assigned' LIMIT 1`,
		orderID,
	).Scan(&unit).Error
	if err != nil {
		return nil, err
	}
	if unit.ID == 0 {
		return nil, nil
	}
	return &unit, nil
}

func (r *repo) FindOldestAvailable(ctx context.Context, db *gorm.DB, itemID int64) (*domain.Unit, error) {
	var unit domain.Unit
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM stock_units
		 WHERE item_id = ? AND status = 'available'
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`,
		itemID,
	).Scan(&unit).Error
	if err != nil {
		return nil, err
	}
	if unit.ID == 0 {
		return nil, nil
	}
	return &unit, nil
}

func (r *repo) ClaimUnit(ctx context.Context, db *gorm.DB, unitID, orderID int64, assignedBy string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE stock_units
		 SET status = 'assigned', order_id = ?, assigned_by = ?, assigned_at = ?
		 WHERE id = ? AND status = 'available'`,
		orderID,
		assignedBy,
		at,
		unitID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListAvailable(ctx context.Context, db *gorm.DB, itemID int64) ([]domain.Unit, error) {
	var units []domain.Unit
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM stock_units
		 WHERE item_id = ? AND status = 'available'
		 ORDER BY created_at ASC, id ASC`,
		itemID,
	).Scan(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}

func (r *repo) Summary(ctx context.Context, db *gorm.DB, itemID int64) (domain.Summary, error) {
	var summary domain.Summary
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN status = 'available' THEN 1 END) AS available,
			COUNT(CASE WHEN status = 'assigned' THEN 1 END) AS assigned
		 FROM stock_units WHERE item_id = ?`,
		itemID,
	).Scan(&summary).Error
	return summary, err
}

func (r *repo) DeleteAvailable(ctx context.Context, db *gorm.DB, unitID int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM stock_units WHERE id = ? AND status = 'available'`,
		unitID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
