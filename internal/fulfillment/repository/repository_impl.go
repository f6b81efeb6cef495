package repository

import (
	"context"
	"time"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, delivery *domain.Delivery) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO deliveries (
			id, order_id, status, hold_reason, message, unit_id, payload,
			assigned_by, delivered_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		delivery.ID,
		delivery.OrderID,
		delivery.Status,
		delivery.HoldReason,
		delivery.Message,
		delivery.UnitID,
		delivery.Payload,
		delivery.AssignedBy,
		delivery.DeliveredAt,
		delivery.CreatedAt,
		delivery.UpdatedAt,
	).Error
}

func (r *repo) FindByOrder(ctx context.Context, db *gorm.DB, orderID int64) (*domain.Delivery, error) {
	var delivery domain.Delivery
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM deliveries WHERE order_id = ? LIMIT 1`,
		orderID,
	).Scan(&delivery).Error
	if err != nil {
		return nil, err
	}
	if delivery.ID == 0 {
		return nil, nil
	}
	return &delivery, nil
}

func (r *repo) MarkDelivered(ctx context.Context, db *gorm.DB, orderID int64, from domain.DeliveryStatus, unitID *int64, payload, assignedBy string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE deliveries
		 SET status = 'delivered', hold_reason = '', unit_id = ?, payload = ?,
		     assigned_by = ?, delivered_at = ?, updated_at = ?
		 WHERE order_id = ? AND status = ?`,
		unitID,
		payload,
		assignedBy,
		at,
		at,
		orderID,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkHold(ctx context.Context, db *gorm.DB, orderID int64, from domain.DeliveryStatus, reason domain.HoldReason, message string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE deliveries
		 SET status = 'hold', hold_reason = ?, message = ?, updated_at = ?
		 WHERE order_id = ? AND status = ?`,
		reason,
		message,
		at,
		orderID,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkPending(ctx context.Context, db *gorm.DB, orderID int64, from domain.DeliveryStatus, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE deliveries
		 SET status = 'pending', hold_reason = '', updated_at = ?
		 WHERE order_id = ? AND status = ?`,
		at,
		orderID,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, orderID int64, from domain.DeliveryStatus, message string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE deliveries
		 SET status = 'cancelled', message = ?, updated_at = ?
		 WHERE order_id = ? AND status = ?`,
		message,
		at,
		orderID,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListPendingPaid(ctx context.Context, db *gorm.DB, limit int) ([]domain.PendingOrder, error) {
	var rows []domain.PendingOrder
	stmt := db.WithContext(ctx).Raw(
		`SELECT d.order_id AS order_id, d.id AS delivery_id, d.created_at AS created_at
		 FROM deliveries d
		 JOIN orders o ON o.id = d.order_id
		 WHERE d.status = 'pending' AND o.payment_status = 'paid'
		 ORDER BY d.created_at ASC, d.id ASC
		 LIMIT ?`,
		limit,
	)
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
