package repository

import (
	"context"
	"strings"
	"time"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, user_id, item_id, kind, player_id, amount, payment_status,
			email, phone, ip, user_agent, email_verified,
			account_created_at, login_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.UserID,
		order.ItemID,
		order.Kind,
		order.PlayerID,
		order.Amount,
		order.PaymentStatus,
		order.Email,
		order.Phone,
		order.IP,
		order.UserAgent,
		order.EmailVerified,
		order.AccountCreatedAt,
		order.LoginAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM orders WHERE id = ?`, id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindRowByID(ctx context.Context, db *gorm.DB, id int64) (*domain.ListRow, error) {
	var row domain.ListRow
	err := db.WithContext(ctx).Raw(
		`SELECT o.*,
			ra.score AS risk_score,
			ra.status AS risk_status,
			ra.reasons AS risk_reasons,
			d.status AS delivery_status,
			d.hold_reason AS hold_reason
		 FROM orders o
		 LEFT JOIN risk_assessments ra ON ra.order_id = o.id
		 LEFT JOIN deliveries d ON d.order_id = o.id
		 WHERE o.id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.ListRow, error) {
	var rows []*domain.ListRow
	stmt := db.WithContext(ctx).
		Table("orders AS o").
		Select(`o.*,
			ra.score AS risk_score,
			ra.status AS risk_status,
			ra.reasons AS risk_reasons,
			d.status AS delivery_status,
			d.hold_reason AS hold_reason`).
		Joins("LEFT JOIN risk_assessments ra ON ra.order_id = o.id").
		Joins("LEFT JOIN deliveries d ON d.order_id = o.id")

	if status := strings.TrimSpace(filter.PaymentStatus); status != "" {
		stmt = stmt.Where("o.payment_status = ?", status)
	}
	if status := strings.TrimSpace(filter.DeliveryStatus); status != "" {
		stmt = stmt.Where("d.status = ?", status)
	}
	if status := strings.TrimSpace(filter.RiskStatus); status != "" {
		stmt = stmt.Where("ra.status = ?", status)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(o.created_at < ?) OR (o.created_at = ? AND o.id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("o.created_at desc, o.id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) PromotePaid(ctx context.Context, db *gorm.DB, id int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ? AND payment_status = ?`,
		domain.PaymentPaid,
		at,
		id,
		domain.PaymentPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkRefunded(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ? AND payment_status <> ?`,
		domain.PaymentRefunded,
		at,
		id,
		domain.PaymentRefunded,
	).Error
}
