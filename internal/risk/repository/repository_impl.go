package repository

import (
	"context"
	"time"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindSettings(ctx context.Context, db *gorm.DB) (*domain.SettingsRecord, error) {
	var record domain.SettingsRecord
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM risk_settings ORDER BY id ASC LIMIT 1`,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) SaveSettings(ctx context.Context, db *gorm.DB, record *domain.SettingsRecord) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE risk_settings SET data = ?, updated_by = ?, updated_at = ? WHERE id = ?`,
		record.Data,
		record.UpdatedBy,
		record.UpdatedAt,
		record.ID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.WithContext(ctx).Exec(
			`INSERT INTO risk_settings (id, data, updated_by, updated_at) VALUES (?, ?, ?, ?)`,
			record.ID,
			record.Data,
			record.UpdatedBy,
			record.UpdatedAt,
		).Error
	}
	return nil
}

func (r *repo) ListDenylist(ctx context.Context, db *gorm.DB) ([]domain.DenylistEntry, error) {
	var entries []domain.DenylistEntry
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM risk_denylist ORDER BY created_at DESC, id DESC`,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) InsertDenylist(ctx context.Context, db *gorm.DB, entry *domain.DenylistEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO risk_denylist (id, type, value, reason, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Type,
		entry.Value,
		entry.Reason,
		entry.CreatedBy,
		entry.CreatedAt,
	).Error
}

func (r *repo) DeleteDenylist(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM risk_denylist WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertAssessment(ctx context.Context, db *gorm.DB, assessment *domain.Assessment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO risk_assessments (
			id, order_id, score, reasons, status, actual_status,
			test_mode, ip, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assessment.ID,
		assessment.OrderID,
		assessment.Score,
		assessment.Reasons,
		assessment.Status,
		assessment.ActualStatus,
		assessment.TestMode,
		assessment.IP,
		assessment.UserAgent,
		assessment.CreatedAt,
	).Error
}

func (r *repo) FindAssessmentByOrder(ctx context.Context, db *gorm.DB, orderID int64) (*domain.Assessment, error) {
	var assessment domain.Assessment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM risk_assessments WHERE order_id = ? LIMIT 1`,
		orderID,
	).Scan(&assessment).Error
	if err != nil {
		return nil, err
	}
	if assessment.ID == 0 {
		return nil, nil
	}
	return &assessment, nil
}

func (r *repo) CountOrdersFromIPSince(ctx context.Context, db *gorm.DB, ip string, since time.Time, excludeOrderID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM orders
		 WHERE ip = ? AND created_at >= ? AND id <> ?`,
		ip,
		since,
		excludeOrderID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountAccountsOnIP(ctx context.Context, db *gorm.DB, ip string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT user_id) FROM orders WHERE ip = ?`,
		ip,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountAccountsWithPhone(ctx context.Context, db *gorm.DB, phone string, excludeUserID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT user_id) FROM orders
		 WHERE phone = ? AND user_id <> ?`,
		phone,
		excludeUserID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountPriorOrders(ctx context.Context, db *gorm.DB, userID, excludeOrderID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM orders WHERE user_id = ? AND id <> ?`,
		userID,
		excludeOrderID,
	).Scan(&count).Error
	return count, err
}
