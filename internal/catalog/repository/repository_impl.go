package repository

import (
	"context"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO items (
			id, slug, name, kind, price_try, active, unlimited,
			default_credentials, sales_count, status, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Slug,
		item.Name,
		item.Kind,
		item.PriceTRY,
		item.Active,
		item.Unlimited,
		item.DefaultCredentials,
		item.SalesCount,
		item.Status,
		item.Metadata,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM items WHERE id = ?`, id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM items WHERE slug = ?`, slug,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Item, error) {
	var items []domain.Item
	stmt := db.WithContext(ctx).Model(&domain.Item{})

	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	if err := stmt.Order("created_at asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	if item == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE items
		 SET name = ?, price_try = ?, active = ?, unlimited = ?,
		     default_credentials = ?, status = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		item.Name,
		item.PriceTRY,
		item.Active,
		item.Unlimited,
		item.DefaultCredentials,
		item.Status,
		item.Metadata,
		item.UpdatedAt,
		item.ID,
	).Error
}

func (r *repo) IncrementSales(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE items SET sales_count = sales_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	).Error
}

func (r *repo) MarkSoldOut(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE items SET status = 'sold', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND unlimited = false`,
		id,
	).Error
}
