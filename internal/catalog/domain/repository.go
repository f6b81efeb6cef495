package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	Kind   ItemKind
	Active *bool
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Item, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Item, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Item, error)
	Update(ctx context.Context, db *gorm.DB, item *Item) error
	IncrementSales(ctx context.Context, db *gorm.DB, id int64) error
	MarkSoldOut(ctx context.Context, db *gorm.DB, id int64) error
}
