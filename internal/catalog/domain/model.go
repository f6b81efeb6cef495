package domain

import (
	"time"

	"gorm.io/datatypes"
)

type ItemKind string

const (
	KindCurrencyPackage ItemKind = "currency_package"
	KindAccount         ItemKind = "account"
)

func (k ItemKind) Valid() bool {
	return k == KindCurrencyPackage || k == KindAccount
}

type ItemStatus string

const (
	ItemStatusActive ItemStatus = "active"
	ItemStatusSold   ItemStatus = "sold"
)

// Item is a sellable listing. Kind is fixed at creation and never
// re-inferred from the payload shape.
type Item struct {
	ID       int64    `json:"id" gorm:"primaryKey"`
	Slug     string   `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Name     string   `json:"name" gorm:"type:text;not null"`
	Kind     ItemKind `json:"kind" gorm:"type:text;not null"`
	PriceTRY int64    `json:"price_try" gorm:"column:price_try;not null"`
	Active   bool     `json:"active" gorm:"not null"`

	// Unlimited items deliver DefaultCredentials without consuming stock.
	Unlimited          bool    `json:"unlimited" gorm:"not null;default:false"`
	DefaultCredentials *string `json:"default_credentials,omitempty" gorm:"type:text"`

	SalesCount int64             `json:"sales_count" gorm:"not null;default:0"`
	Status     ItemStatus        `json:"status" gorm:"type:text;not null;default:'active'"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Item) TableName() string { return "items" }
