package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, idOrSlug string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	MarkSoldOut(ctx context.Context, id string) error
}

type ListRequest struct {
	Kind   string
	Active *bool
}

type CreateRequest struct {
	Name               string         `json:"name"`
	Slug               string         `json:"slug"`
	Kind               string         `json:"kind"`
	PriceTRY           int64          `json:"price_try"`
	Active             *bool          `json:"active"`
	Unlimited          bool           `json:"unlimited"`
	DefaultCredentials *string        `json:"default_credentials"`
	Metadata           map[string]any `json:"metadata"`
}

type UpdateRequest struct {
	ID                 string         `json:"-"`
	Name               *string        `json:"name"`
	PriceTRY           *int64         `json:"price_try"`
	Active             *bool          `json:"active"`
	Unlimited          *bool          `json:"unlimited"`
	DefaultCredentials *string        `json:"default_credentials"`
	Metadata           map[string]any `json:"metadata"`
}

type Response struct {
	ID                 string         `json:"id"`
	Slug               string         `json:"slug"`
	Name               string         `json:"name"`
	Kind               ItemKind       `json:"kind"`
	PriceTRY           int64          `json:"price_try"`
	Active             bool           `json:"active"`
	Unlimited          bool           `json:"unlimited"`
	DefaultCredentials *string        `json:"default_credentials,omitempty"`
	SalesCount         int64          `json:"sales_count"`
	Status             ItemStatus     `json:"status"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidKind = errors.New("invalid_kind")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("not_found")
	ErrSlugTaken   = errors.New("slug_taken")
)
