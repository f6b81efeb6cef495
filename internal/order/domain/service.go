package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mertlendinyurt-source/epinnew-sub000/pkg/db/pagination"
)

type CreateRequest struct {
	UserID   string `json:"user_id"`
	ItemID   string `json:"item_id"`
	PlayerID string `json:"player_id"`
	Amount   int64  `json:"amount"`

	Email     string `json:"email"`
	Phone     string `json:"phone"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`

	EmailVerified    bool       `json:"email_verified"`
	AccountCreatedAt *time.Time `json:"account_created_at"`
	LoginAt          *time.Time `json:"login_at"`
}

type ListRequest struct {
	pagination.Pagination
	PaymentStatus  string
	DeliveryStatus string
	RiskStatus     string
}

type RiskView struct {
	Score   int             `json:"score"`
	Status  string          `json:"status"`
	Reasons json.RawMessage `json:"reasons,omitempty"`
}

type DeliveryView struct {
	Status     string `json:"status"`
	HoldReason string `json:"hold_reason,omitempty"`
}

type Response struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	ItemID        string        `json:"item_id"`
	Kind          string        `json:"kind"`
	PlayerID      string        `json:"player_id,omitempty"`
	Amount        int64         `json:"amount"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Email         string        `json:"email,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	Risk          *RiskView     `json:"risk,omitempty"`
	Delivery      *DeliveryView `json:"delivery,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Orders []Response `json:"orders"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrNotFound         = errors.New("not_found")
	ErrItemNotFound     = errors.New("item_not_found")
	ErrItemInactive     = errors.New("item_inactive")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
