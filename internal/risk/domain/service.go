package domain

import (
	"context"
	"errors"
	"time"
)

// AssessRequest carries the order and the account facts captured at
// checkout. Aggregate signals (velocity, shared identities) are
// gathered by the service itself.
type AssessRequest struct {
	OrderID  int64
	UserID   int64
	PlayerID string
	Input    OrderInput

	EmailVerified    bool
	AccountCreatedAt *time.Time
	LoginAt          *time.Time
}

type AddDenylistRequest struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
	Actor  string `json:"-"`
}

type Service interface {
	// Assess scores and classifies the order, persists the verdict, and
	// returns it. One assessment per order; re-assessing returns the
	// stored verdict.
	Assess(ctx context.Context, req AssessRequest) (*Assessment, error)
	GetAssessment(ctx context.Context, orderID int64) (*Assessment, error)

	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, settings Settings, actor string) (Settings, error)

	ListDenylist(ctx context.Context) ([]DenylistEntry, error)
	AddDenylist(ctx context.Context, req AddDenylistRequest) (*DenylistEntry, error)
	RemoveDenylist(ctx context.Context, id int64, actor string) error
}

var (
	ErrInvalidDenylistType  = errors.New("invalid_denylist_type")
	ErrInvalidDenylistValue = errors.New("invalid_denylist_value")
	ErrDenylistDuplicate    = errors.New("denylist_duplicate")
	ErrDenylistNotFound     = errors.New("denylist_not_found")
	ErrInvalidThresholds    = errors.New("invalid_thresholds")
	ErrAssessmentNotFound   = errors.New("assessment_not_found")
)
