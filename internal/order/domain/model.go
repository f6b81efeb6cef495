package domain

import "time"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order is the purchase record. Orders are never deleted, only
// status-transitioned.
type Order struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	UserID   int64  `json:"user_id" gorm:"column:user_id;not null;index"`
	ItemID   int64  `json:"item_id" gorm:"column:item_id;not null;index"`
	Kind     string `json:"kind" gorm:"type:text;not null"`
	PlayerID string `json:"player_id" gorm:"column:player_id"`
	Amount   int64  `json:"amount" gorm:"not null"`

	PaymentStatus PaymentStatus `json:"payment_status" gorm:"column:payment_status;type:text;not null;default:'pending';index"`

	Email     string `json:"email" gorm:"type:text"`
	Phone     string `json:"phone" gorm:"type:text;index"`
	IP        string `json:"ip" gorm:"column:ip;type:text;index"`
	UserAgent string `json:"user_agent" gorm:"column:user_agent;type:text"`

	// Account facts captured at checkout, consumed by risk scoring.
	EmailVerified    bool       `json:"email_verified" gorm:"column:email_verified;not null;default:false"`
	AccountCreatedAt *time.Time `json:"account_created_at,omitempty" gorm:"column:account_created_at"`
	LoginAt          *time.Time `json:"login_at,omitempty" gorm:"column:login_at"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Order) TableName() string { return "orders" }
