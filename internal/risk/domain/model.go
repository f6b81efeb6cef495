package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusClean      Status = "CLEAN"
	StatusSuspicious Status = "SUSPICIOUS"
	StatusFlagged    Status = "FLAGGED"
	StatusBlocked    Status = "BLOCKED"
)

// Settings tunes the scorer and classifier. A single persisted row
// overrides the file defaults; every weight and threshold is editable.
type Settings struct {
	Enabled               bool       `json:"enabled"`
	TestMode              bool       `json:"test_mode"`
	SuspiciousAutoApprove bool       `json:"suspicious_auto_approve"`
	Thresholds            Thresholds `json:"thresholds"`
	Weights               Weights    `json:"weights"`
	HardBlocks            HardBlocks `json:"hard_blocks"`
}

type Thresholds struct {
	CleanMax      int `json:"clean_max"`
	SuspiciousMax int `json:"suspicious_max"`
}

type Weights struct {
	PhoneEmpty             int `json:"phone_empty"`
	PhoneNotMobile         int `json:"phone_not_mobile"`
	PhoneInvalidLength     int `json:"phone_invalid_length"`
	PhoneMultipleAccounts  int `json:"phone_multiple_accounts"`
	DisposableEmail        int `json:"disposable_email"`
	EmailNotVerified       int `json:"email_not_verified"`
	AccountAgeUnder10Min   int `json:"account_age_under_10min"`
	AccountAgeUnder1Hour   int `json:"account_age_under_1hour"`
	FirstOrder             int `json:"first_order"`
	FastCheckout           int `json:"fast_checkout"`
	EmptyUserAgent         int `json:"empty_user_agent"`
	MultipleAccountsSameIP int `json:"multiple_accounts_same_ip"`
	MultipleOrdersSameIP   int `json:"multiple_orders_same_ip"`
	AmountOver300          int `json:"amount_over_300"`
	AmountOver750          int `json:"amount_over_750"`
	AmountOver1500         int `json:"amount_over_1500"`
	FirstOrderHighAmount   int `json:"first_order_high_amount"`
	DenylistHit            int `json:"denylist_hit"`
}

type HardBlocks struct {
	DenylistHit  bool `json:"denylist_hit"`
	InvalidPhone bool `json:"invalid_phone"`
}

// SettingsRecord stores the admin-edited settings as a JSON document.
type SettingsRecord struct {
	ID        int64          `gorm:"primaryKey"`
	Data      datatypes.JSON `gorm:"column:data;not null"`
	UpdatedBy string         `gorm:"column:updated_by"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

func (SettingsRecord) TableName() string { return "risk_settings" }

type DenylistType string

const (
	DenyEmail       DenylistType = "email"
	DenyEmailDomain DenylistType = "email_domain"
	DenyPhone       DenylistType = "phone"
	DenyIP          DenylistType = "ip"
	DenyPlayerID    DenylistType = "player_id"
)

func (t DenylistType) Valid() bool {
	switch t {
	case DenyEmail, DenyEmailDomain, DenyPhone, DenyIP, DenyPlayerID:
		return true
	}
	return false
}

type DenylistEntry struct {
	ID        int64        `json:"id" gorm:"primaryKey"`
	Type      DenylistType `json:"type" gorm:"type:text;not null;index:ux_denylist_type_value,unique,priority:1"`
	Value     string       `json:"value" gorm:"type:text;not null;index:ux_denylist_type_value,unique,priority:2"`
	Reason    string       `json:"reason" gorm:"type:text"`
	CreatedBy string       `json:"created_by" gorm:"column:created_by"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DenylistEntry) TableName() string { return "risk_denylist" }

// Reason is one scored heuristic hit, in evaluation order.
type Reason struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Points int    `json:"points"`
}

// Assessment is the persisted risk verdict, one per order.
type Assessment struct {
	ID      int64 `json:"id" gorm:"primaryKey"`
	OrderID int64 `json:"order_id" gorm:"column:order_id;not null;uniqueIndex"`
	Score   int   `json:"score" gorm:"not null"`

	Reasons datatypes.JSON `json:"reasons" gorm:"column:reasons"`
	Status  Status         `json:"status" gorm:"type:text;not null"`

	// ActualStatus preserves the live verdict when TestMode rewrote
	// Status to CLEAN for delivery purposes.
	ActualStatus *Status   `json:"actual_status,omitempty" gorm:"column:actual_status"`
	TestMode     bool      `json:"test_mode" gorm:"column:test_mode;not null;default:false"`
	IP           string    `json:"ip" gorm:"column:ip"`
	UserAgent    string    `json:"user_agent" gorm:"column:user_agent"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Assessment) TableName() string { return "risk_assessments" }
